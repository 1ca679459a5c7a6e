package session

// Phase is where a controller is in the question/answer loop.
type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseFetchingQuestion Phase = "fetching_question"
	PhaseWaitingForAnswer Phase = "waiting_for_answer"
	PhaseSubmitting       Phase = "submitting"
	PhaseFinalizing       Phase = "finalizing"
	PhaseDone             Phase = "done"
)

// Busy reports whether a network-bound step is running.
func (p Phase) Busy() bool {
	return p == PhaseFetchingQuestion || p == PhaseSubmitting || p == PhaseFinalizing
}
