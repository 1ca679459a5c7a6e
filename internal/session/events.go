package session

import "time"

type EventType string

const (
	EventQuestion   EventType = "question"
	EventTick       EventType = "tick"
	EventAnswer     EventType = "answer"
	EventError      EventType = "error"
	EventFinalizing EventType = "finalizing"
	EventCompleted  EventType = "completed"
	EventReset      EventType = "reset"
	EventSnapshot   EventType = "snapshot"
)

// Event is pushed to whoever renders the interview.
type Event struct {
	Type        EventType `json:"type"`
	CandidateID string    `json:"candidateId"`
	Data        any       `json:"data,omitempty"`
	At          time.Time `json:"at"`
}

// Notifier delivers events; implementations must not block.
type Notifier interface {
	Publish(e Event)
}

type nopNotifier struct{}

func (nopNotifier) Publish(Event) {}

type QuestionEvent struct {
	Index         int    `json:"index"`
	Total         int    `json:"total"`
	Question      string `json:"question"`
	Difficulty    string `json:"difficulty"`
	TimeRemaining int    `json:"timeRemaining"`
}

type TickEvent struct {
	TimeRemaining int `json:"timeRemaining"`
}

type AnswerEvent struct {
	Index    int    `json:"index"`
	Answer   string `json:"answer"`
	TimedOut bool   `json:"timedOut"`
}

type ErrorEvent struct {
	Message        string `json:"message"`
	RetryAvailable bool   `json:"retryAvailable"`
}

type CompletedEvent struct {
	Score   int    `json:"score"`
	Summary string `json:"summary"`
}
