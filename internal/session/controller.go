package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"crisp/internal/metrics"
	"crisp/internal/models"
)

var (
	ErrInvalidPhase      = errors.New("operation not allowed in the current phase")
	ErrSubmitInFlight    = errors.New("an answer is already being submitted")
	ErrFetchInFlight     = errors.New("the next question is already being fetched")
	ErrNoQuestion        = errors.New("no question is waiting for an answer")
	ErrScheduleExhausted = errors.New("every slot of the schedule has been asked")
	ErrSubmissionFailed  = errors.New("submission failed, please try again")
	ErrNotInProgress     = errors.New("interview is not in progress")
	ErrNotReady          = errors.New("candidate profile is not complete")
	ErrUnansweredSlots   = errors.New("interview still has unanswered slots")
	ErrClosed            = errors.New("session is closed")
	ErrStaleAnswer       = errors.New("answer is for a question that is no longer current")
	ErrAlreadyCompleted  = errors.New("interview is already completed")
)

const fetchFailedMessage = "Failed to load the next question. Please try again."

// QuestionSource yields the next question for a slot.
type QuestionSource interface {
	Next(ctx context.Context, difficulty models.Difficulty, asked []models.Question) (models.Question, error)
}

// SourceFactory builds the question source for one session, typically after
// loading the question bank.
type SourceFactory func(ctx context.Context) (QuestionSource, error)

type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (models.PerformanceSummary, error)
}

type TokenInvalidator interface {
	Invalidate(ctx context.Context, token string) error
}

// RecordStore is the slice of store.Store a controller mutates.
type RecordStore interface {
	Get(id string) (models.Candidate, bool)
	StartInterview(id string) (models.Candidate, error)
	AddQuestion(id string, q models.Question) (models.Candidate, error)
	RecordAnswer(id string, answer string) (models.Candidate, error)
	AppendChatOnce(id string, msg models.ChatMessage) (models.Candidate, bool, error)
	Complete(id string, summary string, score int) (models.Candidate, bool, error)
	StartOver(id string) (models.Candidate, error)
}

// Deps are shared by every controller a Manager creates.
type Deps struct {
	Schedule   models.Schedule
	Sources    SourceFactory
	Summarizer Summarizer
	Tokens     TokenInvalidator
	Notifier   Notifier
	Clock      Clock
	Logger     *zap.Logger
}

func (d Deps) withDefaults() Deps {
	if len(d.Schedule) == 0 {
		d.Schedule = models.DefaultSchedule
	}
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Clock == nil {
		d.Clock = realClock{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return d
}

// Snapshot is what the UI needs to render the interview.
type Snapshot struct {
	Phase           Phase            `json:"phase"`
	TimeRemaining   int              `json:"timeRemaining"`
	RetryAvailable  bool             `json:"retryAvailable"`
	LastError       string           `json:"lastError,omitempty"`
	CurrentQuestion *models.Question `json:"currentQuestion,omitempty"`
	TotalSlots      int              `json:"totalSlots"`
	Candidate       models.Candidate `json:"candidate"`
}

// Controller drives one candidate's interview. All phase changes happen
// under mu; question and summary calls run without it.
type Controller struct {
	id    string
	token string
	store RecordStore
	deps  Deps
	log   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu             sync.Mutex
	phase          Phase
	started        bool
	closed         bool
	source         QuestionSource
	timeRemaining  int
	gen            uint64 // bumps whenever a countdown is armed or cancelled
	epoch          uint64 // bumps on start over and close
	stopCountdown  chan struct{}
	retryAvailable bool
	lastErr        string
}

func NewController(st RecordStore, candidateID, token string, deps Deps) *Controller {
	deps = deps.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		id:     candidateID,
		token:  token,
		store:  st,
		deps:   deps,
		log:    deps.Logger.With(zap.String("candidate_id", candidateID)),
		ctx:    ctx,
		cancel: cancel,
		phase:  PhaseIdle,
	}
}

func (c *Controller) CandidateID() string { return c.id }

// Start begins the interview, or re-arms it when the record is already in progress.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.started {
		c.mu.Unlock()
		return nil
	}

	rec, ok := c.store.Get(c.id)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("candidate %s is not loaded", c.id)
	}
	switch rec.Interview.Status {
	case models.StatusReadyToStart:
		if _, err := c.store.StartInterview(c.id); err != nil {
			c.mu.Unlock()
			return err
		}
		c.log.Info("interview started")
	case models.StatusInProgress:
		c.log.Info("interview resumed",
			zap.Int("questions", len(rec.Interview.Questions)),
			zap.Int("answers", len(rec.Interview.Answers)))
	case models.StatusCompleted:
		c.phase = PhaseDone
		c.started = true
		c.mu.Unlock()
		return nil
	default:
		c.mu.Unlock()
		return ErrNotReady
	}
	c.started = true
	c.mu.Unlock()

	return c.resume(ctx)
}

// resume puts the controller in the phase matching the stored record.
func (c *Controller) resume(ctx context.Context) error {
	c.mu.Lock()
	rec, ok := c.store.Get(c.id)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("candidate %s is not loaded", c.id)
	}
	iv := rec.Interview
	if q, outstanding := iv.CurrentQuestion(); outstanding {
		slot := c.slot(len(iv.Questions) - 1)
		c.phase = PhaseWaitingForAnswer
		c.armLocked(slot.Duration)
		c.mu.Unlock()
		c.publishQuestion(q, len(iv.Questions)-1, slot.Duration)
		return nil
	}
	c.mu.Unlock()

	if len(iv.Answers) >= c.deps.Schedule.Len() {
		return c.Finalize(ctx)
	}
	return c.RequestNextQuestion(ctx)
}

// RequestNextQuestion fetches the question for the next unanswered slot.
// A failed fetch leaves the record untouched and marks a retry as available.
func (c *Controller) RequestNextQuestion(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	switch c.phase {
	case PhaseIdle:
	case PhaseFetchingQuestion:
		c.mu.Unlock()
		return ErrFetchInFlight
	default:
		c.mu.Unlock()
		return ErrInvalidPhase
	}

	// re-read the record, never trust an earlier copy
	rec, ok := c.store.Get(c.id)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("candidate %s is not loaded", c.id)
	}
	iv := rec.Interview
	if iv.Status != models.StatusInProgress {
		c.mu.Unlock()
		return ErrNotInProgress
	}
	if iv.Outstanding() {
		c.mu.Unlock()
		return ErrInvalidPhase
	}
	index := len(iv.Answers)
	if index >= c.deps.Schedule.Len() {
		c.mu.Unlock()
		return ErrScheduleExhausted
	}

	slot := c.slot(index)
	c.phase = PhaseFetchingQuestion
	c.retryAvailable = false
	c.lastErr = ""
	epoch := c.epoch
	source := c.source
	c.mu.Unlock()

	q, err := c.fetch(ctx, source, slot.Difficulty, iv.Questions)

	c.mu.Lock()
	if c.epoch != epoch {
		// started over or closed while we were waiting
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		c.phase = PhaseIdle
		c.retryAvailable = true
		c.lastErr = fetchFailedMessage
		c.mu.Unlock()

		metrics.QuestionFetchFailures.Inc()
		c.log.Warn("failed to fetch next question",
			zap.Int("slot", index),
			zap.String("difficulty", string(slot.Difficulty)),
			zap.Error(err))
		c.publish(EventError, ErrorEvent{Message: fetchFailedMessage, RetryAvailable: true})
		return nil
	}

	if _, err := c.store.AddQuestion(c.id, q); err != nil {
		c.phase = PhaseIdle
		c.mu.Unlock()
		return fmt.Errorf("record question: %w", err)
	}
	c.phase = PhaseWaitingForAnswer
	c.armLocked(slot.Duration)
	c.mu.Unlock()

	c.log.Debug("question asked",
		zap.Int("slot", index),
		zap.String("question_id", q.ID),
		zap.String("source", string(q.Source)))
	c.publishQuestion(q, index, slot.Duration)
	return nil
}

func (c *Controller) fetch(ctx context.Context, source QuestionSource, difficulty models.Difficulty, asked []models.Question) (models.Question, error) {
	if source == nil {
		if c.deps.Sources == nil {
			return models.Question{}, errors.New("no question source configured")
		}
		var err error
		source, err = c.deps.Sources(ctx)
		if err != nil {
			return models.Question{}, fmt.Errorf("prepare question source: %w", err)
		}
		c.mu.Lock()
		if c.source == nil {
			c.source = source
		}
		c.mu.Unlock()
	}
	return source.Next(ctx, difficulty, asked)
}

// Tick advances the countdown by one second; at zero it submits the timeout answer.
func (c *Controller) Tick() {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	c.tick(gen)
}

func (c *Controller) tick(gen uint64) {
	c.mu.Lock()
	if c.phase != PhaseWaitingForAnswer || gen != c.gen || c.timeRemaining <= 0 {
		c.mu.Unlock()
		return
	}
	c.timeRemaining--
	remaining := c.timeRemaining
	c.mu.Unlock()

	c.publish(EventTick, TickEvent{TimeRemaining: remaining})
	if remaining == 0 {
		if err := c.submit(c.ctx, nil, gen, -1); err != nil && !errors.Is(err, ErrSubmitInFlight) {
			c.log.Warn("auto-submit failed", zap.Error(err))
		}
	}
}

// SubmitAnswer records text (or the timeout sentinel when blank) for the
// outstanding question, then moves on to the next slot or finalizes.
func (c *Controller) SubmitAnswer(ctx context.Context, text *string) error {
	return c.submit(ctx, text, 0, -1)
}

// SubmitAnswerAt is SubmitAnswer pinned to the question at index, so a late
// duplicate cannot answer the question that followed it.
func (c *Controller) SubmitAnswerAt(ctx context.Context, index int, text *string) error {
	return c.submit(ctx, text, 0, index)
}

// submit with gen != 0 comes from a countdown and is dropped if that
// countdown has since been replaced.
func (c *Controller) submit(ctx context.Context, text *string, gen uint64, index int) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	switch c.phase {
	case PhaseWaitingForAnswer:
	case PhaseSubmitting:
		c.mu.Unlock()
		return ErrSubmitInFlight
	case PhaseIdle, PhaseFetchingQuestion:
		c.mu.Unlock()
		return ErrNoQuestion
	default:
		c.mu.Unlock()
		return ErrInvalidPhase
	}
	if gen != 0 && gen != c.gen {
		c.mu.Unlock()
		return nil
	}
	if index >= 0 {
		if rec, ok := c.store.Get(c.id); !ok || len(rec.Interview.Questions)-1 != index {
			c.mu.Unlock()
			return ErrStaleAnswer
		}
	}

	c.phase = PhaseSubmitting
	remaining := c.timeRemaining
	c.disarmLocked()

	answer, timedOut := effectiveAnswer(text)
	rec, err := c.store.RecordAnswer(c.id, answer)
	if err != nil {
		if remaining < 1 {
			remaining = 1
		}
		c.phase = PhaseWaitingForAnswer
		c.armLocked(remaining)
		c.lastErr = ErrSubmissionFailed.Error()
		c.mu.Unlock()

		c.log.Error("failed to record answer", zap.Error(err))
		c.publish(EventError, ErrorEvent{Message: ErrSubmissionFailed.Error()})
		return fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}
	c.phase = PhaseIdle
	c.lastErr = ""
	c.mu.Unlock()

	kind := metrics.AnswerTyped
	if timedOut {
		kind = metrics.AnswerTimeout
	}
	metrics.AnswersRecorded.WithLabelValues(kind).Inc()
	c.publish(EventAnswer, AnswerEvent{Index: len(rec.Interview.Answers) - 1, Answer: answer, TimedOut: timedOut})

	// follow-up work outlives the caller's request
	followCtx := c.ctx
	var next error
	if len(rec.Interview.Answers) >= c.deps.Schedule.Len() {
		next = c.Finalize(followCtx)
	} else {
		next = c.RequestNextQuestion(followCtx)
	}
	if errors.Is(next, ErrFetchInFlight) || errors.Is(next, ErrClosed) {
		return nil
	}
	return next
}

func effectiveAnswer(text *string) (string, bool) {
	if text != nil {
		if trimmed := strings.TrimSpace(*text); trimmed != "" {
			return trimmed, false
		}
	}
	return models.TimeoutAnswer, true
}

// Finalize scores the interview and completes it. Redundant calls are no-ops.
func (c *Controller) Finalize(ctx context.Context) error {
	c.mu.Lock()
	switch c.phase {
	case PhaseDone, PhaseFinalizing:
		c.mu.Unlock()
		return nil
	case PhaseIdle:
	default:
		c.mu.Unlock()
		return ErrInvalidPhase
	}

	rec, ok := c.store.Get(c.id)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("candidate %s is not loaded", c.id)
	}
	iv := rec.Interview
	if iv.Status == models.StatusCompleted {
		c.phase = PhaseDone
		c.mu.Unlock()
		return nil
	}
	if iv.Status != models.StatusInProgress {
		c.mu.Unlock()
		return ErrNotInProgress
	}
	if iv.Outstanding() || len(iv.Answers) < c.deps.Schedule.Len() {
		c.mu.Unlock()
		return ErrUnansweredSlots
	}

	c.phase = PhaseFinalizing
	epoch := c.epoch
	rec, _, err := c.store.AppendChatOnce(c.id, models.ChatMessage{
		Role:    models.RoleAssistant,
		Content: models.FinalizingMessage,
	})
	if err != nil {
		c.phase = PhaseIdle
		c.mu.Unlock()
		return fmt.Errorf("append finalizing message: %w", err)
	}
	c.mu.Unlock()

	c.publish(EventFinalizing, nil)

	transcript := BuildTranscript(rec.Interview.ChatHistory)
	summary, outcome := c.summarize(ctx, transcript)

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return nil
	}
	rec, applied, err := c.store.Complete(c.id, summary.Summary, summary.FinalScore)
	if err != nil {
		c.phase = PhaseIdle
		c.mu.Unlock()
		return fmt.Errorf("complete interview: %w", err)
	}
	c.phase = PhaseDone
	c.mu.Unlock()

	if !applied {
		return nil
	}

	metrics.InterviewsCompleted.WithLabelValues(outcome).Inc()
	c.log.Info("interview completed",
		zap.Int("score", summary.FinalScore),
		zap.String("outcome", outcome))
	c.invalidateToken(ctx)
	c.publish(EventCompleted, CompletedEvent{Score: *rec.Interview.Score, Summary: *rec.Interview.Summary})
	return nil
}

func (c *Controller) summarize(ctx context.Context, transcript string) (models.PerformanceSummary, string) {
	fallback := models.PerformanceSummary{FinalScore: 0, Summary: models.FallbackSummary}
	if c.deps.Summarizer == nil {
		return fallback, metrics.OutcomeFallback
	}
	summary, err := c.deps.Summarizer.Summarize(ctx, transcript)
	if err != nil {
		c.log.Warn("summary generation failed, using fallback", zap.Error(err))
		return fallback, metrics.OutcomeFallback
	}
	if strings.TrimSpace(summary.Summary) == "" {
		summary.Summary = models.FallbackSummary
	}
	if summary.FinalScore < 0 {
		summary.FinalScore = 0
	} else if summary.FinalScore > 100 {
		summary.FinalScore = 100
	}
	return summary, metrics.OutcomeScored
}

func (c *Controller) invalidateToken(ctx context.Context) {
	if c.token == "" || c.deps.Tokens == nil {
		return
	}
	if err := c.deps.Tokens.Invalidate(context.WithoutCancel(ctx), c.token); err != nil {
		c.log.Error("failed to invalidate interview token", zap.Error(err))
	}
}

// StartOver resets the record to onboarding and the controller to idle.
// Completed interviews cannot be taken again.
func (c *Controller) StartOver(ctx context.Context) (models.Candidate, error) {
	c.mu.Lock()
	if rec, ok := c.store.Get(c.id); ok && rec.Interview.Status == models.StatusCompleted {
		c.mu.Unlock()
		return models.Candidate{}, ErrAlreadyCompleted
	}
	c.disarmLocked()
	c.epoch++
	c.phase = PhaseIdle
	c.started = false
	c.source = nil
	c.retryAvailable = false
	c.lastErr = ""
	rec, err := c.store.StartOver(c.id)
	c.mu.Unlock()
	if err != nil {
		return models.Candidate{}, err
	}

	c.log.Info("interview reset")
	c.publish(EventReset, nil)
	return rec, nil
}

// Close stops the countdown and cancels follow-up work.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.disarmLocked()
	c.epoch++
	c.closed = true
	c.cancel()
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Phase:          c.phase,
		TimeRemaining:  c.timeRemaining,
		RetryAvailable: c.retryAvailable,
		LastError:      c.lastErr,
		TotalSlots:     c.deps.Schedule.Len(),
	}
	if rec, ok := c.store.Get(c.id); ok {
		snap.Candidate = rec
		if q, outstanding := rec.Interview.CurrentQuestion(); outstanding {
			snap.CurrentQuestion = &q
		}
	}
	if c.phase != PhaseWaitingForAnswer {
		snap.TimeRemaining = 0
	}
	return snap
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Controller) slot(i int) models.Slot {
	if i >= len(c.deps.Schedule) {
		i = len(c.deps.Schedule) - 1
	}
	return c.deps.Schedule[i]
}

// armLocked starts a fresh countdown, cancelling any previous one.
func (c *Controller) armLocked(seconds int) {
	c.disarmLocked()
	c.timeRemaining = seconds
	stop := make(chan struct{})
	c.stopCountdown = stop
	gen := c.gen

	ticker := c.deps.Clock.NewTicker(time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C():
				c.tick(gen)
			}
		}
	}()
}

func (c *Controller) disarmLocked() {
	if c.stopCountdown != nil {
		close(c.stopCountdown)
		c.stopCountdown = nil
	}
	c.gen++
}

func (c *Controller) publishQuestion(q models.Question, index, seconds int) {
	c.publish(EventQuestion, QuestionEvent{
		Index:         index,
		Total:         c.deps.Schedule.Len(),
		Question:      q.Text,
		Difficulty:    string(q.Difficulty),
		TimeRemaining: seconds,
	})
}

func (c *Controller) publish(t EventType, data any) {
	c.deps.Notifier.Publish(Event{Type: t, CandidateID: c.id, Data: data, At: time.Now()})
}
