package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"crisp/internal/models"
)

func newTestStore(t *testing.T) (*Store, *MemoryRepository, *Outbox) {
	t.Helper()
	repo := NewMemoryRepository()
	outbox := NewOutbox(repo, nil, zap.NewNop())
	return New(repo, outbox, zap.NewNop()), repo, outbox
}

func readyCandidate(t *testing.T, s *Store) models.Candidate {
	t.Helper()
	domain := "acme.io"
	c := s.Create(" Ada@Acme.io ", &domain)
	_, err := s.UpdateInfo(c.ID, models.CandidateInfo{Name: "Ada", Email: "ada@acme.io", Phone: "5551234567"})
	require.NoError(t, err)
	c, err = s.SetStatus(c.ID, models.StatusReadyToStart)
	require.NoError(t, err)
	return c
}

func TestCreateAndGetReturnCopies(t *testing.T) {
	s, _, _ := newTestStore(t)
	c := s.Create("Ada@Acme.io", nil)

	assert.Equal(t, "ada@acme.io", c.Email)
	assert.Equal(t, models.StatusCollectingInfo, c.Interview.Status)

	got, ok := s.Get(c.ID)
	require.True(t, ok)
	got.Interview.ChatHistory = append(got.Interview.ChatHistory, models.ChatMessage{Role: models.RoleUser, Content: "x"})

	again, _ := s.Get(c.ID)
	assert.Empty(t, again.Interview.ChatHistory, "callers must not share slices with the store")
}

func TestStatusOnlyMovesForward(t *testing.T) {
	s, _, _ := newTestStore(t)
	c := readyCandidate(t, s)

	_, err := s.SetStatus(c.ID, models.StatusCollectingInfo)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	c, err = s.StartInterview(c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, c.Interview.Status)
	assert.NotNil(t, c.Interview.StartTime)

	_, err = s.StartInterview(c.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAddQuestionAndRecordAnswerKeepInvariants(t *testing.T) {
	s, _, _ := newTestStore(t)
	c := readyCandidate(t, s)
	_, err := s.AddQuestion(c.ID, models.NewQuestion("Q1?", models.Easy, models.SourceBank))
	assert.ErrorIs(t, err, ErrInvalidTransition, "questions only while in progress")

	_, err = s.StartInterview(c.ID)
	require.NoError(t, err)

	_, err = s.RecordAnswer(c.ID, "early")
	assert.ErrorIs(t, err, ErrNoOutstanding)

	c, err = s.AddQuestion(c.ID, models.NewQuestion("Q1?", models.Easy, models.SourceBank))
	require.NoError(t, err)
	require.Len(t, c.Interview.ChatHistory, 1)
	assert.Equal(t, models.ChatMessage{Role: models.RoleAssistant, Content: "Q1?"}, c.Interview.ChatHistory[0])

	_, err = s.AddQuestion(c.ID, models.NewQuestion("Q2?", models.Easy, models.SourceBank))
	assert.ErrorIs(t, err, ErrQuestionPending)

	c, err = s.RecordAnswer(c.ID, "A1")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Interview.CurrentQuestionIndex)
	assert.Equal(t, []string{"A1"}, c.Interview.Answers)
	assert.Equal(t, models.ChatMessage{Role: models.RoleUser, Content: "A1"}, c.Interview.ChatHistory[1])
	assert.Equal(t, len(c.Interview.Answers), c.Interview.CurrentQuestionIndex)
}

func TestAppendChatOnceAndCompleteAreIdempotent(t *testing.T) {
	s, _, _ := newTestStore(t)
	c := readyCandidate(t, s)
	_, err := s.StartInterview(c.ID)
	require.NoError(t, err)

	msg := models.ChatMessage{Role: models.RoleAssistant, Content: models.FinalizingMessage}
	_, appended, err := s.AppendChatOnce(c.ID, msg)
	require.NoError(t, err)
	assert.True(t, appended)
	c, appended, err = s.AppendChatOnce(c.ID, msg)
	require.NoError(t, err)
	assert.False(t, appended)
	assert.Len(t, c.Interview.ChatHistory, 1)

	c, applied, err := s.Complete(c.ID, "Great", 88)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, models.StatusCompleted, c.Interview.Status)
	require.NotNil(t, c.Interview.EndTime)

	c, applied, err = s.Complete(c.ID, "Other", 1)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, 88, *c.Interview.Score)
	assert.Equal(t, "Great", *c.Interview.Summary)
}

func TestStartOverKeepsEmailAndCompany(t *testing.T) {
	s, _, _ := newTestStore(t)
	c := readyCandidate(t, s)
	_, err := s.StartInterview(c.ID)
	require.NoError(t, err)
	_, err = s.AddQuestion(c.ID, models.NewQuestion("Q1?", models.Easy, models.SourceBank))
	require.NoError(t, err)

	c, err = s.StartOver(c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCollectingInfo, c.Interview.Status)
	assert.Empty(t, c.Interview.Questions)
	assert.Empty(t, c.Name)
	assert.Equal(t, "ada@acme.io", c.Email)
	require.NotNil(t, c.CompanyDomain)
	assert.Equal(t, "acme.io", *c.CompanyDomain)
}

func TestStartOverRefusesCompletedInterview(t *testing.T) {
	s, _, _ := newTestStore(t)
	c := readyCandidate(t, s)
	_, err := s.StartInterview(c.ID)
	require.NoError(t, err)
	_, _, err = s.Complete(c.ID, "Done", 55)
	require.NoError(t, err)

	_, err = s.StartOver(c.ID)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)

	got, _ := s.Get(c.ID)
	assert.Equal(t, models.StatusCompleted, got.Interview.Status)
	assert.Equal(t, 55, *got.Interview.Score)
	assert.Equal(t, "Ada", got.Name)
}

func TestMutationsReachRepositoryThroughOutbox(t *testing.T) {
	s, repo, outbox := newTestStore(t)
	c := readyCandidate(t, s)

	// three mutations coalesce into one pending write
	assert.Equal(t, 1, outbox.Pending())
	assert.Zero(t, outbox.Flush(context.Background()))

	stored, err := repo.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReadyToStart, stored.Interview.Status)
	assert.Equal(t, 1, repo.Upserts())
}

func TestLoadFallsBackToRepository(t *testing.T) {
	s, repo, _ := newTestStore(t)
	remote := models.Candidate{ID: "remote-1", Email: "r@acme.io", Interview: models.NewInterviewRecord(models.StatusInProgress)}
	require.NoError(t, repo.Upsert(context.Background(), remote))

	got, err := s.Load(context.Background(), "remote-1")
	require.NoError(t, err)
	assert.Equal(t, "r@acme.io", got.Email)

	_, ok := s.Get("remote-1")
	assert.True(t, ok, "loaded records are cached")

	_, err = s.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListMergesMemoryAndRepository(t *testing.T) {
	s, repo, _ := newTestStore(t)
	acme := "acme.io"
	other := "other.io"
	require.NoError(t, repo.Upsert(context.Background(), models.Candidate{ID: "old", CompanyDomain: &acme, Interview: models.NewInterviewRecord(models.StatusCompleted), CreatedAt: time.Now().Add(-time.Hour)}))
	require.NoError(t, repo.Upsert(context.Background(), models.Candidate{ID: "foreign", CompanyDomain: &other, Interview: models.NewInterviewRecord(models.StatusCompleted)}))
	fresh := s.Create("new@acme.io", &acme)

	got, err := s.List(context.Background(), models.CandidateFilter{CompanyDomain: &acme})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "old", got[0].ID)
	assert.Equal(t, fresh.ID, got[1].ID)

	got, err = s.List(context.Background(), models.CandidateFilter{CompanyDomain: &acme, Status: models.StatusCompleted})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "old", got[0].ID)
}

func TestDeleteBypassesOutbox(t *testing.T) {
	s, repo, outbox := newTestStore(t)
	c := s.Create("gone@acme.io", nil)
	outbox.Flush(context.Background())
	_, err := s.UpdateInfo(c.ID, models.CandidateInfo{Name: "Gone", Email: "gone@acme.io", Phone: "5551234567"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(context.Background(), c.ID))
	assert.Zero(t, outbox.Pending())
	outbox.Flush(context.Background())

	_, err = repo.Get(context.Background(), c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, ok := s.Get(c.ID)
	assert.False(t, ok)

	_, err = s.UpdateInfo(c.ID, models.CandidateInfo{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWatchReceivesEveryChange(t *testing.T) {
	s, _, _ := newTestStore(t)
	var mu sync.Mutex
	var seen []models.InterviewStatus
	s.Watch(func(c models.Candidate) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, c.Interview.Status)
	})

	readyCandidate(t, s)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []models.InterviewStatus{
		models.StatusCollectingInfo,
		models.StatusCollectingInfo,
		models.StatusReadyToStart,
	}, seen)
}

func TestConcurrentMutationsKeepLatestVersion(t *testing.T) {
	s, repo, outbox := newTestStore(t)
	c := readyCandidate(t, s)
	_, err := s.StartInterview(c.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.AddChatMessage(c.ID, models.ChatMessage{Role: models.RoleUser, Content: "hi"})
		}()
	}
	wg.Wait()
	outbox.Flush(context.Background())

	stored, err := repo.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Interview.ChatHistory, 20)
}

var errRepoDown = errors.New("repository unavailable")
