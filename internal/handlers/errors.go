package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"crisp/internal/models"
	"crisp/internal/session"
	"crisp/internal/store"
	"crisp/internal/utils"
)

// sessionConflicts are controller errors the client caused by acting out of turn.
var sessionConflicts = []struct {
	err  error
	code string
}{
	{session.ErrInvalidPhase, "invalid_phase"},
	{session.ErrSubmitInFlight, "submit_in_flight"},
	{session.ErrFetchInFlight, "fetch_in_flight"},
	{session.ErrNoQuestion, "no_question"},
	{session.ErrScheduleExhausted, "schedule_exhausted"},
	{session.ErrNotInProgress, "not_in_progress"},
	{session.ErrNotReady, "profile_incomplete"},
	{session.ErrUnansweredSlots, "unanswered_slots"},
	{session.ErrStaleAnswer, "stale_answer"},
	{session.ErrClosed, "session_closed"},
	{session.ErrAlreadyCompleted, "interview_completed"},
	{store.ErrAlreadyCompleted, "interview_completed"},
	{store.ErrInvalidTransition, "invalid_transition"},
	{store.ErrQuestionPending, "question_pending"},
	{store.ErrNoOutstanding, "no_question"},
}

func writeSessionError(w http.ResponseWriter, logger *zap.Logger, err error) {
	if errors.Is(err, store.ErrNotFound) {
		utils.JSONError(w, http.StatusNotFound, "candidate_not_found", "Candidate not found")
		return
	}
	for _, c := range sessionConflicts {
		if errors.Is(err, c.err) {
			utils.JSON(w, http.StatusConflict, models.ErrorResponse{Code: c.code, Message: c.err.Error()})
			return
		}
	}
	if errors.Is(err, session.ErrSubmissionFailed) {
		logger.Error("answer submission failed", zap.Error(err))
		utils.JSONError(w, http.StatusInternalServerError, "submission_failed", session.ErrSubmissionFailed.Error())
		return
	}
	logger.Error("session operation failed", zap.Error(err))
	utils.JSONError(w, http.StatusInternalServerError, "session_error", "Something went wrong, please try again")
}
