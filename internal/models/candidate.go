package models

import (
	"fmt"
	"strings"
	"time"
)

type InterviewStatus string

const (
	StatusCollectingInfo InterviewStatus = "COLLECTING_INFO"
	StatusReadyToStart   InterviewStatus = "READY_TO_START"
	StatusInProgress     InterviewStatus = "IN_PROGRESS"
	StatusCompleted      InterviewStatus = "COMPLETED"
)

var statusRank = map[InterviewStatus]int{
	StatusCollectingInfo: 0,
	StatusReadyToStart:   1,
	StatusInProgress:     2,
	StatusCompleted:      3,
}

// ParseInterviewStatus accepts a status name in any case.
func ParseInterviewStatus(s string) (InterviewStatus, error) {
	status := InterviewStatus(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := statusRank[status]; !ok {
		return "", fmt.Errorf("unknown interview status %q", s)
	}
	return status, nil
}

// CanAdvanceTo reports whether moving from s to next is a forward (or same) step.
// The start-over reset is handled separately.
func (s InterviewStatus) CanAdvanceTo(next InterviewStatus) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to >= from
}

type Role string

const (
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

type ChatMessage struct {
	Role    Role   `json:"role" bson:"role"`
	Content string `json:"content" bson:"content"`
}

type InterviewRecord struct {
	Status               InterviewStatus `json:"status" bson:"status"`
	Questions            []Question      `json:"questions" bson:"questions"`
	Answers              []string        `json:"answers" bson:"answers"`
	CurrentQuestionIndex int             `json:"currentQuestionIndex" bson:"currentQuestionIndex"`
	Score                *int            `json:"score" bson:"score"`
	Summary              *string         `json:"summary" bson:"summary"`
	StartTime            *time.Time      `json:"startTime" bson:"startTime"`
	EndTime              *time.Time      `json:"endTime" bson:"endTime"`
	ChatHistory          []ChatMessage   `json:"chatHistory" bson:"chatHistory"`
}

// NewInterviewRecord returns an empty record in the given status.
func NewInterviewRecord(status InterviewStatus) InterviewRecord {
	return InterviewRecord{
		Status:      status,
		Questions:   []Question{},
		Answers:     []string{},
		ChatHistory: []ChatMessage{},
	}
}

// Outstanding reports whether a question is waiting for its answer.
func (r *InterviewRecord) Outstanding() bool {
	return len(r.Questions) == len(r.Answers)+1
}

// AskedIDs returns the ids of every question asked so far.
func (r *InterviewRecord) AskedIDs() map[string]struct{} {
	asked := make(map[string]struct{}, len(r.Questions))
	for _, q := range r.Questions {
		asked[q.ID] = struct{}{}
	}
	return asked
}

// CurrentQuestion returns the outstanding question, if any.
func (r *InterviewRecord) CurrentQuestion() (Question, bool) {
	if !r.Outstanding() {
		return Question{}, false
	}
	return r.Questions[len(r.Questions)-1], true
}

type ResumeFile struct {
	Name string `json:"name" bson:"name"`
	Size int64  `json:"size" bson:"size"`
}

type Candidate struct {
	ID            string          `json:"id" bson:"_id"`
	Name          string          `json:"name" bson:"name"`
	Email         string          `json:"email" bson:"email"`
	Phone         string          `json:"phone" bson:"phone"`
	ResumeFile    *ResumeFile     `json:"resumeFile" bson:"resumeFile"`
	Interview     InterviewRecord `json:"interview" bson:"interview"`
	CompanyDomain *string         `json:"companyDomain" bson:"companyDomain"`
	CreatedAt     time.Time       `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt" bson:"updatedAt"`
}

// Clone deep-copies the candidate so callers never share slices with the store.
func (c *Candidate) Clone() Candidate {
	out := *c
	if c.ResumeFile != nil {
		rf := *c.ResumeFile
		out.ResumeFile = &rf
	}
	if c.CompanyDomain != nil {
		d := *c.CompanyDomain
		out.CompanyDomain = &d
	}
	out.Interview = c.Interview.clone()
	return out
}

func (r InterviewRecord) clone() InterviewRecord {
	out := r
	out.Questions = append([]Question{}, r.Questions...)
	out.Answers = append([]string{}, r.Answers...)
	out.ChatHistory = append([]ChatMessage{}, r.ChatHistory...)
	if r.Score != nil {
		s := *r.Score
		out.Score = &s
	}
	if r.Summary != nil {
		s := *r.Summary
		out.Summary = &s
	}
	if r.StartTime != nil {
		t := *r.StartTime
		out.StartTime = &t
	}
	if r.EndTime != nil {
		t := *r.EndTime
		out.EndTime = &t
	}
	return out
}

// CandidateInfo is the onboarding profile.
type CandidateInfo struct {
	Name       string      `json:"name"`
	Email      string      `json:"email"`
	Phone      string      `json:"phone"`
	ResumeFile *ResumeFile `json:"resumeFile"`
}

// CandidateFilter narrows List queries by field equality.
type CandidateFilter struct {
	CompanyDomain *string
	Status        InterviewStatus
}
