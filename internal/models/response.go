package models

// uniform error responses
type ErrorResponse struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Details []ValidationErrorDetail `json:"details,omitempty"`
}

func (e *ErrorResponse) Error() string {
	return e.Message
}

// single field validation error
type ValidationErrorDetail struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// GenerationResponse is the raw text returned by an LLM provider.
type GenerationResponse struct {
	Content   string             `json:"content"`
	RequestID string             `json:"request_id"`
	Metadata  GenerationMetadata `json:"metadata"`
}

type GenerationMetadata struct {
	ProcessingTime int    `json:"processing_time_ms"`
	Provider       string `json:"provider"`
	Model          string `json:"model"`
}

// PerformanceSummary is the outcome of summary generation.
type PerformanceSummary struct {
	FinalScore int    `json:"finalScore"`
	Summary    string `json:"summary"`
}

// ParsedResume holds contact details extracted from a resume.
type ParsedResume struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// MissingInfo is a parsed resume plus a prompt asking for what is still missing.
type MissingInfo struct {
	ParsedResume
	MissingFieldsPrompt string `json:"missingFieldsPrompt,omitempty"`
}

type CandidateLoginResponse struct {
	AccessToken string    `json:"accessToken"`
	Resumed     bool      `json:"resumed"`
	Candidate   Candidate `json:"candidate"`
}

type AuthResponse struct {
	Token string      `json:"token"`
	Email string      `json:"email"`
	Role  AccountRole `json:"role"`
}

type CandidatesResponse struct {
	Total int         `json:"total"`
	Items []Candidate `json:"items"`
}

type QuestionsResponse struct {
	Total int            `json:"total"`
	Items []BankQuestion `json:"items"`
}

type IssuedToken struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

type IssueTokensResponse struct {
	Issued  []IssuedToken `json:"issued"`
	Skipped []string      `json:"skipped"`
}

type GeneratedQuestionSet struct {
	Topic     string     `json:"topic"`
	Questions []Question `json:"questions"`
	Saved     int        `json:"saved"`
}
