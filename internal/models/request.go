package models

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct runs tag validation and converts failures into an ErrorResponse.
func validateStruct(code string, s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ErrorResponse{Code: code, Message: err.Error()}
	}
	resp := &ErrorResponse{Code: code, Message: "Request validation failed"}
	for _, fe := range verrs {
		resp.Details = append(resp.Details, ValidationErrorDetail{
			Field:  strings.ToLower(fe.Field()),
			Reason: fe.Tag(),
		})
	}
	return resp
}

type CandidateLoginRequest struct {
	Token string `json:"token"`
}

func (r *CandidateLoginRequest) Validate() error {
	r.Token = strings.TrimSpace(r.Token)
	if r.Token == "" {
		return &ErrorResponse{Code: "missing_token", Message: "Please enter your interview token."}
	}
	return nil
}

type ProfileRequest struct {
	Name       string      `json:"name" validate:"min=2"`
	Email      string      `json:"email" validate:"required,email"`
	Phone      string      `json:"phone" validate:"min=10"`
	ResumeFile *ResumeFile `json:"resumeFile"`
}

func (r *ProfileRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
	return validateStruct("invalid_profile", r)
}

func (r *ProfileRequest) Info() CandidateInfo {
	return CandidateInfo{Name: r.Name, Email: r.Email, Phone: r.Phone, ResumeFile: r.ResumeFile}
}

// AnswerRequest carries the candidate's answer; a nil or blank answer records the timeout sentinel.
// Index, when set, names the question being answered so a late duplicate is rejected.
type AnswerRequest struct {
	Answer *string `json:"answer"`
	Index  *int    `json:"index"`
}

func (r *AnswerRequest) Validate() error {
	if r.Index != nil && *r.Index < 0 {
		return &ErrorResponse{Code: "invalid_index", Message: "index must not be negative"}
	}
	return nil
}

type ResumeRequest struct {
	Text     string `json:"text" validate:"required"`
	FileName string `json:"fileName"`
	Size     int64  `json:"size" validate:"gte=0,lte=10485760"`
}

func (r *ResumeRequest) Validate() error {
	r.Text = strings.TrimSpace(r.Text)
	return validateStruct("invalid_resume", r)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	return validateStruct("invalid_credentials", r)
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=8"`
}

func (r *RegisterRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	return validateStruct("invalid_registration", r)
}

type IssueTokensRequest struct {
	Emails []string `json:"emails" validate:"min=1,dive,email"`
}

func (r *IssueTokensRequest) Validate() error {
	for i, email := range r.Emails {
		r.Emails[i] = strings.ToLower(strings.TrimSpace(email))
	}
	return validateStruct("invalid_emails", r)
}

type CreateQuestionRequest struct {
	Question   string `json:"question" validate:"min=10"`
	Difficulty string `json:"difficulty"`

	parsed Difficulty
}

func (r *CreateQuestionRequest) Validate() error {
	r.Question = strings.TrimSpace(r.Question)
	if err := validateStruct("invalid_question", r); err != nil {
		return err
	}
	d, err := ParseDifficulty(r.Difficulty)
	if err != nil {
		return &ErrorResponse{
			Code:    "invalid_difficulty",
			Message: "Difficulty must be one of: " + strings.Join(ValidDifficultiesList(), ", "),
		}
	}
	r.parsed = d
	return nil
}

func (r *CreateQuestionRequest) ParsedDifficulty() Difficulty { return r.parsed }

type GenerateQuestionSetRequest struct {
	Topic string `json:"topic"`
	Save  bool   `json:"save"`
}

func (r *GenerateQuestionSetRequest) Validate() error {
	r.Topic = strings.TrimSpace(r.Topic)
	if r.Topic == "" {
		r.Topic = DefaultTopic
	}
	return nil
}

type DomainRequest struct {
	Domain string `json:"domain" validate:"min=3,contains=."`
}

func (r *DomainRequest) Validate() error {
	r.Domain = strings.ToLower(strings.TrimSpace(r.Domain))
	return validateStruct("invalid_domain", r)
}
