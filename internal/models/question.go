package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type QuestionSource string

const (
	SourceBank      QuestionSource = "bank"
	SourceGenerated QuestionSource = "generated"
)

type Question struct {
	ID         string         `json:"id" bson:"id"`
	Text       string         `json:"question" bson:"question"`
	Difficulty Difficulty     `json:"difficulty" bson:"difficulty"`
	Type       QuestionType   `json:"type" bson:"type"`
	Source     QuestionSource `json:"source,omitempty" bson:"source,omitempty"`
}

var questionNamespace = uuid.MustParse("6f1c2a8e-3b7d-4c5e-9a10-2d4f6b8c0e12")

// NormalizeQuestionText lowercases and collapses whitespace so that formatting
// differences do not produce distinct questions.
func NormalizeQuestionText(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// QuestionID derives the stable identifier of a question from its text.
func QuestionID(text string) string {
	return uuid.NewSHA1(questionNamespace, []byte(NormalizeQuestionText(text))).String()
}

// NewQuestion builds a text question with its stable id.
func NewQuestion(text string, difficulty Difficulty, source QuestionSource) Question {
	text = strings.TrimSpace(text)
	return Question{
		ID:         QuestionID(text),
		Text:       text,
		Difficulty: difficulty,
		Type:       QuestionTypeText,
		Source:     source,
	}
}

// BankQuestion is a stored entry of the reusable question bank.
type BankQuestion struct {
	ID         string     `json:"id" bson:"_id"`
	Question   string     `json:"question" bson:"question"`
	Difficulty Difficulty `json:"difficulty" bson:"difficulty"`
	CreatedAt  time.Time  `json:"createdAt" bson:"createdAt"`
}
