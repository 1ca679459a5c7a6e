package models

import (
	"fmt"
	"strconv"
	"strings"
)

type Difficulty string

const (
	Easy   Difficulty = "Easy"
	Medium Difficulty = "Medium"
	Hard   Difficulty = "Hard"
)

// ParseDifficulty accepts any casing and surrounding whitespace.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return Easy, nil
	case "medium":
		return Medium, nil
	case "hard":
		return Hard, nil
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}

func (d Difficulty) Valid() bool {
	return d == Easy || d == Medium || d == Hard
}

func ValidDifficultiesList() []string {
	return []string{string(Easy), string(Medium), string(Hard)}
}

// only free-text questions are asked; the discriminator stays on the wire
type QuestionType string

const QuestionTypeText QuestionType = "text"

// Slot is one fixed position in the interview schedule.
type Slot struct {
	Difficulty Difficulty `json:"difficulty"`
	Duration   int        `json:"duration"` // seconds
}

type Schedule []Slot

// DefaultSchedule is two questions per tier with growing time allowances.
var DefaultSchedule = Schedule{
	{Difficulty: Easy, Duration: 20},
	{Difficulty: Easy, Duration: 20},
	{Difficulty: Medium, Duration: 60},
	{Difficulty: Medium, Duration: 60},
	{Difficulty: Hard, Duration: 120},
	{Difficulty: Hard, Duration: 120},
}

// ParseSchedule reads "easy:20,easy:20,medium:60" style definitions.
func ParseSchedule(raw string) (Schedule, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty schedule")
	}
	var schedule Schedule
	for _, part := range strings.Split(raw, ",") {
		fields := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("slot %q must look like difficulty:seconds", part)
		}
		difficulty, err := ParseDifficulty(fields[0])
		if err != nil {
			return nil, err
		}
		seconds, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil || seconds <= 0 {
			return nil, fmt.Errorf("slot %q has an invalid duration", part)
		}
		schedule = append(schedule, Slot{Difficulty: difficulty, Duration: seconds})
	}
	return schedule, nil
}

func (s Schedule) Len() int { return len(s) }

const (
	// TimeoutAnswer is recorded when a slot expires without input.
	TimeoutAnswer = "Time's up! No answer provided."
	// FinalizingMessage is appended once before the summary is requested.
	FinalizingMessage = "Thank you for completing the interview. I am now generating your performance summary..."
	// FallbackSummary is stored when summary generation fails.
	FallbackSummary = "Could not generate summary."
	DefaultTopic    = "full stack"
)
