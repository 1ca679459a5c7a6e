package questions

import (
	"context"
	"fmt"

	"crisp/internal/models"
)

// BankLoader reads the stored question bank.
type BankLoader interface {
	ListQuestions(ctx context.Context, difficulty models.Difficulty) ([]models.BankQuestion, error)
}

// Bank is a read-only snapshot of the question bank grouped by difficulty.
type Bank struct {
	byDifficulty map[models.Difficulty][]models.Question
	size         int
}

// NewBank assigns every entry its stable id and drops duplicates and blanks.
func NewBank(entries []models.BankQuestion) *Bank {
	b := &Bank{byDifficulty: make(map[models.Difficulty][]models.Question)}
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if !e.Difficulty.Valid() {
			continue
		}
		q := models.NewQuestion(e.Question, e.Difficulty, models.SourceBank)
		if q.Text == "" {
			continue
		}
		if _, dup := seen[q.ID]; dup {
			continue
		}
		seen[q.ID] = struct{}{}
		b.byDifficulty[q.Difficulty] = append(b.byDifficulty[q.Difficulty], q)
		b.size++
	}
	return b
}

// LoadBank reads every difficulty from loader.
func LoadBank(ctx context.Context, loader BankLoader) (*Bank, error) {
	entries, err := loader.ListQuestions(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("load question bank: %w", err)
	}
	return NewBank(entries), nil
}

// Eligible returns the bank entries of difficulty whose id is not in asked.
func (b *Bank) Eligible(difficulty models.Difficulty, asked map[string]struct{}) []models.Question {
	if b == nil {
		return nil
	}
	var out []models.Question
	for _, q := range b.byDifficulty[difficulty] {
		if _, used := asked[q.ID]; !used {
			out = append(out, q)
		}
	}
	return out
}

func (b *Bank) Len() int {
	if b == nil {
		return 0
	}
	return b.size
}
