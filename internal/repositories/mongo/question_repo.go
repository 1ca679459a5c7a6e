package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"crisp/internal/models"
	"crisp/internal/questions"
)

// QuestionRepo wraps the question bank collection.
type QuestionRepo struct{ col *mongo.Collection }

// NewQuestionRepo ensures an index on difficulty.
func NewQuestionRepo(ctx context.Context, c *Client) (*QuestionRepo, error) {
	db, err := c.DB()
	if err != nil {
		return nil, err
	}
	r := &QuestionRepo{col: db.Collection(QuestionsCollection)}
	_, _ = r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "difficulty", Value: 1}},
	})
	return r, nil
}

// ListQuestions returns the bank, newest first; an empty difficulty lists everything.
func (r *QuestionRepo) ListQuestions(ctx context.Context, difficulty models.Difficulty) ([]models.BankQuestion, error) {
	filter := bson.M{}
	if difficulty != "" {
		filter["difficulty"] = string(difficulty)
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.BankQuestion{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a question keyed by its stable id, so the same text cannot
// be stored twice.
func (r *QuestionRepo) Create(ctx context.Context, text string, difficulty models.Difficulty) (*models.BankQuestion, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("question text required")
	}
	q := &models.BankQuestion{
		ID:         models.QuestionID(text),
		Question:   text,
		Difficulty: difficulty,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := r.col.InsertOne(ctx, q); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, questions.ErrQuestionExists
		}
		return nil, err
	}
	return q, nil
}

// CreateMany inserts questions, skipping ones already in the bank. It
// returns the number inserted.
func (r *QuestionRepo) CreateMany(ctx context.Context, qs []models.Question) (int, error) {
	if len(qs) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(qs))
	for _, q := range qs {
		docs = append(docs, models.BankQuestion{ID: q.ID, Question: q.Text, Difficulty: q.Difficulty, CreatedAt: now})
	}
	res, err := r.col.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	inserted := 0
	if res != nil {
		inserted = len(res.InsertedIDs)
	}
	if err != nil && !onlyDuplicates(err) {
		return inserted, err
	}
	return inserted, nil
}

func (r *QuestionRepo) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return questions.ErrQuestionNotFound
	}
	return nil
}

func onlyDuplicates(err error) bool {
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) {
		return false
	}
	if bwe.WriteConcernError != nil {
		return false
	}
	for _, we := range bwe.WriteErrors {
		if we.Code != 11000 {
			return false
		}
	}
	return true
}
