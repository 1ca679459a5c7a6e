package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"crisp/internal/models"
	"crisp/internal/store"
)

// CandidateRepo persists candidate records, one document per candidate.
type CandidateRepo struct{ col *mongo.Collection }

func NewCandidateRepo(ctx context.Context, c *Client) (*CandidateRepo, error) {
	db, err := c.DB()
	if err != nil {
		return nil, err
	}
	r := &CandidateRepo{col: db.Collection(CandidatesCollection)}

	// dashboard queries filter by company and status
	_, _ = r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "companyDomain", Value: 1}}},
		{Keys: bson.D{{Key: "interview.status", Value: 1}}},
	})
	return r, nil
}

// Upsert merges the record into the stored document with $set, so fields
// written by other tools survive.
func (r *CandidateRepo) Upsert(ctx context.Context, c models.Candidate) error {
	doc, err := setDocument(c)
	if err != nil {
		return err
	}
	opts := options.Update().SetUpsert(true)
	_, err = r.col.UpdateByID(ctx, c.ID, bson.M{"$set": doc}, opts)
	if err != nil {
		return fmt.Errorf("upsert candidate %s: %w", c.ID, err)
	}
	return nil
}

func (r *CandidateRepo) Get(ctx context.Context, id string) (*models.Candidate, error) {
	var c models.Candidate
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	normalize(&c)
	return &c, nil
}

func (r *CandidateRepo) Delete(ctx context.Context, id string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *CandidateRepo) List(ctx context.Context, filter models.CandidateFilter) ([]models.Candidate, error) {
	cur, err := r.col.Find(ctx, buildFilter(filter))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Candidate
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	for i := range out {
		normalize(&out[i])
	}
	return out, nil
}

func buildFilter(f models.CandidateFilter) bson.M {
	q := bson.M{}
	if f.CompanyDomain != nil {
		q["companyDomain"] = *f.CompanyDomain
	}
	if f.Status != "" {
		q["interview.status"] = string(f.Status)
	}
	return q
}

// setDocument flattens the candidate to a bson document without _id, which
// $set must not touch.
func setDocument(c models.Candidate) (bson.M, error) {
	raw, err := bson.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode candidate %s: %w", c.ID, err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("encode candidate %s: %w", c.ID, err)
	}
	delete(doc, "_id")
	return doc, nil
}

// normalize replaces nil slices so decoded records match freshly created ones.
func normalize(c *models.Candidate) {
	if c.Interview.Questions == nil {
		c.Interview.Questions = []models.Question{}
	}
	if c.Interview.Answers == nil {
		c.Interview.Answers = []string{}
	}
	if c.Interview.ChatHistory == nil {
		c.Interview.ChatHistory = []models.ChatMessage{}
	}
}
