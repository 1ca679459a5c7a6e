package mongo

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"crisp/internal/models"
)

func TestBuildFilter(t *testing.T) {
	if got := buildFilter(models.CandidateFilter{}); len(got) != 0 {
		t.Fatalf("expected empty filter, got %v", got)
	}

	domain := "acme.io"
	got := buildFilter(models.CandidateFilter{CompanyDomain: &domain, Status: models.StatusCompleted})
	if got["companyDomain"] != "acme.io" {
		t.Fatalf("expected companyDomain filter, got %v", got)
	}
	if got["interview.status"] != "COMPLETED" {
		t.Fatalf("expected status filter, got %v", got)
	}
}

func TestSetDocumentOmitsID(t *testing.T) {
	c := models.Candidate{
		ID:        "c-1",
		Name:      "Ada",
		Email:     "ada@acme.io",
		Interview: models.NewInterviewRecord(models.StatusInProgress),
	}
	doc, err := setDocument(c)
	if err != nil {
		t.Fatalf("setDocument returned error: %v", err)
	}
	if _, ok := doc["_id"]; ok {
		t.Fatalf("expected _id to be stripped")
	}
	if doc["name"] != "Ada" {
		t.Fatalf("expected name field, got %v", doc["name"])
	}
	interview, ok := doc["interview"].(bson.M)
	if !ok {
		t.Fatalf("expected nested interview document, got %T", doc["interview"])
	}
	if interview["status"] != "IN_PROGRESS" {
		t.Fatalf("expected interview status, got %v", interview["status"])
	}
}

func TestNormalizeFillsSlices(t *testing.T) {
	var c models.Candidate
	normalize(&c)
	if c.Interview.Questions == nil || c.Interview.Answers == nil || c.Interview.ChatHistory == nil {
		t.Fatalf("expected slices to be non-nil")
	}
}

func TestOnlyDuplicates(t *testing.T) {
	dup := mongo.BulkWriteException{WriteErrors: []mongo.BulkWriteError{{WriteError: mongo.WriteError{Code: 11000}}}}
	if !onlyDuplicates(dup) {
		t.Fatalf("expected duplicate-only bulk error to be ignored")
	}
	mixed := mongo.BulkWriteException{WriteErrors: []mongo.BulkWriteError{
		{WriteError: mongo.WriteError{Code: 11000}},
		{WriteError: mongo.WriteError{Code: 121}},
	}}
	if onlyDuplicates(mixed) {
		t.Fatalf("expected mixed bulk error to surface")
	}
	if onlyDuplicates(errors.New("network")) {
		t.Fatalf("expected plain errors to surface")
	}
}

func TestNewClientRequiresURI(t *testing.T) {
	if _, err := NewClient(context.Background(), "", "crisp"); err == nil {
		t.Fatalf("expected error for empty uri")
	}
	var c *Client
	if _, err := c.DB(); err == nil {
		t.Fatalf("expected error from nil client")
	}
	if err := c.Disconnect(context.Background()); err != nil {
		t.Fatalf("expected nil client disconnect to be a no-op, got %v", err)
	}
}
