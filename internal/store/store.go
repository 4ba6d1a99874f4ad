// Package store persists finished evaluations.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/domain"
)

// ErrNotFound indicates that no record exists for an ID.
var ErrNotFound = errors.New("evaluation record not found")

var validate = validator.New(validator.WithRequiredStructEnabled())

// EvaluationRecord is a stored evaluation. Score is the "X/Y" total of the
// report.
type EvaluationRecord struct {
	ID        string    `json:"id" validate:"required"`
	FileName  string    `json:"file_name"`
	Markdown  string    `json:"markdown" validate:"required"`
	Score     string    `json:"score" validate:"required"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at" validate:"required"`
}

// Validate checks that the record can be stored.
func (r *EvaluationRecord) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)
	}
	return nil
}

// NewRecord builds a record for a finished evaluation, assigning a fresh ID
// when res has none.
func NewRecord(res domain.EvaluationResult, fileName, userID string) EvaluationRecord {
	id := res.ID
	if id == "" {
		id = uuid.NewString()
	}
	created := res.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return EvaluationRecord{
		ID:        id,
		FileName:  fileName,
		Markdown:  res.Markdown,
		Score:     res.Report.ScoreLabel(),
		UserID:    userID,
		CreatedAt: created,
	}
}

// Store saves and retrieves evaluation records. Implementations must be
// safe for concurrent use.
type Store interface {
	Save(ctx context.Context, rec EvaluationRecord) error
	Get(ctx context.Context, id string) (EvaluationRecord, error)
	// List returns records newest first. An empty userID lists every record.
	List(ctx context.Context, userID string) ([]EvaluationRecord, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
