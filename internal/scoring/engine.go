// Package scoring validates answer submissions against a test and scores
// them. In commit mode the attempt is persisted in a single transaction; in
// preview mode nothing is written.
package scoring

import (
	"context"
	"time"

	"quizhub_backend/internal/model"
)

type Mode string

const (
	ModeCommit  Mode = "commit"
	ModePreview Mode = "preview"
)

// Catalog is the read side of the test store. GetTest returns
// util.ErrTestNotFound for unknown ids.
type Catalog interface {
	GetTest(ctx context.Context, id uint) (*model.Test, error)
	ListQuestions(ctx context.Context, testID uint) ([]model.Question, error)
	ListChoices(ctx context.Context, questionID uint) ([]model.Choice, error)
}

type AttemptWriter interface {
	CreateAttempt(ctx context.Context, attempt *model.Attempt) error
	CreateAttemptAnswer(ctx context.Context, answer *model.AttemptAnswer) error
	UpdateAttemptScore(ctx context.Context, attemptID uint, score int, percent float64) error
}

// AttemptStore runs fn atomically: if fn returns an error, none of its
// writes are visible.
type AttemptStore interface {
	AttemptWriter
	Transaction(ctx context.Context, fn func(tx AttemptWriter) error) error
}

type Engine struct {
	catalog  Catalog
	attempts AttemptStore
	now      func() time.Time
}

// NewEngine builds an engine. attempts may be nil for a preview-only engine.
func NewEngine(catalog Catalog, attempts AttemptStore) *Engine {
	return &Engine{
		catalog:  catalog,
		attempts: attempts,
		now:      time.Now,
	}
}

// WithClock overrides the time source used for finished_at.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// ScoreSubmission validates sub, scores it and, in commit mode, records the
// attempt for actingUser (nil means anonymous). Validation failures are
// *ValidationError and happen before any write; commit failures are
// *StoreError.
func (e *Engine) ScoreSubmission(ctx context.Context, sub Submission, mode Mode, actingUser *uint) (*Result, error) {
	if mode == ModeCommit && e.attempts == nil {
		return nil, ErrNoAttemptStore
	}

	snap, err := e.validate(ctx, sub)
	if err != nil {
		return nil, err
	}

	res := score(snap)
	if mode != ModeCommit {
		return res, nil
	}

	attemptID, err := e.commit(ctx, res, actingUser)
	if err != nil {
		return nil, &StoreError{Err: err}
	}
	res.AttemptID = &attemptID
	return res, nil
}

func (e *Engine) commit(ctx context.Context, res *Result, actingUser *uint) (uint, error) {
	finishedAt := e.now()
	var attemptID uint

	err := e.attempts.Transaction(ctx, func(tx AttemptWriter) error {
		attempt := &model.Attempt{
			UserID:         actingUser,
			TestID:         res.TestID,
			StartedAt:      finishedAt,
			FinishedAt:     &finishedAt,
			Total:          res.Total,
			FinishedReason: res.FinishedReason,
		}
		if err := tx.CreateAttempt(ctx, attempt); err != nil {
			return err
		}

		for _, r := range res.Results {
			choiceID := r.SelectedChoiceID
			answer := &model.AttemptAnswer{
				AttemptID:  attempt.ID,
				QuestionID: r.QuestionID,
				ChoiceID:   &choiceID,
				IsCorrect:  r.IsCorrect,
			}
			if err := tx.CreateAttemptAnswer(ctx, answer); err != nil {
				return err
			}
		}

		if err := tx.UpdateAttemptScore(ctx, attempt.ID, res.Score, res.Percent); err != nil {
			return err
		}
		attemptID = attempt.ID
		return nil
	})

	return attemptID, err
}
