package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"quizhub_backend/internal/model"
	"quizhub_backend/internal/repository"
	"quizhub_backend/internal/scoring"
	"quizhub_backend/internal/util"
	"quizhub_backend/pkg/logger"
	"quizhub_backend/pkg/monitoring"
	"quizhub_backend/pkg/tracing"

	"go.uber.org/zap"
)

// SubmitAttemptRequest is the request body for both submit and preview.
// test_id may be sent as a number or a numeric string.
type SubmitAttemptRequest struct {
	TestID         json.Number                `json:"test_id" swaggertype:"integer"`
	FinishedReason string                     `json:"finished_reason" example:"completed"`
	Answers        map[string]json.RawMessage `json:"answers" swaggertype:"object,integer"`
}

// ToSubmission converts the request body. ok is false when test_id is
// present but not a positive integer.
func (r SubmitAttemptRequest) ToSubmission() (scoring.Submission, bool) {
	sub := scoring.Submission{
		FinishedReason: model.FinishedReason(strings.TrimSpace(r.FinishedReason)),
		Answers:        r.Answers,
	}
	if r.TestID != "" {
		id, err := strconv.ParseUint(r.TestID.String(), 10, 64)
		if err != nil || id == 0 {
			return sub, false
		}
		sub.TestID = uint(id)
	}
	return sub, true
}

type AttemptService struct {
	Engine *scoring.Engine
	Repo   *repository.AttemptRepository
}

func NewAttemptService(testRepo *repository.TestRepository, attemptRepo *repository.AttemptRepository) *AttemptService {
	return &AttemptService{
		Engine: scoring.NewEngine(testRepo, attemptRepo),
		Repo:   attemptRepo,
	}
}

// Submit scores and records an attempt for userID.
func (s *AttemptService) Submit(ctx context.Context, sub scoring.Submission, userID uint) (*scoring.Result, error) {
	return s.score(ctx, sub, scoring.ModeCommit, &userID)
}

// Preview scores without writing anything.
func (s *AttemptService) Preview(ctx context.Context, sub scoring.Submission) (*scoring.Result, error) {
	return s.score(ctx, sub, scoring.ModePreview, nil)
}

func (s *AttemptService) score(ctx context.Context, sub scoring.Submission, mode scoring.Mode, userID *uint) (*scoring.Result, error) {
	ctx, span := tracing.StartScoring(ctx, string(mode), sub.TestID, len(sub.Answers))
	defer span.End()

	res, err := s.Engine.ScoreSubmission(ctx, sub, mode, userID)
	if err != nil {
		kind := scoring.KindOf(err)
		if kind == "" {
			kind = "internal"
		}
		monitoring.SubmissionsRejected.WithLabelValues(string(kind)).Inc()
		tracing.RecordRejection(span, string(kind), err)

		if kind == scoring.KindStoreWriteFailure || kind == "internal" {
			logger.Log.Error("Failed to score submission",
				zap.String("mode", string(mode)),
				zap.Uint("test_id", sub.TestID),
				zap.Error(err))
		} else {
			logger.Log.Debug("Submission rejected",
				zap.String("mode", string(mode)),
				zap.Uint("test_id", sub.TestID),
				zap.String("kind", string(kind)),
				zap.Error(err))
		}
		return nil, err
	}

	monitoring.SubmissionsScored.WithLabelValues(string(mode), string(res.FinishedReason)).Inc()
	if mode == scoring.ModeCommit {
		monitoring.ScorePercent.Observe(res.Percent)
		tracing.RecordAttempt(span, *res.AttemptID, res.Score, res.Total)
		logger.Log.Info("Attempt recorded",
			zap.Uint("attempt_id", *res.AttemptID),
			zap.Uint("test_id", res.TestID),
			zap.String("user_id", formatUser(userID)),
			zap.Int("score", res.Score),
			zap.Int("total", res.Total))
	}
	return res, nil
}

func (s *AttemptService) ListAttemptsForUser(ctx context.Context, userID uint) ([]repository.AttemptSummary, error) {
	return s.Repo.ListByUser(ctx, userID)
}

// GetAttempt returns one of the user's own attempts with its answers.
func (s *AttemptService) GetAttempt(ctx context.Context, userID, attemptID uint) (*model.Attempt, error) {
	attempt, err := s.Repo.FindByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID == nil || *attempt.UserID != userID {
		return nil, util.ErrPermissionDenied
	}
	return attempt, nil
}

func formatUser(userID *uint) string {
	if userID == nil {
		return "anonymous"
	}
	return strconv.FormatUint(uint64(*userID), 10)
}
