package repository

import (
	"context"
	"time"

	"quizhub_backend/internal/model"
	"quizhub_backend/internal/scoring"
	"quizhub_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) CreateAttempt(ctx context.Context, attempt *model.Attempt) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(attempt).Error
}

func (r *AttemptRepository) CreateAttemptAnswer(ctx context.Context, answer *model.AttemptAnswer) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(answer).Error
}

func (r *AttemptRepository) UpdateAttemptScore(ctx context.Context, attemptID uint, score int, percent float64) error {
	res := r.DB.WithContext(ctx).Model(&model.Attempt{}).
		Where("id = ?", attemptID).
		Updates(map[string]interface{}{"score": score, "percent": percent})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// drivers that count changed rows report 0 when the score is already 0
	var count int64
	if err := r.DB.WithContext(ctx).Model(&model.Attempt{}).Where("id = ?", attemptID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return util.ErrAttemptNotFound
	}
	return nil
}

// Transaction runs fn against a repository bound to a single database
// transaction.
func (r *AttemptRepository) Transaction(ctx context.Context, fn func(tx scoring.AttemptWriter) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&AttemptRepository{DB: tx})
	})
}

type AttemptSummary struct {
	ID             uint                 `json:"id"`
	TestID         uint                 `json:"test"`
	TestTitle      string               `json:"test_title"`
	StartedAt      time.Time            `json:"started_at"`
	FinishedAt     *time.Time           `json:"finished_at"`
	Score          int                  `json:"score"`
	Total          int                  `json:"total"`
	Percent        float64              `json:"percent"`
	FinishedReason model.FinishedReason `json:"finished_reason"`
}

// ListByUser returns the user's attempts, newest first. Unfinished attempts
// sort last and equal timestamps fall back to id.
func (r *AttemptRepository) ListByUser(ctx context.Context, userID uint) ([]AttemptSummary, error) {
	rows := []AttemptSummary{}
	err := r.DB.WithContext(ctx).Table("attempts a").
		Select("a.id, a.test_id, t.title as test_title, a.started_at, a.finished_at, " +
			"a.score, a.total, a.percent, a.finished_reason").
		Joins("JOIN tests t ON t.id = a.test_id").
		Where("a.user_id = ?", userID).
		Order("CASE WHEN a.finished_at IS NULL THEN 1 ELSE 0 END, a.finished_at desc, a.id desc").
		Scan(&rows).Error
	return rows, err
}

func (r *AttemptRepository) FindByID(ctx context.Context, id uint) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.DB.WithContext(ctx).Preload("Answers", func(db *gorm.DB) *gorm.DB {
		return db.Order("id asc")
	}).First(&attempt, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, util.ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}
