package model

import (
	"time"
)

type FinishedReason string

const (
	FinishedCompleted FinishedReason = "completed"
	FinishedTimeout   FinishedReason = "timeout"
)

func (r FinishedReason) Valid() bool {
	return r == FinishedCompleted || r == FinishedTimeout
}

// swagger:model Attempt
type Attempt struct {
	ID             uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         *uint           `gorm:"index" json:"user_id"` // nil for anonymous attempts
	TestID         uint            `gorm:"index;not null" json:"test_id"`
	Test           *Test           `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	StartedAt      time.Time       `gorm:"not null" json:"started_at"`
	FinishedAt     *time.Time      `gorm:"index" json:"finished_at"`
	Score          int             `gorm:"not null;default:0" json:"score"`
	Total          int             `gorm:"not null;default:0" json:"total"`
	Percent        float64         `gorm:"not null;default:0" json:"percent"`
	FinishedReason FinishedReason  `gorm:"size:20;not null" json:"finished_reason"`
	Answers        []AttemptAnswer `gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE" json:"answers,omitempty"`
}

func (Attempt) TableName() string {
	return "attempts"
}

// swagger:model AttemptAnswer
type AttemptAnswer struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	AttemptID  uint      `gorm:"not null;uniqueIndex:uniq_attempt_question" json:"attempt_id"`
	QuestionID uint      `gorm:"not null;uniqueIndex:uniq_attempt_question;index" json:"question_id"`
	Question   *Question `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	// ChoiceID is cleared when the choice is deleted; the answer row survives.
	ChoiceID  *uint   `gorm:"index" json:"choice_id"`
	Choice    *Choice `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	IsCorrect bool    `gorm:"not null" json:"is_correct"`
}

func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}

// All returns every model managed by AutoMigrate, parents first.
func All() []interface{} {
	return []interface{}{
		&Test{},
		&Question{},
		&Choice{},
		&Attempt{},
		&AttemptAnswer{},
	}
}
