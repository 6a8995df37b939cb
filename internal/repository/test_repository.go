package repository

import (
	"context"
	"errors"
	"time"

	"quizhub_backend/internal/model"
	"quizhub_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TestRepository struct {
	DB *gorm.DB
}

func NewTestRepository(db *gorm.DB) *TestRepository {
	return &TestRepository{DB: db}
}

func (r *TestRepository) GetTest(ctx context.Context, id uint) (*model.Test, error) {
	var test model.Test
	err := r.DB.WithContext(ctx).First(&test, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrTestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &test, nil
}

func (r *TestRepository) ListQuestions(ctx context.Context, testID uint) ([]model.Question, error) {
	var qs []model.Question
	err := r.DB.WithContext(ctx).
		Where("test_id = ?", testID).
		Order("sort_order asc, id asc").
		Find(&qs).Error
	return qs, err
}

func (r *TestRepository) ListChoices(ctx context.Context, questionID uint) ([]model.Choice, error) {
	var cs []model.Choice
	err := r.DB.WithContext(ctx).
		Where("question_id = ?", questionID).
		Order("id asc").
		Find(&cs).Error
	return cs, err
}

type TestListRow struct {
	ID             uint      `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	QuestionsCount int       `json:"questions_count"`
	CreatedAt      time.Time `json:"created_at"`
}

func (r *TestRepository) ListTests(ctx context.Context) ([]TestListRow, error) {
	var rows []TestListRow
	err := r.DB.WithContext(ctx).Table("tests t").
		Select("t.id, t.title, t.description, t.created_at, " +
			"(SELECT COUNT(*) FROM questions q WHERE q.test_id = t.id) as questions_count").
		Order("t.id asc").
		Scan(&rows).Error
	if rows == nil {
		rows = []TestListRow{}
	}
	return rows, err
}

// GetTestDetail loads a test with its questions in test order and each
// question's choices in id order.
func (r *TestRepository) GetTestDetail(ctx context.Context, id uint) (*model.Test, error) {
	var test model.Test
	err := r.DB.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order asc, id asc")
		}).
		Preload("Questions.Choices", func(db *gorm.DB) *gorm.DB {
			return db.Order("id asc")
		}).
		First(&test, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrTestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &test, nil
}

func (r *TestRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Test{}).Count(&count).Error
	return count, err
}

// CreateCatalog inserts tests with their nested questions and choices in one
// transaction, keeping any explicit ids.
func (r *TestRepository) CreateCatalog(ctx context.Context, tests []model.Test) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range tests {
			test := &tests[i]
			if err := tx.Omit(clause.Associations).Create(test).Error; err != nil {
				return err
			}
			for j := range test.Questions {
				q := &test.Questions[j]
				q.TestID = test.ID
				if err := tx.Omit(clause.Associations).Create(q).Error; err != nil {
					return err
				}
				for k := range q.Choices {
					c := &q.Choices[k]
					c.QuestionID = q.ID
					if err := tx.Create(c).Error; err != nil {
						return err
					}
				}
			}
		}
		if tx.Dialector.Name() == "postgres" {
			return resetSequences(tx, "tests", "questions", "choices")
		}
		return nil
	})
}

// resetSequences moves postgres serial sequences past ids inserted explicitly.
func resetSequences(tx *gorm.DB, tables ...string) error {
	for _, t := range tables {
		sql := "SELECT setval(pg_get_serial_sequence('" + t + "', 'id'), COALESCE(MAX(id), 1)) FROM " + t
		if err := tx.Exec(sql).Error; err != nil {
			return err
		}
	}
	return nil
}
