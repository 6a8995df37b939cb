package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"quizhub_backend/internal/repository"
	"quizhub_backend/internal/scoring"
	"quizhub_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	catalogKeyPrefix = "quizhub:catalog:"
	catalogListKey   = catalogKeyPrefix + "list"
)

type ChoiceView struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

type QuestionView struct {
	ID              uint         `json:"id"`
	Text            string       `json:"text"`
	Order           uint         `json:"order"`
	Choices         []ChoiceView `json:"choices"`
	CorrectChoiceID *uint        `json:"correct_choice_id"`
}

type TestDetail struct {
	ID          uint           `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Questions   []QuestionView `json:"questions"`
}

// TestService serves the public catalog. Reads go through Redis when a
// client is configured; the scoring engine never reads from this cache.
type TestService struct {
	Repo  *repository.TestRepository
	Redis *redis.Client
	TTL   time.Duration
}

func NewTestService(repo *repository.TestRepository, rdb *redis.Client, ttl time.Duration) *TestService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TestService{Repo: repo, Redis: rdb, TTL: ttl}
}

func (s *TestService) ListTests(ctx context.Context) ([]repository.TestListRow, error) {
	var rows []repository.TestListRow
	if s.getCached(ctx, catalogListKey, &rows) {
		return rows, nil
	}

	rows, err := s.Repo.ListTests(ctx)
	if err != nil {
		return nil, err
	}

	s.setCached(ctx, catalogListKey, rows)
	return rows, nil
}

func (s *TestService) GetTestDetail(ctx context.Context, id uint) (*TestDetail, error) {
	key := fmt.Sprintf("%sdetail:%d", catalogKeyPrefix, id)

	var detail TestDetail
	if s.getCached(ctx, key, &detail) {
		return &detail, nil
	}

	test, err := s.Repo.GetTestDetail(ctx, id)
	if err != nil {
		return nil, err
	}

	detail = TestDetail{
		ID:          test.ID,
		Title:       test.Title,
		Description: test.Description,
		Questions:   make([]QuestionView, 0, len(test.Questions)),
	}
	for _, q := range test.Questions {
		qv := QuestionView{
			ID:              q.ID,
			Text:            q.Text,
			Order:           q.Order,
			Choices:         make([]ChoiceView, 0, len(q.Choices)),
			CorrectChoiceID: scoring.CanonicalCorrectChoice(q.Choices),
		}
		for _, c := range q.Choices {
			qv.Choices = append(qv.Choices, ChoiceView{ID: c.ID, Text: c.Text})
		}
		detail.Questions = append(detail.Questions, qv)
	}

	s.setCached(ctx, key, detail)
	return &detail, nil
}

// Invalidate drops every cached catalog entry.
func (s *TestService) Invalidate(ctx context.Context) {
	if s.Redis == nil {
		return
	}

	iter := s.Redis.Scan(ctx, 0, catalogKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logger.Log.Warn("catalog cache scan failed", zap.Error(err))
		return
	}
	if len(keys) > 0 {
		if err := s.Redis.Del(ctx, keys...).Err(); err != nil {
			logger.Log.Warn("catalog cache invalidation failed", zap.Error(err))
		}
	}
}

func (s *TestService) getCached(ctx context.Context, key string, dst interface{}) bool {
	if s.Redis == nil {
		return false
	}

	val, err := s.Redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		logger.Log.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}

	if err := json.Unmarshal([]byte(val), dst); err != nil {
		logger.Log.Warn("catalog cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *TestService) setCached(ctx context.Context, key string, v interface{}) {
	if s.Redis == nil {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.Redis.Set(ctx, key, data, s.TTL).Err(); err != nil {
		logger.Log.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
}
