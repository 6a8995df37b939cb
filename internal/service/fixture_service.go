package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"quizhub_backend/internal/model"
	"quizhub_backend/internal/repository"
	"quizhub_backend/internal/util"
	"quizhub_backend/pkg/logger"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// FixtureChoice, FixtureQuestion and FixtureTest describe the nested catalog
// file format. Ids are optional; when present they are kept.
type FixtureChoice struct {
	ID        uint   `json:"id" yaml:"id"`
	Text      string `json:"text" yaml:"text"`
	IsCorrect bool   `json:"is_correct" yaml:"is_correct"`
}

type FixtureQuestion struct {
	ID      uint            `json:"id" yaml:"id"`
	Text    string          `json:"text" yaml:"text"`
	Order   uint            `json:"order" yaml:"order"`
	Choices []FixtureChoice `json:"choices" yaml:"choices"`
}

type FixtureTest struct {
	ID          uint              `json:"id" yaml:"id"`
	Title       string            `json:"title" yaml:"title"`
	Description string            `json:"description" yaml:"description"`
	Questions   []FixtureQuestion `json:"questions" yaml:"questions"`
}

// decodeFixtures reads YAML for .yaml/.yml objects and JSON otherwise.
func decodeFixtures(name string, r io.Reader) ([]FixtureTest, error) {
	var fixtures []FixtureTest
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.NewDecoder(r).Decode(&fixtures); err != nil && err != io.EOF {
			return nil, err
		}
	default:
		if err := json.NewDecoder(r).Decode(&fixtures); err != nil {
			return nil, err
		}
	}
	return fixtures, nil
}

type FixtureService struct {
	Repo    *repository.TestRepository
	Storage *StorageService
	Catalog *TestService
}

func NewFixtureService(repo *repository.TestRepository, storage *StorageService, catalog *TestService) *FixtureService {
	return &FixtureService{Repo: repo, Storage: storage, Catalog: catalog}
}

// LoadIfEmpty loads the named fixture object into an empty catalog. It
// returns util.ErrFixturesLoaded when any test already exists.
func (s *FixtureService) LoadIfEmpty(ctx context.Context, name string) (int, error) {
	count, err := s.Repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, util.ErrFixturesLoaded
	}

	rc, err := s.Storage.Open(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("open fixtures %s: %w", s.Storage.Describe(name), err)
	}
	defer rc.Close()

	fixtures, err := decodeFixtures(name, rc)
	if err != nil {
		return 0, fmt.Errorf("decode fixtures %s: %w", s.Storage.Describe(name), err)
	}

	tests, err := toModels(fixtures)
	if err != nil {
		return 0, err
	}

	if err := s.Repo.CreateCatalog(ctx, tests); err != nil {
		return 0, err
	}

	if s.Catalog != nil {
		s.Catalog.Invalidate(ctx)
	}

	logger.Log.Info("Fixtures loaded",
		zap.String("source", s.Storage.Describe(name)),
		zap.Int("tests", len(tests)),
	)
	return len(tests), nil
}

func toModels(fixtures []FixtureTest) ([]model.Test, error) {
	tests := make([]model.Test, 0, len(fixtures))
	for i, ft := range fixtures {
		if ft.Title == "" {
			return nil, fmt.Errorf("fixture test #%d has no title", i+1)
		}
		t := model.Test{
			BaseModel:   model.BaseModel{ID: ft.ID},
			Title:       ft.Title,
			Description: ft.Description,
		}
		for _, fq := range ft.Questions {
			q := model.Question{
				BaseModel: model.BaseModel{ID: fq.ID},
				Text:      fq.Text,
				Order:     fq.Order,
			}
			for _, fc := range fq.Choices {
				q.Choices = append(q.Choices, model.Choice{
					BaseModel: model.BaseModel{ID: fc.ID},
					Text:      fc.Text,
					IsCorrect: fc.IsCorrect,
				})
			}
			t.Questions = append(t.Questions, q)
		}
		tests = append(tests, t)
	}
	return tests, nil
}
