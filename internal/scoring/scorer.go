package scoring

import (
	"quizhub_backend/internal/model"
)

// QuestionResult is the outcome for one answered question. CorrectChoiceID
// is a display hint only and does not take part in scoring.
type QuestionResult struct {
	QuestionID       uint  `json:"question_id"`
	SelectedChoiceID uint  `json:"selected_choice_id"`
	CorrectChoiceID  *uint `json:"correct_choice_id"`
	IsCorrect        bool  `json:"is_correct"`
}

// Result is the payload returned for both modes. AttemptID is nil in preview.
type Result struct {
	AttemptID      *uint                `json:"attempt_id"`
	TestID         uint                 `json:"test_id"`
	FinishedReason model.FinishedReason `json:"finished_reason"`
	Score          int                  `json:"score"`
	Total          int                  `json:"total"`
	Percent        float64              `json:"percent"`
	Results        []QuestionResult     `json:"results"`
}

// Percent returns score as a percentage of total, or 0 for an empty test.
func Percent(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(score) / float64(total) * 100
}

// CanonicalCorrectChoice returns the first choice flagged correct, in id
// order. With several flagged choices the lowest id wins.
func CanonicalCorrectChoice(choices []model.Choice) *uint {
	for _, c := range choices {
		if c.IsCorrect {
			id := c.ID
			return &id
		}
	}
	return nil
}

func score(s *snapshot) *Result {
	res := &Result{
		TestID:         s.test.ID,
		FinishedReason: s.reason,
		Total:          len(s.questions),
		Results:        make([]QuestionResult, 0, len(s.answers)),
	}

	for _, q := range s.questions {
		choiceID, answered := s.answers[q.ID]
		if !answered {
			continue
		}

		choices := s.choices[q.ID]
		isCorrect := false
		for _, c := range choices {
			if c.ID == choiceID {
				isCorrect = c.IsCorrect
				break
			}
		}
		if isCorrect {
			res.Score++
		}

		res.Results = append(res.Results, QuestionResult{
			QuestionID:       q.ID,
			SelectedChoiceID: choiceID,
			CorrectChoiceID:  CanonicalCorrectChoice(choices),
			IsCorrect:        isCorrect,
		})
	}

	res.Percent = Percent(res.Score, res.Total)
	return res
}
