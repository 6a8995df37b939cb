package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"quizhub_backend/internal/model"
	"quizhub_backend/internal/util"
)

// Submission is a raw answer set as received from a client. Answer keys are
// question ids and values are choice ids; both may arrive as JSON strings or
// numbers and are normalized once by Validate.
type Submission struct {
	TestID         uint                       `json:"test_id"`
	FinishedReason model.FinishedReason       `json:"finished_reason"`
	Answers        map[string]json.RawMessage `json:"answers"`
}

// snapshot is a validated submission together with the catalog rows it was
// checked against. Answers is keyed by question id.
type snapshot struct {
	test      *model.Test
	reason    model.FinishedReason
	questions []model.Question
	choices   map[uint][]model.Choice
	answers   map[uint]uint
}

func (e *Engine) validate(ctx context.Context, sub Submission) (*snapshot, error) {
	if !sub.FinishedReason.Valid() {
		return nil, malformed("finished_reason", fmt.Sprintf("%q is not one of completed, timeout", sub.FinishedReason))
	}
	if sub.TestID == 0 {
		return nil, malformed("test_id", "test_id is required")
	}

	test, err := e.catalog.GetTest(ctx, sub.TestID)
	if errors.Is(err, util.ErrTestNotFound) || (err == nil && test == nil) {
		return nil, notFoundTest(sub.TestID)
	}
	if err != nil {
		return nil, err
	}

	answers, err := normalizeAnswers(sub.Answers)
	if err != nil {
		return nil, err
	}

	questions, err := e.catalog.ListQuestions(ctx, test.ID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(questions, func(i, j int) bool { return questions[i].Less(questions[j]) })

	owned := make(map[uint]struct{}, len(questions))
	for _, q := range questions {
		owned[q.ID] = struct{}{}
	}

	qids := make([]int64, 0, len(answers))
	for qid := range answers {
		qids = append(qids, qid)
	}
	sort.Slice(qids, func(i, j int) bool { return qids[i] < qids[j] })

	picked := make(map[uint]uint, len(qids))
	choices := make(map[uint][]model.Choice, len(qids))
	for _, qid := range qids {
		if _, ok := owned[uint(qid)]; qid <= 0 || !ok {
			return nil, foreignQuestion(qid)
		}

		cs, err := e.catalog.ListChoices(ctx, uint(qid))
		if err != nil {
			return nil, err
		}
		sort.SliceStable(cs, func(i, j int) bool { return cs[i].ID < cs[j].ID })

		cid := answers[qid]
		if cid <= 0 || !hasChoice(cs, uint(cid), uint(qid)) {
			return nil, invalidChoice(cid, qid)
		}
		picked[uint(qid)] = uint(cid)
		choices[uint(qid)] = cs
	}

	return &snapshot{
		test:      test,
		reason:    sub.FinishedReason,
		questions: questions,
		choices:   choices,
		answers:   picked,
	}, nil
}

// normalizeAnswers converts the raw answer map into question id -> choice id.
// Keys are visited in sorted order so the reported failure is deterministic.
// Ids are only parsed here; non-positive ids fail the membership checks.
func normalizeAnswers(raw map[string]json.RawMessage) (map[int64]int64, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[int64]int64, len(raw))
	for _, k := range keys {
		qid, err := strconv.ParseInt(strings.TrimSpace(k), 10, 64)
		if err != nil {
			return nil, malformed("answers", fmt.Sprintf("question id %q must be an integer", k))
		}
		cid, ok := parseChoiceID(raw[k])
		if !ok {
			return nil, malformed("answers", fmt.Sprintf("choice for question %q must be an integer", k))
		}
		if _, dup := out[qid]; dup {
			return nil, malformed("answers", fmt.Sprintf("question %d answered more than once", qid))
		}
		out[qid] = cid
	}
	return out, nil
}

// parseChoiceID accepts a JSON number or numeric string. Integral decimals
// such as 100.0 or "100.00" are taken as whole numbers.
func parseChoiceID(raw json.RawMessage) (int64, bool) {
	s := strings.TrimSpace(string(raw))
	quoted := strings.HasPrefix(s, `"`)
	if quoted {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		s = strings.TrimSpace(s)
	}
	if i := strings.IndexByte(s, '.'); i > 0 && strings.Trim(s[i+1:], "0") == "" {
		s = s[:i]
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id, true
	}
	if quoted {
		return 0, false
	}
	// 1e2 and friends
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int64(f), true
}

func hasChoice(choices []model.Choice, choiceID, questionID uint) bool {
	for _, c := range choices {
		if c.ID == choiceID && c.QuestionID == questionID {
			return true
		}
	}
	return false
}
