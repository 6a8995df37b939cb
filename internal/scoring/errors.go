package scoring

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindNotFound          ErrorKind = "not_found"
	KindMalformedInput    ErrorKind = "malformed_input"
	KindForeignQuestion   ErrorKind = "foreign_question"
	KindInvalidChoice     ErrorKind = "invalid_choice"
	KindStoreWriteFailure ErrorKind = "store_write_failure"
)

// ErrNoAttemptStore is returned when commit mode is requested from an engine
// built without an attempt store.
var ErrNoAttemptStore = errors.New("scoring: commit mode requires an attempt store")

// ValidationError rejects a submission before anything is written.
// Field names the offending input ("test_id", "finished_reason", "answers").
type ValidationError struct {
	Kind       ErrorKind
	Field      string
	QuestionID *uint
	ChoiceID   *uint
	Message    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
}

func notFoundTest(testID uint) *ValidationError {
	return &ValidationError{
		Kind:    KindNotFound,
		Field:   "test_id",
		Message: fmt.Sprintf("test %d not found", testID),
	}
}

func malformed(field, msg string) *ValidationError {
	return &ValidationError{Kind: KindMalformedInput, Field: field, Message: msg}
}

// idPtr is nil for ids that cannot name a stored row.
func idPtr(id int64) *uint {
	if id <= 0 {
		return nil
	}
	v := uint(id)
	return &v
}

func foreignQuestion(questionID int64) *ValidationError {
	return &ValidationError{
		Kind:       KindForeignQuestion,
		Field:      "answers",
		QuestionID: idPtr(questionID),
		Message:    fmt.Sprintf("question %d not in this test", questionID),
	}
}

func invalidChoice(choiceID, questionID int64) *ValidationError {
	return &ValidationError{
		Kind:       KindInvalidChoice,
		Field:      "answers",
		QuestionID: idPtr(questionID),
		ChoiceID:   idPtr(choiceID),
		Message:    fmt.Sprintf("choice %d not valid for question %d", choiceID, questionID),
	}
}

// StoreError wraps a failed commit. The transaction was rolled back, so no
// attempt rows are visible and the caller may retry the same submission.
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string {
	return "store write failure: " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Retryable() bool {
	return true
}

// KindOf classifies err; the empty kind means err is not a scoring error.
func KindOf(err error) ErrorKind {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	var se *StoreError
	if errors.As(err, &se) {
		return KindStoreWriteFailure
	}
	return ""
}

// IsRetryable reports whether err is a transient persistence failure.
func IsRetryable(err error) bool {
	var r interface{ Retryable() bool }
	return errors.As(err, &r) && r.Retryable()
}
