package interview

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session id does not exist or
// belongs to a different user.
var ErrSessionNotFound = errors.New("interview session not found")

// ErrResultNotFound is returned when no result exists for a session.
var ErrResultNotFound = errors.New("interview result not found")

// StateError signals an illegal state transition or an out-of-order
// question number. The session is left unmodified.
type StateError struct {
	SessionID string
	Current   string
	Attempted string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("invalid state transition for session %s: %s -> %s", e.SessionID, e.Current, e.Attempted)
}

// AIServiceError wraps a question-generation or evaluation failure that
// persisted through the retry. The session remains in its last good state.
type AIServiceError struct {
	Op  string // "generate_question" | "evaluate_answer"
	Err error
}

func (e *AIServiceError) Error() string {
	return fmt.Sprintf("AI service failed during %s: %v", e.Op, e.Err)
}

func (e *AIServiceError) Unwrap() error {
	return e.Err
}
