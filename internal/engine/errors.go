package engine

import (
	"errors"
	"fmt"
)

// Common navigation errors. Locked navigation is a user-visible notice, not
// a failure: handlers map ErrQuestionLocked to a QUESTION_LOCKED response
// and the session emits an EventLocked for the host UI.
var (
	ErrSessionClosed   = errors.New("session no longer accepts transitions")
	ErrQuestionLocked  = errors.New("question is locked")
	ErrIndexOutOfRange = errors.New("question index out of range")
)

// ValidationError blocks advance() when a mandatory free-text question is
// left empty. Recoverable: the candidate stays on the current question.
type ValidationError struct {
	QuestionID int
	Reason     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("question %d: %s", e.QuestionID, e.Reason)
}
