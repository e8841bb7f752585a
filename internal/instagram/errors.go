package instagram

import (
	"errors"
	"fmt"
)

// ErrBlocked is raised when the platform reports an abuse/feedback
// restriction on a write action. It is the only error allowed to cross
// worker/stage boundaries: callers must stop the session, never retry.
var ErrBlocked = errors.New("instagram: action blocked (feedback_required)")

// ErrChallengeRequired means the account needs manual verification
// (email/phone). Fatal at login.
var ErrChallengeRequired = errors.New("instagram: challenge required")

// ErrLoginRequired means the saved session is no longer valid.
var ErrLoginRequired = errors.New("instagram: login required")

// InvalidReferenceError marks a post URL no recognized pattern matches.
// Fatal to that post only.
type InvalidReferenceError struct {
	URL string
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("instagram: could not extract reel ID from URL: %s", e.URL)
}
