package instagram

import "context"

// Comment is the normalized shape handed to downstream stages. The raw API
// payload (typed or loosely-typed) never leaks past this package.
type Comment struct {
	ID       string
	UserID   string
	Username string
	Text     string
}

// Client is the remote platform session. Implementations are NOT safe for
// concurrent use; all calls go through Gateway, which serializes them.
type Client interface {
	// Login authenticates, restoring a saved session when possible.
	Login(ctx context.Context) error

	// MediaPK resolves a shortcode to the numeric media primary key.
	MediaPK(ctx context.Context, shortcode string) (int64, error)

	// Comments returns up to limit comments for a media item.
	Comments(ctx context.Context, mediaPK int64, limit int) ([]Comment, error)

	// FollowsBack reports whether userID follows the operating account.
	FollowsBack(ctx context.Context, userID string) (bool, error)

	// SendDirect sends a direct message. Returns ErrBlocked when the
	// platform restricts the action.
	SendDirect(ctx context.Context, userID string, text string) error

	// ReplyComment posts a threaded reply to a comment. Returns ErrBlocked
	// when the platform restricts the action.
	ReplyComment(ctx context.Context, mediaPK int64, commentID, text string) error
}

// Post identifies one resolved target.
type Post struct {
	URL       string
	Shortcode string
	MediaPK   int64
}
