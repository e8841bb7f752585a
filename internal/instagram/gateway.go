package instagram

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	logx "github.com/tarunerror/insta-auto/pkg/logx"
)

// Gateway serializes every platform call behind one mutex: the underlying
// client session is not safe for concurrent use, so even with parallel task
// scheduling the network I/O is strictly sequential. A pacer additionally
// spaces calls out so bursts of reads don't look automated.
//
// Error policy (one method, one rule):
//   - FetchComments and FollowsBack fail soft: degraded result plus a log line.
//   - SendMessage lets ErrBlocked through untouched; anything else is a
//     logged false.
//   - ReplyToComment is best-effort and never raises.
type Gateway struct {
	mu     sync.Mutex
	client Client
	pace   *rate.Limiter
	log    logx.Logger
}

func NewGateway(client Client, log logx.Logger) *Gateway {
	return &Gateway{
		client: client,
		// Matches the session's human-ish pacing between API calls.
		pace: rate.NewLimiter(rate.Every(2*time.Second), 1),
		log:  log,
	}
}

// lock acquires the client mutex and waits out the pacer.
// Returns false when ctx is canceled while waiting.
func (g *Gateway) lock(ctx context.Context) bool {
	g.mu.Lock()
	if err := g.pace.Wait(ctx); err != nil {
		g.mu.Unlock()
		return false
	}
	return true
}

func (g *Gateway) Login(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.client.Login(ctx)
}

// ResolvePost parses the post reference out of url and resolves its media pk.
// Returns InvalidReferenceError when no recognized pattern matches.
func (g *Gateway) ResolvePost(ctx context.Context, url string) (Post, error) {
	shortcode, err := ShortcodeFromURL(url)
	if err != nil {
		return Post{}, err
	}
	if !g.lock(ctx) {
		return Post{}, ctx.Err()
	}
	defer g.mu.Unlock()

	pk, err := g.client.MediaPK(ctx, shortcode)
	if err != nil {
		return Post{}, err
	}
	return Post{URL: url, Shortcode: shortcode, MediaPK: pk}, nil
}

// FetchComments returns up to limit comments. On total failure it returns an
// empty list and logs; it never returns an error.
func (g *Gateway) FetchComments(ctx context.Context, post Post, limit int) []Comment {
	if !g.lock(ctx) {
		return nil
	}
	defer g.mu.Unlock()

	comments, err := g.client.Comments(ctx, post.MediaPK, limit)
	if err != nil {
		g.log.Error("failed to get comments", logx.String("reel", post.Shortcode), logx.Err(err))
		return nil
	}
	return comments
}

// FollowsBack fails soft: any error reads as "does not follow" with a warning.
func (g *Gateway) FollowsBack(ctx context.Context, userID string) bool {
	if !g.lock(ctx) {
		return false
	}
	defer g.mu.Unlock()

	follows, err := g.client.FollowsBack(ctx, userID)
	if err != nil {
		g.log.Warn("could not check follow status", logx.String("user_id", userID), logx.Err(err))
		return false
	}
	return follows
}

// SendMessage returns true on a confirmed send. ErrBlocked propagates so the
// session can stop; any other failure is logged and returns false.
func (g *Gateway) SendMessage(ctx context.Context, userID, username, text string) (bool, error) {
	if !g.lock(ctx) {
		return false, ctx.Err()
	}
	defer g.mu.Unlock()

	err := g.client.SendDirect(ctx, userID, text)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrBlocked) {
		g.log.Error("instagram blocked DM action", logx.String("username", username))
		return false, ErrBlocked
	}
	g.log.Error("failed to send DM", logx.String("username", username), logx.Err(err))
	return false, nil
}

// ReplyToComment is best-effort: failures (including a block on the reply
// surface) are logged and return false, never raised.
func (g *Gateway) ReplyToComment(ctx context.Context, post Post, commentID, text string) bool {
	if !g.lock(ctx) {
		return false
	}
	defer g.mu.Unlock()

	if err := g.client.ReplyComment(ctx, post.MediaPK, commentID, text); err != nil {
		if errors.Is(err, ErrBlocked) {
			g.log.Warn("instagram blocked comment reply", logx.String("reel", post.Shortcode))
		} else {
			g.log.Warn("failed to reply to comment", logx.String("reel", post.Shortcode), logx.Err(err))
		}
		return false
	}
	return true
}
