package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/tarunerror/insta-auto/internal/instagram"
	"github.com/tarunerror/insta-auto/internal/storage"
)

type fakePlatform struct {
	mu sync.Mutex

	posts      map[string]instagram.Post        // by url
	comments   map[string][]instagram.Comment   // by shortcode
	resolveErr map[string]error                 // by url
	follows    map[string]bool                  // by user id
	sendErr    map[string]error                 // by user id
	sendFail   map[string]bool                  // by user id, soft failure

	sent         []string // user ids, send order
	replied      []string // comment ids
	followChecks int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		posts:      map[string]instagram.Post{},
		comments:   map[string][]instagram.Comment{},
		resolveErr: map[string]error{},
		follows:    map[string]bool{},
		sendErr:    map[string]error{},
		sendFail:   map[string]bool{},
	}
}

func (f *fakePlatform) addReel(url, shortcode string, comments ...instagram.Comment) {
	f.posts[url] = instagram.Post{URL: url, Shortcode: shortcode, MediaPK: 1}
	f.comments[shortcode] = comments
}

func (f *fakePlatform) ResolvePost(_ context.Context, url string) (instagram.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.resolveErr[url]; err != nil {
		return instagram.Post{}, err
	}
	p, ok := f.posts[url]
	if !ok {
		return instagram.Post{}, &instagram.InvalidReferenceError{URL: url}
	}
	return p, nil
}

func (f *fakePlatform) FetchComments(_ context.Context, post instagram.Post, _ int) []instagram.Comment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.comments[post.Shortcode]
}

func (f *fakePlatform) FollowsBack(_ context.Context, userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.followChecks++
	return f.follows[userID]
}

func (f *fakePlatform) SendMessage(_ context.Context, userID, _, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.sendErr[userID]; err != nil {
		return false, err
	}
	if f.sendFail[userID] {
		return false, nil
	}
	f.sent = append(f.sent, userID)
	return true, nil
}

func (f *fakePlatform) ReplyToComment(_ context.Context, _ instagram.Post, commentID, _ string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replied = append(f.replied, commentID)
	return true
}

func (f *fakePlatform) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeLedger struct {
	mu        sync.Mutex
	processed map[string]bool
	repliedTo map[string]bool
	failLook  bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{processed: map[string]bool{}, repliedTo: map[string]bool{}}
}

func key(userID, reelID string) string { return userID + "|" + reelID }

func (f *fakeLedger) IsProcessed(_ context.Context, userID, reelID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLook {
		return false, fmt.Errorf("ledger unavailable")
	}
	return f.processed[key(userID, reelID)], nil
}

func (f *fakeLedger) MarkProcessed(_ context.Context, userID, _, reelID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed[key(userID, reelID)] = true
	return nil
}

func (f *fakeLedger) MarkCommentReplied(_ context.Context, userID, reelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.repliedTo[key(userID, reelID)] = true
	return nil
}

func (f *fakeLedger) IsCommentReplied(_ context.Context, userID, reelID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.repliedTo[key(userID, reelID)], nil
}

func (f *fakeLedger) Stats(context.Context) (storage.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.processed)
	return storage.Stats{TotalSent: n, SentToday: n}, nil
}

func (f *fakeLedger) isMarked(userID, reelID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.processed[key(userID, reelID)]
}
