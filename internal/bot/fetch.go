package bot

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tarunerror/insta-auto/internal/config"
	logx "github.com/tarunerror/insta-auto/pkg/logx"
)

// fetchAll retrieves comments for every reel using a bounded worker pool.
// Results are collected as workers finish; a single reel's failure yields a
// failure record without aborting siblings. The returned slice is re-sorted
// into configured order so the collect stage is deterministic.
func (b *Bot) fetchAll(ctx context.Context, reels []config.Reel, workers int) []FetchResult {
	if len(reels) == 0 {
		return nil
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > len(reels) {
		workers = len(reels)
	}

	type job struct {
		idx  int
		reel config.Reel
	}
	jobs := make(chan job)
	results := make(chan FetchResult, len(reels))

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results <- b.fetchOne(ctx, j.idx, j.reel)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, r := range reels {
			select {
			case <-ctx.Done():
				return
			case jobs <- job{idx: i, reel: r}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]FetchResult, 0, len(reels))
	for fr := range results {
		out = append(out, fr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })

	total := 0
	ok := 0
	for _, fr := range out {
		if fr.OK {
			ok++
			total += len(fr.Comments)
		}
	}
	b.log.Info("fetch phase complete",
		logx.Int("reels_ok", ok),
		logx.Int("reels_total", len(reels)),
		logx.Int("comments", total),
		logx.Duration("took", time.Since(start)),
	)
	return out
}

func (b *Bot) fetchOne(ctx context.Context, idx int, reel config.Reel) FetchResult {
	fr := FetchResult{Index: idx, Reel: reel}

	post, err := b.platform.ResolvePost(ctx, reel.URL)
	if err != nil {
		b.log.Error("error fetching reel", logx.String("url", reel.URL), logx.Err(err))
		fr.Err = err
		return fr
	}

	comments := b.platform.FetchComments(ctx, post, commentFetchLimit)
	b.log.Info("fetched comments",
		logx.String("reel", post.Shortcode),
		logx.Int("count", len(comments)),
	)

	fr.Post = post
	fr.Comments = comments
	fr.OK = true
	return fr
}
