package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/tarunerror/insta-auto/internal/config"
	"github.com/tarunerror/insta-auto/internal/instagram"
)

func TestFetchAllPreservesConfigOrder(t *testing.T) {
	p := newFakePlatform()
	p.addReel("https://instagram.com/reel/AAA/", "AAA",
		instagram.Comment{ID: "c1", UserID: "u1", Username: "a", Text: "x"})
	p.addReel("https://instagram.com/reel/BBB/", "BBB")
	p.addReel("https://instagram.com/reel/CCC/", "CCC",
		instagram.Comment{ID: "c2", UserID: "u2", Username: "b", Text: "y"},
		instagram.Comment{ID: "c3", UserID: "u3", Username: "c", Text: "z"})

	b := testBot(p, newFakeLedger())
	reels := []config.Reel{
		{URL: "https://instagram.com/reel/AAA/", Message: "m"},
		{URL: "https://instagram.com/reel/BBB/", Message: "m"},
		{URL: "https://instagram.com/reel/CCC/", Message: "m"},
	}

	results := b.fetchAll(context.Background(), reels, 3)
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, fr := range results {
		if fr.Index != i {
			t.Fatalf("result %d has index %d, not config order", i, fr.Index)
		}
		if !fr.OK {
			t.Fatalf("result %d failed: %v", i, fr.Err)
		}
	}
	if len(results[2].Comments) != 2 {
		t.Fatalf("reel CCC has %d comments, want 2", len(results[2].Comments))
	}
}

func TestFetchAllIsolatesFailures(t *testing.T) {
	p := newFakePlatform()
	p.addReel("https://instagram.com/reel/GOOD/", "GOOD",
		instagram.Comment{ID: "c1", UserID: "u1", Username: "a", Text: "x"})

	b := testBot(p, newFakeLedger())
	reels := []config.Reel{
		{URL: "https://instagram.com/watch/nothing", Message: "m"},
		{URL: "https://instagram.com/reel/GOOD/", Message: "m"},
	}

	results := b.fetchAll(context.Background(), reels, 2)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].OK {
		t.Fatal("unresolvable reel reported OK")
	}
	var ref *instagram.InvalidReferenceError
	if !errors.As(results[0].Err, &ref) {
		t.Fatalf("err = %v, want InvalidReferenceError", results[0].Err)
	}
	if !results[1].OK || len(results[1].Comments) != 1 {
		t.Fatalf("good reel degraded by sibling failure: %+v", results[1])
	}
}

func TestFetchAllSequentialWorker(t *testing.T) {
	p := newFakePlatform()
	p.addReel("https://instagram.com/reel/ONE/", "ONE")
	b := testBot(p, newFakeLedger())

	results := b.fetchAll(context.Background(), []config.Reel{{URL: "https://instagram.com/reel/ONE/", Message: "m"}}, 0)
	if len(results) != 1 || !results[0].OK {
		t.Fatalf("results %+v", results)
	}
}
