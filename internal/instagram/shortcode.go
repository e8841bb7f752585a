package instagram

import (
	"fmt"
	"regexp"
	"strings"
)

var reelURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`instagram\.com/reels?/([A-Za-z0-9_-]+)`),
	regexp.MustCompile(`instagram\.com/p/([A-Za-z0-9_-]+)`),
}

// ShortcodeFromURL extracts the post shortcode from a reel or post URL.
func ShortcodeFromURL(url string) (string, error) {
	for _, re := range reelURLPatterns {
		if m := re.FindStringSubmatch(url); m != nil {
			return m[1], nil
		}
	}
	return "", &InvalidReferenceError{URL: url}
}

const shortcodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// mediaPKFromCode decodes a shortcode into the media primary key.
// Shortcodes are the pk rendered in a 64-character alphabet; codes longer
// than 11 characters carry extra private prefix data and keep only the tail.
func mediaPKFromCode(code string) (int64, error) {
	if code == "" {
		return 0, fmt.Errorf("empty shortcode")
	}
	if len(code) > 11 {
		code = code[len(code)-11:]
	}
	var pk int64
	for _, c := range code {
		idx := strings.IndexRune(shortcodeAlphabet, c)
		if idx < 0 {
			return 0, fmt.Errorf("invalid shortcode character %q", c)
		}
		pk = pk*64 + int64(idx)
	}
	return pk, nil
}
