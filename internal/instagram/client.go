package instagram

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	logx "github.com/tarunerror/insta-auto/pkg/logx"
)

const (
	apiBase   = "https://i.instagram.com/api/v1"
	userAgent = "Instagram 269.0.0.18.75 Android (30/11; 420dpi; 1080x2138; samsung; SM-G973F; beyond1; exynos9820; en_US)"
)

// Options configures the API client.
type Options struct {
	Username    string
	Password    string
	SessionPath string // default ./session.json
	Timeout     time.Duration
}

// apiClient talks to the private mobile API. It is NOT safe for concurrent
// use; Gateway serializes access.
type apiClient struct {
	http *http.Client
	log  logx.Logger

	username    string
	password    string
	sessionPath string
	deviceID    string
	userID      string
}

func NewClient(opts Options, log logx.Logger) (Client, error) {
	if strings.TrimSpace(opts.Username) == "" || strings.TrimSpace(opts.Password) == "" {
		return nil, fmt.Errorf("instagram: username and password are required")
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	sessionPath := opts.SessionPath
	if strings.TrimSpace(sessionPath) == "" {
		sessionPath = "./session.json"
	}
	return &apiClient{
		http:        &http.Client{Jar: jar, Timeout: timeout},
		log:         log,
		username:    opts.Username,
		password:    opts.Password,
		sessionPath: sessionPath,
		deviceID:    newDeviceID(),
	}, nil
}

func newDeviceID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return "android-" + hex.EncodeToString(b)
}

func (c *apiClient) Login(ctx context.Context) error {
	// Restore the saved session first; on any failure discard it and fall
	// back to a fresh credential login.
	if art, err := c.loadSession(); err == nil {
		if art.DeviceID != "" {
			c.deviceID = art.DeviceID
		}
		c.userID = art.UserID
		if err := c.verifySession(ctx); err == nil {
			c.log.Info("logged in from saved session", logx.String("username", c.username))
			return nil
		} else {
			c.log.Warn("session restore failed", logx.Err(err))
			c.discardSession()
		}
	}

	form := url.Values{}
	form.Set("username", c.username)
	form.Set("password", c.password)
	form.Set("device_id", c.deviceID)
	form.Set("login_attempt_count", "0")

	var resp struct {
		Status   string `json:"status"`
		Message  string `json:"message"`
		LoggedIn struct {
			PK json.Number `json:"pk"`
		} `json:"logged_in_user"`
	}
	if err := c.request(ctx, http.MethodPost, "/accounts/login/", form, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("instagram: login failed: %s", resp.Message)
	}
	c.userID = resp.LoggedIn.PK.String()

	if err := c.saveSession(); err != nil {
		c.log.Warn("could not save session artifact", logx.Err(err))
	}
	c.log.Info("logged in with credentials", logx.String("username", c.username))
	return nil
}

// verifySession confirms restored cookies are still accepted.
func (c *apiClient) verifySession(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.request(ctx, http.MethodGet, "/accounts/current_user/", nil, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return ErrLoginRequired
	}
	return nil
}

func (c *apiClient) MediaPK(ctx context.Context, shortcode string) (int64, error) {
	return mediaPKFromCode(shortcode)
}

func (c *apiClient) Comments(ctx context.Context, mediaPK int64, limit int) ([]Comment, error) {
	path := fmt.Sprintf("/media/%d/comments/?can_support_threading=true", mediaPK)

	// Primary path: typed decode.
	var typed struct {
		Status   string `json:"status"`
		Comments []struct {
			PK   json.Number `json:"pk"`
			Text string      `json:"text"`
			User struct {
				PK       json.Number `json:"pk"`
				Username string      `json:"username"`
			} `json:"user"`
		} `json:"comments"`
	}
	body, err := c.rawRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, &typed); err == nil && typed.Status == "ok" {
		out := make([]Comment, 0, len(typed.Comments))
		for _, tc := range typed.Comments {
			out = append(out, Comment{
				ID:       tc.PK.String(),
				UserID:   tc.User.PK.String(),
				Username: tc.User.Username,
				Text:     tc.Text,
			})
			if limit > 0 && len(out) >= limit {
				break
			}
		}
		return out, nil
	}

	// Fallback path: some payload variants carry extra media metadata the
	// typed shape chokes on; extract the fields loosely instead.
	var loose map[string]any
	if err := json.Unmarshal(body, &loose); err != nil {
		return nil, fmt.Errorf("instagram: comments response unparseable: %w", err)
	}
	raw, _ := loose["comments"].([]any)
	out := make([]Comment, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		user, _ := m["user"].(map[string]any)
		cm := Comment{
			ID:       jsonNumberString(m["pk"]),
			Text:     fmt.Sprint(m["text"]),
			UserID:   jsonNumberString(user["pk"]),
			Username: fmt.Sprint(user["username"]),
		}
		if cm.UserID == "" {
			continue
		}
		out = append(out, cm)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (c *apiClient) FollowsBack(ctx context.Context, userID string) (bool, error) {
	var resp struct {
		Status     string `json:"status"`
		FollowedBy bool   `json:"followed_by"`
	}
	if err := c.request(ctx, http.MethodGet, "/friendships/show/"+userID+"/", nil, &resp); err != nil {
		return false, err
	}
	return resp.FollowedBy, nil
}

func (c *apiClient) SendDirect(ctx context.Context, userID string, text string) error {
	form := url.Values{}
	form.Set("recipient_users", fmt.Sprintf("[[%s]]", userID))
	form.Set("action", "send_item")
	form.Set("text", text)

	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := c.request(ctx, http.MethodPost, "/direct_v2/threads/broadcast/text/", form, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("instagram: direct send failed: %s", resp.Message)
	}
	return nil
}

func (c *apiClient) ReplyComment(ctx context.Context, mediaPK int64, commentID, text string) error {
	form := url.Values{}
	form.Set("comment_text", text)
	form.Set("replied_to_comment_id", commentID)

	var resp struct {
		Status  string          `json:"status"`
		Message string          `json:"message"`
		Comment json.RawMessage `json:"comment"`
	}
	if err := c.request(ctx, http.MethodPost, fmt.Sprintf("/media/%d/comment/", mediaPK), form, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" || len(resp.Comment) == 0 {
		return fmt.Errorf("instagram: comment reply failed: %s", resp.Message)
	}
	return nil
}

func (c *apiClient) request(ctx context.Context, method, path string, form url.Values, out any) error {
	body, err := c.rawRequest(ctx, method, path, form)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("instagram: decode %s: %w", path, err)
	}
	return nil
}

func (c *apiClient) rawRequest(ctx context.Context, method, path string, form url.Values) ([]byte, error) {
	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, apiBase+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return nil, err
	}

	if err := classifyAPIError(res.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// classifyAPIError maps well-known API failure messages onto the package's
// error taxonomy. feedback_required must surface as ErrBlocked so callers
// can stop the session.
func classifyAPIError(status int, body []byte) error {
	if status < 400 {
		return nil
	}
	var envelope struct {
		Message   string `json:"message"`
		ErrorType string `json:"error_type"`
		Spam      bool   `json:"spam"`
	}
	_ = json.Unmarshal(body, &envelope)
	msg := strings.ToLower(envelope.Message)
	switch {
	case msg == "feedback_required" || envelope.Spam:
		return ErrBlocked
	case msg == "challenge_required" || envelope.ErrorType == "checkpoint_challenge_required":
		return ErrChallengeRequired
	case msg == "login_required":
		return ErrLoginRequired
	}
	return fmt.Errorf("instagram: http %d: %s", status, envelope.Message)
}

func jsonNumberString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return fmt.Sprintf("%.0f", x)
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
