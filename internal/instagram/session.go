package instagram

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"runtime"
	"time"
)

// sessionArtifact is the saved authentication state. Restored
// opportunistically on startup and discarded when restore fails.
type sessionArtifact struct {
	Username string        `json:"username"`
	UserID   string        `json:"user_id,omitempty"`
	DeviceID string        `json:"device_id"`
	SavedAt  time.Time     `json:"saved_at"`
	Cookies  []savedCookie `json:"cookies"`
}

type savedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Domain  string    `json:"domain,omitempty"`
	Path    string    `json:"path,omitempty"`
	Expires time.Time `json:"expires,omitempty"`
}

func (c *apiClient) saveSession() error {
	art := sessionArtifact{
		Username: c.username,
		UserID:   c.userID,
		DeviceID: c.deviceID,
		SavedAt:  time.Now(),
	}
	if u, err := url.Parse(apiBase); err == nil {
		for _, ck := range c.http.Jar.Cookies(u) {
			art.Cookies = append(art.Cookies, savedCookie{
				Name: ck.Name, Value: ck.Value, Domain: ck.Domain, Path: ck.Path, Expires: ck.Expires,
			})
		}
	}

	b, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.sessionPath, b, 0o600); err != nil {
		return err
	}
	secureSessionFile(c.sessionPath)
	return nil
}

func (c *apiClient) loadSession() (*sessionArtifact, error) {
	b, err := os.ReadFile(c.sessionPath)
	if err != nil {
		return nil, err
	}
	var art sessionArtifact
	if err := json.Unmarshal(b, &art); err != nil {
		return nil, err
	}

	u, err := url.Parse(apiBase)
	if err != nil {
		return nil, err
	}
	cookies := make([]*http.Cookie, 0, len(art.Cookies))
	for _, ck := range art.Cookies {
		cookies = append(cookies, &http.Cookie{
			Name: ck.Name, Value: ck.Value, Domain: ck.Domain, Path: ck.Path, Expires: ck.Expires,
		})
	}
	c.http.Jar.SetCookies(u, cookies)
	return &art, nil
}

func (c *apiClient) discardSession() {
	_ = os.Remove(c.sessionPath)
}

// secureSessionFile sets owner-only permissions where the host OS supports it.
func secureSessionFile(path string) {
	if runtime.GOOS == "windows" {
		return
	}
	_ = os.Chmod(path, 0o600)
}
