package shotgrid

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// tokenManager caches the script access token and refreshes it before expiry.
type tokenManager struct {
	baseURL    string
	scriptName string
	apiKey     string
	httpClient *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

// expirySkew is subtracted from the server-provided lifetime so a token is
// never used in the final moments before it lapses.
const expirySkew = 30 * time.Second

func (m *tokenManager) accessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" && time.Now().Before(m.expires) {
		return m.token, nil
	}
	return m.refreshLocked(ctx)
}

// invalidate drops the cached token so the next request re-authenticates.
func (m *tokenManager) invalidate() {
	m.mu.Lock()
	m.token = ""
	m.expires = time.Time{}
	m.mu.Unlock()
}

func (m *tokenManager) refreshLocked(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", m.scriptName)
	form.Set("client_secret", m.apiKey)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		m.baseURL+"/api/v1/auth/access_token",
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request returned %d", resp.StatusCode)
	}

	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token response missing access token")
	}

	lifetime := time.Duration(payload.ExpiresIn) * time.Second
	if lifetime <= expirySkew {
		lifetime = expirySkew * 2
	}
	m.token = payload.AccessToken
	m.expires = time.Now().Add(lifetime - expirySkew)
	return m.token, nil
}
