package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"notification-service/internal/xerrors"
)

// refreshSkew refreshes a cached token this long before it actually expires so
// an in-flight send never carries a token about to lapse.
const refreshSkew = 60 * time.Second

// tokenSource performs the OAuth client-credentials exchange and caches the
// bearer token until near expiry. The clock is injected so expiry is
// deterministic under test.
type tokenSource struct {
	tokenURL     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	now          func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func newTokenSource(tokenURL, clientID, clientSecret string, httpClient *http.Client, now func() time.Time) *tokenSource {
	if now == nil {
		now = time.Now
	}
	return &tokenSource{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpClient,
		now:          now,
	}
}

// Token returns a cached bearer token, fetching a fresh one when the cache is
// empty or within the refresh skew of expiry.
func (t *tokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && t.now().Add(refreshSkew).Before(t.expiresAt) {
		return t.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", t.clientID)
	form.Set("client_secret", t.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", &xerrors.TransportError{Msg: fmt.Sprintf("token exchange: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &xerrors.TransportError{
			StatusCode: resp.StatusCode,
			Msg:        "token exchange rejected: " + string(body),
		}
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &xerrors.TransportError{Msg: fmt.Sprintf("token exchange: decode response: %v", err)}
	}
	if result.AccessToken == "" {
		return "", &xerrors.TransportError{Msg: "token exchange: empty access_token"}
	}

	t.token = result.AccessToken
	t.expiresAt = t.now().Add(time.Duration(result.ExpiresIn) * time.Second)
	return t.token, nil
}

// Invalidate drops the cached token so the next call re-authenticates.
func (t *tokenSource) Invalidate() {
	t.mu.Lock()
	t.token = ""
	t.expiresAt = time.Time{}
	t.mu.Unlock()
}
