package mailer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"notification-service/internal/config"
	"notification-service/internal/xerrors"
)

// newTestClient wires a client against a fake token endpoint and the given
// message endpoint.
func newTestClient(t *testing.T, apiURL string) (*Client, *httptest.Server) {
	t.Helper()
	var calls int32
	tokenSrv := tokenServer(t, &calls, "tok-send", 3600)

	cfg := config.MailConfig{
		TokenURL:     tokenSrv.URL,
		APIURL:       apiURL,
		ClientID:     "svc-notifications",
		ClientSecret: "shh",
		FromAddress:  "noreply@example.com",
		FromName:     "Example Admin",
		ReplyTo:      "support@example.com",
	}
	c := NewClient(cfg, zap.NewNop())
	c.httpClient = tokenSrv.Client()
	c.tokens.httpClient = tokenSrv.Client()
	return c, tokenSrv
}

func TestSendPayloadShape(t *testing.T) {
	var got sendPayload
	var auth string
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("path = %q, want /messages", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer apiSrv.Close()

	c, tokenSrv := newTestClient(t, apiSrv.URL)
	defer tokenSrv.Close()

	err := c.Send(context.Background(), Message{
		To:      "ops@example.com",
		Subject: "Low stock",
		HTML:    "<h2>Low stock</h2><p>SKU-9 is below threshold</p>",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if auth != "Bearer tok-send" {
		t.Errorf("Authorization = %q, want the bearer token", auth)
	}
	if got.To != "ops@example.com" || got.Subject != "Low stock" {
		t.Errorf("payload = %+v", got)
	}
	if got.From != "Example Admin <noreply@example.com>" {
		t.Errorf("from = %q, want the display name folded in", got.From)
	}
	if got.ReplyTo != "support@example.com" {
		t.Errorf("reply_to = %q", got.ReplyTo)
	}

	decoded, err := base64.StdEncoding.DecodeString(got.HTML)
	if err != nil {
		t.Fatalf("html field is not base64: %v", err)
	}
	if string(decoded) != "<h2>Low stock</h2><p>SKU-9 is below threshold</p>" {
		t.Errorf("decoded html = %q", decoded)
	}
	if got.Text != "Low stock SKU-9 is below threshold" {
		t.Errorf("text fallback = %q", got.Text)
	}
}

func TestSendBareAddressWithoutFromName(t *testing.T) {
	var got sendPayload
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer apiSrv.Close()

	c, tokenSrv := newTestClient(t, apiSrv.URL)
	defer tokenSrv.Close()
	c.cfg.FromName = ""

	if err := c.Send(context.Background(), Message{To: "a@example.com", Subject: "x", HTML: "y"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.From != "noreply@example.com" {
		t.Errorf("from = %q, want the bare address", got.From)
	}
}

func TestSendNon2xxIsTransportError(t *testing.T) {
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "mailbox unavailable", http.StatusBadGateway)
	}))
	defer apiSrv.Close()

	c, tokenSrv := newTestClient(t, apiSrv.URL)
	defer tokenSrv.Close()

	err := c.Send(context.Background(), Message{To: "ops@example.com", Subject: "x", HTML: "<p>y</p>"})
	var terr *xerrors.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("err = %v, want TransportError", err)
	}
	if terr.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", terr.StatusCode)
	}
}

func TestSendUnauthorizedDropsCachedToken(t *testing.T) {
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer apiSrv.Close()

	c, tokenSrv := newTestClient(t, apiSrv.URL)
	defer tokenSrv.Close()

	if err := c.Send(context.Background(), Message{To: "a@example.com", Subject: "x", HTML: "y"}); err == nil {
		t.Fatal("expected a transport error on 401")
	}

	c.tokens.mu.Lock()
	cached := c.tokens.token
	c.tokens.mu.Unlock()
	if cached != "" {
		t.Error("401 from the message endpoint must invalidate the cached token")
	}
}

func TestSendRejectsMissingConfig(t *testing.T) {
	c := NewClient(config.MailConfig{}, zap.NewNop())

	err := c.Send(context.Background(), Message{To: "a@example.com", Subject: "x", HTML: "y"})
	var cerr *xerrors.ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want ConfigError", err)
	}
	if cerr.Field != "MAIL_CLIENT_ID" {
		t.Errorf("field = %q, want the first missing credential", cerr.Field)
	}
}

func TestSendRejectsEmptyRecipient(t *testing.T) {
	c, tokenSrv := newTestClient(t, "http://unused.invalid")
	defer tokenSrv.Close()

	err := c.Send(context.Background(), Message{Subject: "x", HTML: "y"})
	var verr *xerrors.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestConfiguredReportsEachMissingField(t *testing.T) {
	full := config.MailConfig{
		TokenURL:     "https://auth.example.com/token",
		APIURL:       "https://mail.example.com",
		ClientID:     "id",
		ClientSecret: "secret",
		FromAddress:  "noreply@example.com",
	}
	cases := []struct {
		field string
		mut   func(*config.MailConfig)
	}{
		{"MAIL_CLIENT_ID", func(c *config.MailConfig) { c.ClientID = "" }},
		{"MAIL_CLIENT_SECRET", func(c *config.MailConfig) { c.ClientSecret = "" }},
		{"MAIL_TOKEN_URL", func(c *config.MailConfig) { c.TokenURL = "" }},
		{"MAIL_API_URL", func(c *config.MailConfig) { c.APIURL = "" }},
		{"MAIL_FROM_ADDRESS", func(c *config.MailConfig) { c.FromAddress = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			cfg := full
			tc.mut(&cfg)
			c := NewClient(cfg, zap.NewNop())
			err := c.Configured()
			var cerr *xerrors.ConfigError
			if !errors.As(err, &cerr) {
				t.Fatalf("err = %v, want ConfigError", err)
			}
			if cerr.Field != tc.field {
				t.Errorf("field = %q, want %q", cerr.Field, tc.field)
			}
		})
	}

	c := NewClient(full, zap.NewNop())
	if err := c.Configured(); err != nil {
		t.Errorf("fully configured client reported %v", err)
	}
}
