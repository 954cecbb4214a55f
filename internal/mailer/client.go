package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"notification-service/internal/config"
	"notification-service/internal/xerrors"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Client talks to the hosted mail transport: bearer token via the
// client-credentials exchange, then a JSON send call. Any non-2xx response is
// a transport error.
type Client struct {
	cfg        config.MailConfig
	httpClient *http.Client
	tokens     *tokenSource
	logger     *zap.Logger
}

func NewClient(cfg config.MailConfig, logger *zap.Logger) *Client {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		tokens:     newTokenSource(cfg.TokenURL, cfg.ClientID, cfg.ClientSecret, httpClient, nil),
		logger:     logger,
	}
}

// Configured reports whether the transport credentials are present. Callers
// check this before creating any record so a misconfiguration never leaves a
// stray pending row.
func (c *Client) Configured() error {
	switch {
	case c.cfg.ClientID == "":
		return &xerrors.ConfigError{Field: "MAIL_CLIENT_ID"}
	case c.cfg.ClientSecret == "":
		return &xerrors.ConfigError{Field: "MAIL_CLIENT_SECRET"}
	case c.cfg.TokenURL == "":
		return &xerrors.ConfigError{Field: "MAIL_TOKEN_URL"}
	case c.cfg.APIURL == "":
		return &xerrors.ConfigError{Field: "MAIL_API_URL"}
	case c.cfg.FromAddress == "":
		return &xerrors.ConfigError{Field: "MAIL_FROM_ADDRESS"}
	}
	return nil
}

type sendPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
	From    string `json:"from"`
	ReplyTo string `json:"reply_to,omitempty"`
}

// Send delivers one message. The HTML body travels base64-encoded with a
// plain-text fallback derived from it.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if err := c.Configured(); err != nil {
		return err
	}
	if msg.To == "" {
		return &xerrors.ValidationError{Field: "recipient_email"}
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	from := c.cfg.FromAddress
	if c.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", c.cfg.FromName, c.cfg.FromAddress)
	}

	payload := sendPayload{
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    base64.StdEncoding.EncodeToString([]byte(msg.HTML)),
		Text:    PlainTextPreview(msg.HTML),
		From:    from,
		ReplyTo: c.cfg.ReplyTo,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/messages", c.cfg.APIURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &xerrors.TransportError{Msg: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// Token may have been revoked server-side; drop the cache so the next
		// send re-authenticates instead of failing the same way.
		c.tokens.Invalidate()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return &xerrors.TransportError{
			StatusCode: resp.StatusCode,
			Msg:        string(respBody),
		}
	}

	c.logger.Debug("mail transport accepted message",
		zap.String("recipient", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}
