package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mufaro-dev/wabank/core/netutil"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// TwilioSender delivers WhatsApp messages through the Twilio Messages API.
type TwilioSender struct {
	accountSID string
	authToken  string
	senderID   string
	baseURL    string
	client     *http.Client
}

// TwilioOption customizes a TwilioSender.
type TwilioOption func(*TwilioSender)

// WithBaseURL overrides the API base URL, used by tests.
func WithBaseURL(u string) TwilioOption {
	return func(s *TwilioSender) { s.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) TwilioOption {
	return func(s *TwilioSender) { s.client = c }
}

// NewTwilioSender constructs a sender for the given account and WhatsApp number.
func NewTwilioSender(accountSID, authToken, senderID string, opts ...TwilioOption) *TwilioSender {
	s := &TwilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		senderID:   senderID,
		baseURL:    twilioAPIBase,
		client:     netutil.BuildHTTPClient(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send posts one message to the recipient's WhatsApp number.
func (s *TwilioSender) Send(ctx context.Context, phone, text string) error {
	form := url.Values{}
	form.Set("To", "whatsapp:+"+strings.TrimPrefix(phone, "+"))
	form.Set("From", "whatsapp:"+s.senderID)
	form.Set("Body", text)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.baseURL, s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("twilio request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.accountSID, s.authToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("twilio send: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("twilio send: unexpected status %s", resp.Status)
	}
	return nil
}
