// Package paynow implements the slice of the Paynow wire protocol this
// system needs: dispatching a mobile-money charge and verifying the hash on
// the asynchronous result callback.
package paynow

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"log/slog"

	"github.com/mufaro-dev/wabank/core/bank"
	"github.com/mufaro-dev/wabank/core/logger"
	"github.com/mufaro-dev/wabank/core/netutil"
)

const mobileMethod = "ecocash"

// Options configures a Client.
type Options struct {
	IntegrationID  string
	IntegrationKey string
	InitiateURL    string
	// ResultURL is where Paynow posts the settlement callback.
	ResultURL string
	// AuthEmail is attached to mobile transactions as required by the API.
	AuthEmail string
	// HTTPClient overrides the default tuned client, used by tests.
	HTTPClient *http.Client
}

// Client talks to the Paynow remote transaction interface.
type Client struct {
	opts   Options
	client *http.Client
}

// NewClient constructs a Paynow client.
func NewClient(opts Options) *Client {
	c := &Client{opts: opts, client: opts.HTTPClient}
	if c.client == nil {
		c.client = netutil.BuildHTTPClient()
	}
	return c
}

// ChargeMobile dispatches a mobile-money charge for the given payment
// reference. The user completes the charge on their handset via a PIN
// prompt; the outcome arrives later on the result URL.
func (c *Client) ChargeMobile(ctx context.Context, reference string, amount bank.Amount, wallet string) error {
	fields := orderedFields{
		{"resulturl", c.opts.ResultURL},
		{"returnurl", c.opts.ResultURL},
		{"reference", reference},
		{"amount", amount.String()},
		{"id", c.opts.IntegrationID},
		{"additionalinfo", "TOPUP"},
		{"authemail", c.opts.AuthEmail},
		{"phone", wallet},
		{"method", mobileMethod},
		{"status", "Message"},
	}
	fields = append(fields, field{"hash", hashFields(fields, c.opts.IntegrationKey)})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.InitiateURL, strings.NewReader(fields.encode()))
	if err != nil {
		return fmt.Errorf("paynow request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("paynow initiate: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("paynow response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("paynow initiate: unexpected status %s", resp.Status)
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return fmt.Errorf("paynow response: %w", err)
	}
	if !strings.EqualFold(values.Get("status"), "ok") {
		return fmt.Errorf("paynow initiate rejected: %s", values.Get("error"))
	}

	logger.PAY.Info("charge dispatched",
		slog.String("event", "charge.dispatch"),
		slog.String("reference", reference),
		slog.String("amount", amount.String()),
	)
	return nil
}

// VerifyHash checks the authenticity proof on a raw urlencoded callback
// body. Paynow hashes field values in the order they appear, so the raw body
// is required rather than parsed values.
func (c *Client) VerifyHash(rawBody string) bool {
	var concat strings.Builder
	var provided string
	for _, pair := range strings.Split(rawBody, "&") {
		k, v, _ := strings.Cut(pair, "=")
		decoded, err := url.QueryUnescape(v)
		if err != nil {
			return false
		}
		if strings.EqualFold(k, "hash") {
			provided = decoded
			continue
		}
		concat.WriteString(decoded)
	}
	if provided == "" {
		return false
	}
	concat.WriteString(c.opts.IntegrationKey)
	sum := sha512.Sum512([]byte(concat.String()))
	return strings.EqualFold(hex.EncodeToString(sum[:]), provided)
}

type field struct {
	key   string
	value string
}

type orderedFields []field

func (f orderedFields) encode() string {
	var b strings.Builder
	for i, pair := range f {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(pair.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(pair.value))
	}
	return b.String()
}

// hashFields concatenates field values in order, appends the integration
// key, and returns the uppercase SHA512 hex digest.
func hashFields(fields orderedFields, integrationKey string) string {
	var concat strings.Builder
	for _, pair := range fields {
		concat.WriteString(pair.value)
	}
	concat.WriteString(integrationKey)
	sum := sha512.Sum512([]byte(concat.String()))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
