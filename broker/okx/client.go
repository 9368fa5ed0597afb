// Package okx implements the exchange gateway against the OKX v5 REST API.
// Request signing, endpoint plumbing and the error-taxonomy mapping live
// here; retry and backoff policy belongs to the acquisition layer.
package okx

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/tradebot/broker"
)

// DefaultBaseURL is the AWS-fronted OKX endpoint.
const DefaultBaseURL = "https://aws.okx.com"

// Config carries the client credentials and transport knobs. Empty
// credentials put the client in public (unauthenticated) mode: market data
// works, account and order endpoints fail server-side.
type Config struct {
	APIKey     string
	SecretKey  string
	Passphrase string
	BaseURL    string
	Timeout    time.Duration
}

// Client is the OKX v5 REST client for a single instrument.
type Client struct {
	cfg        Config
	symbol     string
	httpClient *http.Client
}

// New returns a client trading symbol (e.g. "BTC-USDT").
func New(symbol string, cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:    cfg,
		symbol: symbol,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Symbol returns the instrument this client trades.
func (c *Client) Symbol() string { return c.symbol }

// Authenticated reports whether credentials are configured.
func (c *Client) Authenticated() bool { return c.cfg.APIKey != "" }

// sign produces the OK-ACCESS headers: HMAC-SHA256 of
// timestamp+method+path+body with the secret key, base64 encoded.
func (c *Client) sign(method, path, body string) map[string]string {
	ts := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	mac := hmac.New(sha256.New, []byte(c.cfg.SecretKey))
	mac.Write([]byte(ts + method + path + body))

	return map[string]string{
		"OK-ACCESS-KEY":        c.cfg.APIKey,
		"OK-ACCESS-SIGN":       base64.StdEncoding.EncodeToString(mac.Sum(nil)),
		"OK-ACCESS-TIMESTAMP":  ts,
		"OK-ACCESS-PASSPHRASE": c.cfg.Passphrase,
	}
}

// envelope is the OKX v5 response wrapper.
type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// Upstream throttles reply with an HTML page carrying "error code: NNNN".
var errorCodeRe = regexp.MustCompile(`error code: (\d+)`)

// do executes one request and maps the reply onto the wire error taxonomy.
func (c *Client) do(ctx context.Context, method, path, body string) (json.RawMessage, error) {
	var rd io.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", broker.ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.Authenticated() {
		for k, v := range c.sign(method, path, body) {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, fmt.Errorf("%w: %s %s", broker.ErrTimeout, method, path)
		}
		return nil, fmt.Errorf("%w: %v", broker.ErrNetwork, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", broker.ErrNetwork, err)
	}

	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		if m := errorCodeRe.FindSubmatch(raw); m != nil {
			code, _ := strconv.Atoi(string(m[1]))
			return nil, &broker.APIError{Code: code, Msg: strings.TrimSpace(string(raw))}
		}
		return nil, fmt.Errorf("%w: %.120s", broker.ErrInvalidResponse, raw)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", broker.ErrParse, err)
	}
	if env.Code != "" && env.Code != "0" {
		code, _ := strconv.Atoi(env.Code)
		return nil, &broker.APIError{Code: code, Msg: env.Msg}
	}
	return env.Data, nil
}

func parseF(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
