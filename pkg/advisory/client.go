package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/mpapenbr/datalog-analyzer-go/log"
)

var ErrUnavailable = errors.New("advisory unavailable")

// FallbackMessage replaces the advisory text if the generator fails.
const FallbackMessage = "AI advisory is currently unavailable. " +
	"The checklist and metrics were computed locally and are complete."

const (
	DefaultTextPath = "$.choices[0].message.content"
	DefaultTimeout  = 30 * time.Second

	systemPrompt = "You are an automotive performance tuner. " +
		"Review the datalog observations and give concise, safety-first advice."
)

type Client struct {
	url        string
	apiKey     string
	model      string
	textPath   jp.Expr
	httpClient *http.Client
	timeout    time.Duration
	log        *log.Logger
}

type Option func(*Client)

func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithHTTPClient sets the client used for requests. It is not modified,
// a timeout given by WithTimeout applies to a copy.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient creates a client for an OpenAI style chat completion endpoint.
// textPath is the JSONPath of the generated text in the response, empty uses
// DefaultTextPath. An empty url yields a client that is always unavailable.
func NewClient(url, textPath string, opts ...Option) (*Client, error) {
	if textPath == "" {
		textPath = DefaultTextPath
	}
	path, err := jp.ParseString(textPath)
	if err != nil {
		return nil, fmt.Errorf("invalid advisory text path %q: %w", textPath, err)
	}
	ret := &Client{
		url:      url,
		textPath: path,
		log:      log.Default().Named("advisory"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	switch {
	case ret.httpClient == nil:
		ret.httpClient = &http.Client{Timeout: DefaultTimeout}
		if ret.timeout > 0 {
			ret.httpClient.Timeout = ret.timeout
		}
	case ret.timeout > 0:
		hc := *ret.httpClient
		hc.Timeout = ret.timeout
		ret.httpClient = &hc
	}
	return ret, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model,omitempty"`
	Messages []chatMessage `json:"messages"`
}

// Advise sends the observations to the generator and returns its text.
// All failures wrap ErrUnavailable.
func (c *Client) Advise(ctx context.Context, obs *Observations) (string, error) {
	if c.url == "" {
		return "", fmt.Errorf("%w: no endpoint configured", ErrUnavailable)
	}
	payload, err := json.Marshal(obs)
	if err != nil {
		return "", fmt.Errorf("%w: encode observations: %w", ErrUnavailable, err)
	}
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(payload)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %w", ErrUnavailable, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s",
			ErrUnavailable, resp.StatusCode, truncate(string(data), 200))
	}
	text, err := c.extractText(data)
	if err != nil {
		return "", err
	}
	c.log.Debug("advisory received",
		log.Duration("took", time.Since(start)),
		log.Int("length", len(text)))
	return text, nil
}

func (c *Client) extractText(data []byte) (string, error) {
	obj, err := oj.Parse(data)
	if err != nil {
		return "", fmt.Errorf("%w: invalid response: %w", ErrUnavailable, err)
	}
	res := c.textPath.Get(obj)
	if len(res) == 0 {
		return "", fmt.Errorf("%w: no text at %s", ErrUnavailable, c.textPath)
	}
	text, ok := res[0].(string)
	if !ok || strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty text at %s", ErrUnavailable, c.textPath)
	}
	return strings.TrimSpace(text), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
