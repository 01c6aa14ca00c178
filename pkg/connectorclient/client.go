// Package connectorclient is a client of the connector RPC endpoint.
package connectorclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	pkgerrors "github.com/Conte777/NewsFlow/services/connector-service/pkg/errors"
)

const (
	// SessionHeader carries the session string in both directions
	SessionHeader = "X-Telegram-Session"
	// NoSession is the wire sentinel for an absent session
	NoSession = "no-session"

	rpcPath         = "/api/v1/telegram"
	diagnosticsPath = "/api/v1/diagnostics"
	transformPath   = "/api/v1/transform"

	defaultTimeout = 90 * time.Second
)

// Doer performs one HTTP exchange; *fasthttp.Client implements it
type Doer interface {
	DoTimeout(req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error
}

// Config holds client configuration
type Config struct {
	BaseURL string
	// Token is sent as a bearer token when set.
	Token   string
	Timeout time.Duration
}

// Client calls the connector over HTTP
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	http    Doer
}

// New creates a client backed by a fasthttp.Client
func New(cfg Config) *Client {
	return NewWithDoer(cfg, &fasthttp.Client{Name: "connectorctl"})
}

// NewWithDoer creates a client over an arbitrary Doer
func NewWithDoer(cfg Config, doer Doer) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		timeout: timeout,
		http:    doer,
	}
}

// Request is the RPC request body
type Request struct {
	Operation        string   `json:"operation"`
	APIID            string   `json:"apiId,omitempty"`
	APIHash          string   `json:"apiHash,omitempty"`
	PhoneNumber      string   `json:"phoneNumber,omitempty"`
	AccountID        string   `json:"accountId,omitempty"`
	SessionString    string   `json:"sessionString,omitempty"`
	VerificationCode string   `json:"verificationCode,omitempty"`
	PhoneCodeHash    string   `json:"phoneCodeHash,omitempty"`
	Password         string   `json:"password,omitempty"`
	ChannelNames     []string `json:"channelNames,omitempty"`
	MessageID        int      `json:"messageId,omitempty"`
	SourceChannel    string   `json:"sourceChannel,omitempty"`
	TargetChannel    string   `json:"targetChannel,omitempty"`
	Logout           bool     `json:"logout,omitempty"`
}

// ListenResult is the per-channel outcome of a listen call
type ListenResult struct {
	Channel string `json:"channel"`
	Title   string `json:"title,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Message is a channel message as returned by listen
type Message struct {
	Channel   string    `json:"channel"`
	ID        int       `json:"id"`
	Text      string    `json:"text"`
	Date      time.Time `json:"date"`
	Sender    string    `json:"sender,omitempty"`
	FinalText string    `json:"finalText,omitempty"`
}

// Response is the RPC response body
type Response struct {
	Success        bool            `json:"success"`
	Error          string          `json:"error,omitempty"`
	ErrorKind      string          `json:"errorKind,omitempty"`
	Title          string          `json:"title,omitempty"`
	CodeNeeded     bool            `json:"codeNeeded,omitempty"`
	PasswordNeeded bool            `json:"passwordNeeded,omitempty"`
	PhoneCodeHash  string          `json:"phoneCodeHash,omitempty"`
	CodeType       string          `json:"codeType,omitempty"`
	CodeTimeout    int             `json:"codeTimeout,omitempty"`
	TestCode       string          `json:"testCode,omitempty"`
	Session        string          `json:"session,omitempty"`
	Authenticated  *bool           `json:"authenticated,omitempty"`
	Reachable      *bool           `json:"reachable,omitempty"`
	Results        []ListenResult  `json:"results,omitempty"`
	Messages       []Message       `json:"messages,omitempty"`
	Status         json.RawMessage `json:"status,omitempty"`
}

// NormalizeSession maps blank and sentinel sessions to the empty string
func NormalizeSession(s string) string {
	s = strings.TrimSpace(s)
	if s == NoSession {
		return ""
	}
	return s
}

// Call performs one RPC operation. A response with success=false is
// returned as a kinded error; Session holds the header value when present,
// else the body value.
func (c *Client) Call(ctx context.Context, r Request) (*Response, error) {
	r.SessionString = NormalizeSession(r.SessionString)

	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var out Response
	header, err := c.do(ctx, fasthttp.MethodPost, rpcPath, body, r.SessionString, &out)
	if err != nil {
		return nil, err
	}

	if s := NormalizeSession(header); s != "" {
		out.Session = s
	} else {
		out.Session = NormalizeSession(out.Session)
	}

	if !out.Success {
		return &out, responseError(out.ErrorKind, out.Error)
	}
	return &out, nil
}

// Diagnostics fetches the connectivity report
func (c *Client) Diagnostics(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	if _, err := c.do(ctx, fasthttp.MethodGet, diagnosticsPath, nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TransformResult is the transformer preview of one text
type TransformResult struct {
	DetectedCompetitors []string `json:"detectedCompetitors"`
	ModifiedText        string   `json:"modifiedText"`
	FinalText           string   `json:"finalText"`
}

// Transform previews the transformer on text with the configured handles
func (c *Client) Transform(ctx context.Context, text string) (*TransformResult, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var out struct {
		Success   bool            `json:"success"`
		Data      TransformResult `json:"data"`
		Error     string          `json:"error"`
		ErrorKind string          `json:"errorKind"`
	}
	if _, err := c.do(ctx, fasthttp.MethodPost, transformPath, body, "", &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, responseError(out.ErrorKind, out.Error)
	}
	return &out.Data, nil
}

// do sends one request and decodes the JSON body into out. Non-2xx
// statuses are decoded too, since errors travel in the body.
func (c *Client) do(ctx context.Context, method, path string, body []byte, session string, out interface{}) (string, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}

	if err := ctx.Err(); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.KindTransportFailure, err, "request cancelled")
	}
	if err := c.http.DoTimeout(req, resp, c.timeoutFor(ctx)); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.KindTransportFailure, err, "connector request failed")
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		if resp.StatusCode() >= 300 {
			return "", pkgerrors.Newf(pkgerrors.KindDeploymentUnavailable, "connector answered HTTP %d", resp.StatusCode())
		}
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return string(resp.Header.Peek(SessionHeader)), nil
}

func (c *Client) timeoutFor(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < c.timeout {
			return left
		}
	}
	return c.timeout
}

func responseError(kind, message string) error {
	if message == "" {
		message = "request failed"
	}
	return pkgerrors.New(pkgerrors.Kind(kind), message)
}
