package pushplus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/chyiyaqing/pushnotify/internal/notify"
)

// DefaultEndpoint is the PushPlus send API.
const DefaultEndpoint = "http://www.pushplus.plus/send"

// DefaultTimeout bounds the single request.
const DefaultTimeout = 10 * time.Second

const maxResponseBytes = 64 << 10

// Client sends messages via the PushPlus API.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New creates a PushPlus notifier. An empty endpoint uses DefaultEndpoint and
// a non-positive timeout uses DefaultTimeout.
func New(endpoint string, timeout time.Duration) *Client {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

var _ notify.Notifier = (*Client)(nil)

// Endpoint is the URL requests are posted to.
func (c *Client) Endpoint() string { return c.endpoint }

// Timeout is the bound on the whole request.
func (c *Client) Timeout() time.Duration { return c.httpClient.Timeout }

// Send posts req once. It returns *notify.NetworkError when the service
// cannot be reached and *notify.ServiceError when the reply is not an
// acceptance. There are no retries.
func (c *Client) Send(ctx context.Context, req notify.Request) (*notify.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	payload, err := encodeRequest(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &notify.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &notify.NetworkError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &notify.ServiceError{
			HTTPStatus: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	result, err := ParseResponse(body)
	if err != nil {
		return nil, err
	}
	if !result.Accepted() {
		return result, &notify.ServiceError{Code: result.Code, Message: result.Message}
	}
	return result, nil
}

// encodeRequest marshals without HTML escaping so html templates and CJK
// text go out byte-for-byte.
func encodeRequest(req notify.Request) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(req); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ParseResponse reads a PushPlus reply of the form {code, msg, data}. The
// data field varies by endpoint, so it is kept as raw JSON.
func ParseResponse(body []byte) (*notify.Response, error) {
	if !gjson.ValidBytes(body) {
		return nil, &notify.ServiceError{Message: fmt.Sprintf("malformed response: %q", truncate(string(body), 200))}
	}
	parsed := gjson.ParseBytes(body)
	code := parsed.Get("code")
	if !code.Exists() {
		return nil, &notify.ServiceError{Message: "response has no code field"}
	}
	return &notify.Response{
		Code:    int(code.Int()),
		Message: parsed.Get("msg").String(),
		Data:    parsed.Get("data").Raw,
		Raw:     body,
	}, nil
}

// Pretty indents a raw response for log output.
func Pretty(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	return strings.TrimSpace(string(pretty.Pretty(raw)))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
