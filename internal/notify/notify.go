package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Notifier defines a notification channel.
type Notifier interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// Template is the body format hint interpreted by the receiving app.
type Template string

const (
	TemplateMarkdown Template = "markdown"
	TemplateHTML     Template = "html"
	TemplateTxt      Template = "txt"
	TemplateJSON     Template = "json"
)

// Templates lists every supported template.
var Templates = []Template{TemplateMarkdown, TemplateHTML, TemplateTxt, TemplateJSON}

// ParseTemplate maps user input to a Template. Empty input yields markdown.
func ParseTemplate(s string) (Template, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return TemplateMarkdown, nil
	}
	t := Template(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q (want one of markdown, html, txt, json)", ErrInvalidTemplate, s)
	}
	return t, nil
}

func (t Template) Valid() bool {
	switch t {
	case TemplateMarkdown, TemplateHTML, TemplateTxt, TemplateJSON:
		return true
	}
	return false
}

func (t Template) String() string { return string(t) }

// Request is the outgoing payload. It is built once per run and never reused.
type Request struct {
	Token    string   `json:"token"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Template Template `json:"template"`
}

// Validate checks the invariants PushPlus relies on.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Token) == "" {
		return ErrMissingToken
	}
	if !r.Template.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTemplate, string(r.Template))
	}
	if strings.TrimSpace(r.Content) == "" {
		return ErrEmptyContent
	}
	return nil
}

// Response is the parsed service reply. Code 200 means accepted for delivery,
// not delivered.
type Response struct {
	Code    int
	Message string
	Data    string
	Raw     []byte
}

// Accepted reports whether the service took the message.
func (r *Response) Accepted() bool {
	return r != nil && r.Code == 200
}

// Configuration errors. ErrConfiguration tags any other invalid setting.
var (
	ErrConfiguration   = errors.New("configuration error")
	ErrMissingToken    = errors.New("PUSHPLUS_TOKEN is not set")
	ErrInvalidTemplate = errors.New("invalid template")
	ErrEmptyContent    = errors.New("content is empty")
)

// NetworkError reports a failure to reach the service (dial, TLS, timeout).
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Timeout reports whether the request ran out of time.
func (e *NetworkError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}

// ServiceError reports a response the service produced but did not accept.
// Code is the provider's own code from the JSON body; HTTPStatus is set only
// when the HTTP exchange itself failed and no body code was read.
type ServiceError struct {
	Code       int
	HTTPStatus int
	Message    string
}

func (e *ServiceError) Error() string {
	var prefix string
	switch {
	case e.HTTPStatus != 0:
		prefix = fmt.Sprintf("service error: http %d", e.HTTPStatus)
	case e.Code != 0:
		prefix = fmt.Sprintf("service error: code %d", e.Code)
	default:
		prefix = "service error"
	}
	if e.Message == "" {
		return prefix
	}
	return prefix + ": " + e.Message
}

// Kind names the error class for log output.
func Kind(err error) string {
	var netErr *NetworkError
	var svcErr *ServiceError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &netErr):
		return "NetworkError"
	case errors.As(err, &svcErr):
		return "ServiceError"
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrMissingToken),
		errors.Is(err, ErrInvalidTemplate), errors.Is(err, ErrEmptyContent):
		return "ConfigurationError"
	default:
		return "Error"
	}
}
