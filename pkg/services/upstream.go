package services

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/yuna-ai/yuna-server/pkg/errors"
)

// UpstreamResponse is the raw passthrough result of an upstream call
type UpstreamResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// UpstreamService forwards a request payload to one opaque collaborator and
// passes its response back unchanged, preserving the original HTTP method
type UpstreamService interface {
	Forward(ctx context.Context, username, method, contentType string, body []byte) (*UpstreamResponse, error)
}

// RestyUpstream forwards payloads to a single upstream endpoint over HTTP.
// The authenticated identity travels in the X-Yuna-User header; the rest of
// the exchange is opaque.
type RestyUpstream struct {
	name   string
	url    string
	client *resty.Client
}

// NewRestyUpstream creates a forwarder for the named collaborator
func NewRestyUpstream(name, url string, timeout time.Duration, retryCount int) *RestyUpstream {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(retryCount).
		SetRetryWaitTime(200 * time.Millisecond)

	return &RestyUpstream{
		name:   name,
		url:    url,
		client: client,
	}
}

// Name returns the collaborator name this forwarder serves
func (u *RestyUpstream) Name() string {
	return u.name
}

// Configured reports whether an upstream endpoint is set
func (u *RestyUpstream) Configured() bool {
	return u.url != ""
}

// Forward sends the payload to the upstream endpoint with the caller's
// original method
func (u *RestyUpstream) Forward(ctx context.Context, username, method, contentType string, body []byte) (*UpstreamResponse, error) {
	if !u.Configured() {
		return nil, errors.NewServiceUnavailableError(u.name, nil)
	}

	req := u.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetHeader("X-Yuna-User", username)
	if len(body) > 0 {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, u.url)
	if err != nil {
		return nil, errors.NewServiceUnavailableError(u.name, err)
	}

	return &UpstreamResponse{
		StatusCode:  resp.StatusCode(),
		ContentType: resp.Header().Get("Content-Type"),
		Body:        resp.Body(),
	}, nil
}
