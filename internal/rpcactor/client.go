// Package rpcactor talks to the actor over HTTP. Each call is a POST to
// <base>/call/<method> whose body is the msgpack-encoded argument array; a 200 response
// carries the msgpack-encoded return value, anything else is a rejection.
package rpcactor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"cancan-client/internal/actor"
	"cancan-client/internal/config"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

const contentType = "application/msgpack"

var ErrRejected = errors.New("actor rejected call")

// RejectError describes a call the actor refused or failed to run.
type RejectError struct {
	Method  string `msgpack:"-"`
	Status  int    `msgpack:"-"`
	Code    string `msgpack:"code"`
	Message string `msgpack:"message"`
}

func (e *RejectError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("actor call %s: %d %s: %s", e.Method, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("actor call %s: %d: %s", e.Method, e.Status, e.Message)
}

func (e *RejectError) Unwrap() error { return ErrRejected }

// doer is the part of *http.Client the transport uses (for mocking in tests).
type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	baseURL string
	http    doer
	log     *zap.Logger
}

var _ actor.Actor = (*Client)(nil)

func New(cfg *config.Config, log *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.ActorURL, "/"),
		http:    &http.Client{Timeout: cfg.ActorTimeout},
		log:     log,
	}
}

// call runs method and decodes its return value into T.
func call[T any](ctx context.Context, c *Client, method string, args ...any) (T, error) {
	var out T
	body, err := c.roundTrip(ctx, method, args)
	if err != nil {
		return out, err
	}
	if err := msgpack.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode %s result: %w", method, err)
	}
	return out, nil
}

// exec runs a method whose return value is ignored.
func (c *Client) exec(ctx context.Context, method string, args ...any) error {
	_, err := c.roundTrip(ctx, method, args)
	return err
}

func (c *Client) roundTrip(ctx context.Context, method string, args []any) ([]byte, error) {
	if args == nil {
		args = []any{}
	}
	payload, err := msgpack.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode %s args: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/call/"+method, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("actor call %s: %w", method, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		rej := &RejectError{Method: method, Status: resp.StatusCode}
		if strings.HasPrefix(resp.Header.Get("Content-Type"), contentType) {
			_ = msgpack.Unmarshal(body, rej)
		}
		if rej.Message == "" {
			rej.Message = strings.TrimSpace(string(body))
		}
		c.log.Debug("Actor call rejected", zap.String("method", method), zap.Int("status", resp.StatusCode), zap.String("code", rej.Code))
		return nil, rej
	}
	return body, nil
}
