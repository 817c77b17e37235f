// Package client talks to a running rtdconv server over its HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/charlie0129/rtdconv/pkg/types"
)

const (
	unixPrefix = "unix://"
	apiPrefix  = "/api/v1"
)

// Client is a struct for communicating with the rtdconv server
type Client struct {
	addr       string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for addr, which is either a base URL such as
// http://127.0.0.1:5000, a bare host:port, or unix:///path/to/sock.
func NewClient(addr string) *Client {
	c := &Client{addr: addr}

	if socketPath, ok := strings.CutPrefix(addr, unixPrefix); ok {
		c.baseURL = "http://unix"
		c.httpClient = &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					var d net.Dialer
					conn, err := d.DialContext(ctx, "unix", socketPath)
					if err != nil {
						if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED) {
							return nil, ErrServerNotRunning
						}
						if errors.Is(err, os.ErrPermission) {
							return nil, ErrPermissionDenied
						}
						logrus.Errorf("failed to connect to unix socket: %v", err)
						return nil, err
					}
					return conn, nil
				},
			},
		}
		return c
	}

	c.baseURL = strings.TrimSuffix(addr, "/")
	if !strings.Contains(c.baseURL, "://") {
		c.baseURL = "http://" + c.baseURL
	}
	c.httpClient = &http.Client{Timeout: time.Minute}
	return c
}

// Send sends a request with the given content type and returns the raw
// response body. Non-2xx responses become errors carrying the server message.
func (c *Client) Send(method, path, contentType string, body io.Reader) ([]byte, http.Header, error) {
	logrus.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
		"addr":   c.addr,
	}).Debug("sending request")

	req, err := http.NewRequest(method, c.baseURL+apiPrefix+path, body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return nil, nil, ErrServerNotRunning
		}
		return nil, nil, fmt.Errorf("failed to send request: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			logrus.Errorf("failed to close response body: %v", err)
		}
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, responseError(resp.StatusCode, b)
	}

	return b, resp.Header, nil
}

// Get is a method for sending a GET request to the server
func (c *Client) Get(path string) ([]byte, error) {
	b, _, err := c.Send(http.MethodGet, path, "", nil)
	return b, err
}

// Put is a method for sending a JSON PUT request to the server
func (c *Client) Put(path string, data string) ([]byte, error) {
	b, _, err := c.Send(http.MethodPut, path, "application/json", strings.NewReader(data))
	return b, err
}

// Post is a method for sending a JSON POST request to the server
func (c *Client) Post(path string, data []byte) ([]byte, error) {
	b, _, err := c.Send(http.MethodPost, path, "application/json", bytes.NewReader(data))
	return b, err
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
	// Kind is the error kind of a failed conversion, if any.
	Kind string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("got %d (%s): %s", e.StatusCode, e.Kind, e.Message)
	}
	return fmt.Sprintf("got %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

func responseError(status int, body []byte) error {
	e := &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}

	var er types.ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != "" {
		e.Message = er.Error
		e.Kind = er.Kind
	}
	return e
}
