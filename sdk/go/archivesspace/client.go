// Copyright (C) The Arvados Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package archivesspace

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aspace-tools/aspace-go/sdk/go/ctxlog"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
)

// Endpoint identifies an ArchivesSpace backend.
type Endpoint struct {
	// Protocol scheme: "http", "https", or "" (https)
	Scheme string
	Host   string
	// Zero means the scheme's default port.
	Port int
}

// String returns the base URL, e.g., "http://localhost:8089".
func (e Endpoint) String() string {
	u := url.URL{Scheme: e.scheme(), Host: e.hostPort()}
	return u.String()
}

func (e Endpoint) scheme() string {
	if e.Scheme == "" {
		return "https"
	}
	return e.Scheme
}

func (e Endpoint) hostPort() string {
	if e.Port == 0 {
		return e.Host
	}
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// url returns the absolute URL for the given path, which may carry
// its own query string.
func (e Endpoint) url(path string) (*url.URL, error) {
	if e.Host == "" {
		return nil, errors.New("archivesspace.Client cannot perform request: host is not set")
	}
	rel, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", path, err)
	}
	if rel.IsAbs() || rel.Host != "" {
		return nil, fmt.Errorf("invalid path %q: must be relative to the endpoint", path)
	}
	u := &url.URL{
		Scheme:   e.scheme(),
		Host:     e.hostPort(),
		Path:     "/" + strings.TrimPrefix(rel.Path, "/"),
		RawQuery: rel.RawQuery,
	}
	return u, nil
}

// Credentials are used by Connect to obtain a session.
type Credentials struct {
	Username string
	Password string `json:"-"`
}

// A Client talks to an ArchivesSpace backend on behalf of one user.
//
// Exported fields should be set before the first call to Connect and
// not changed afterward.
type Client struct {
	// HTTP client used to make requests. If nil,
	// DefaultSecureClient or InsecureHTTPClient will be used.
	Client *http.Client

	Endpoint    Endpoint
	Credentials Credentials

	// Accept unverified certificates. This works only if the
	// Client field is nil: otherwise, it has no effect.
	Insecure bool

	// Timeout for each request, including reading the response
	// body. Zero means rely on the context deadline only.
	Timeout time.Duration

	// Number of times to retry a request that failed to connect
	// or got a 502/503/504 response. Zero (the default) means
	// never retry.
	Retries int

	// HTTP headers to add/override in outgoing requests.
	SendHeader http.Header

	// Encoder for POST bodies. If nil, encoding/json is used.
	MarshalJSON func(interface{}) ([]byte, error)

	// Logger for failed requests. If nil, the logger attached to
	// the request context (see ctxlog) is used.
	Logger logrus.FieldLogger

	mtx     sync.Mutex
	session *Session
	metrics *clientMetrics
}

// InsecureHTTPClient is the default http.Client used by a Client with
// Insecure==true and Client==nil.
var InsecureHTTPClient = &http.Client{
	Transport: &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true}}}

// DefaultSecureClient is the default http.Client used by a Client otherwise.
var DefaultSecureClient = &http.Client{}

var (
	retryWaitMin = time.Second
	retryWaitMax = 16 * time.Second
)

// NewClient returns a Client for the given backend and credentials.
func NewClient(scheme, host string, port int, username, password string) *Client {
	return &Client{
		Endpoint:    Endpoint{Scheme: scheme, Host: host, Port: port},
		Credentials: Credentials{Username: username, Password: password},
		Timeout:     5 * time.Minute,
	}
}

// RequestGet sends a GET request for path with params in the query
// string, and decodes the JSON response into dst (which may be nil).
func (c *Client) RequestGet(ctx context.Context, dst interface{}, path string, params *Params) error {
	session, err := c.currentSession()
	if err != nil {
		return err
	}
	u, err := c.Endpoint.url(path)
	if err != nil {
		return err
	}
	q, err := params.Encode()
	if err != nil {
		return err
	}
	if q != "" {
		if u.RawQuery != "" {
			u.RawQuery += "&" + q
		} else {
			u.RawQuery = q
		}
	}
	return c.doAndDecode(ctx, session, dst, http.MethodGet, u, nil, "")
}

// RequestPost sends body (encoded as JSON) in a POST request for
// path, and decodes the JSON response into dst (which may be nil). A
// nil body is sent as an empty object.
func (c *Client) RequestPost(ctx context.Context, dst interface{}, path string, body interface{}) error {
	session, err := c.currentSession()
	if err != nil {
		return err
	}
	u, err := c.Endpoint.url(path)
	if err != nil {
		return err
	}
	if body == nil {
		body = struct{}{}
	}
	marshal := c.MarshalJSON
	if marshal == nil {
		marshal = json.Marshal
	}
	buf, err := marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}
	return c.doAndDecode(ctx, session, dst, http.MethodPost, u, buf, "application/json")
}

// Request dispatches to RequestGet or RequestPost. Any other method
// returns ErrBadRequestType without sending anything.
func (c *Client) Request(ctx context.Context, dst interface{}, method, path string, params *Params) error {
	switch strings.ToUpper(method) {
	case http.MethodGet:
		return c.RequestGet(ctx, dst, path, params)
	case http.MethodPost:
		if params == nil {
			return c.RequestPost(ctx, dst, path, nil)
		}
		return c.RequestPost(ctx, dst, path, params)
	default:
		return fmt.Errorf("%w: %q", ErrBadRequestType, method)
	}
}

func (c *Client) doAndDecode(ctx context.Context, session *Session, dst interface{}, method string, u *url.URL, body []byte, contentType string) error {
	resp, err := c.do(ctx, session, method, u, body, contentType)
	if err != nil {
		return c.transportError(ctx, method, u, err)
	}
	defer resp.Body.Close()
	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.transportError(ctx, method, u, err)
	}
	if resp.StatusCode != http.StatusOK {
		txErr := newTransactionError(method, u, resp, buf)
		c.logger(ctx).WithFields(logrus.Fields{
			"reqMethod":      method,
			"reqURL":         u.String(),
			"respStatusCode": resp.StatusCode,
			"respBody":       string(buf),
		}).Error(statusLogMessage(resp.StatusCode))
		return txErr
	}
	if dst == nil {
		return nil
	}
	if err := json.Unmarshal(buf, dst); err != nil {
		return fmt.Errorf("decoding response from %s %s: %w", method, u.String(), err)
	}
	return nil
}

func statusLogMessage(code int) string {
	switch code {
	case http.StatusForbidden:
		return "forbidden -- check your credentials"
	case http.StatusBadRequest:
		return "bad request"
	case http.StatusNotFound:
		return "not found"
	case http.StatusInternalServerError:
		return "internal server error"
	default:
		return "unexpected response status " + strconv.Itoa(code)
	}
}

// transportError wraps a failure to send a request or read its
// response. If the caller's context is done, its error is returned
// as is.
func (c *Client) transportError(ctx context.Context, method string, u *url.URL, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	c.logger(ctx).WithError(err).WithFields(logrus.Fields{
		"reqMethod": method,
		"reqURL":    u.String(),
	}).Error("unable to connect to ArchivesSpace -- check the host information")
	return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
}

// do sends a request, adding the session and X-Request-Id headers.
// If session is nil, no session header is sent.
func (c *Client) do(ctx context.Context, session *Session, method string, u *url.URL, body []byte, contentType string) (*http.Response, error) {
	var cancel context.CancelFunc
	if c.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
	}
	var rawBody interface{}
	if body != nil {
		rawBody = body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, u.String(), rawBody)
	if err != nil {
		if cancel != nil {
			cancel()
		}
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	reqid, _ := ctx.Value(contextKeyRequestID{}).(string)
	if reqid == "" {
		reqid = reqIDGen.Next()
	}
	req.Header.Set("X-Request-Id", reqid)
	setHeaders(req.Header, c.SendHeader)
	if session != nil {
		// The session token always wins over SendHeader.
		setHeaders(req.Header, session.header)
	}

	t0 := time.Now()
	resp, err := c.retryClient(ctx).Do(req)
	c.observe(method, resp, err, time.Since(t0))
	if err == nil && cancel != nil {
		// The context has to stay alive until the caller has
		// finished reading the response body.
		resp.Body = cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	} else if cancel != nil {
		cancel()
	}
	return resp, err
}

// setHeaders replaces the values in dst of every header in src,
// using canonical keys.
func setHeaders(dst, src http.Header) {
	for k, vs := range src {
		dst.Del(k)
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}

// cancelOnClose calls a provided CancelFunc when its wrapped
// ReadCloser's Close() method is called.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (coc cancelOnClose) Close() error {
	err := coc.ReadCloser.Close()
	coc.cancel()
	return err
}

func (c *Client) retryClient(ctx context.Context) *retryablehttp.Client {
	return &retryablehttp.Client{
		HTTPClient:   c.httpClient(),
		Logger:       retryLogger{c.logger(ctx)},
		RetryWaitMin: retryWaitMin,
		RetryWaitMax: retryWaitMax,
		RetryMax:     c.Retries,
		CheckRetry:   checkRetry,
		Backoff:      retryablehttp.DefaultBackoff,
		// Hand back the last response/error instead of
		// replacing it with a "giving up" error, so status
		// codes reach the caller.
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
	}
}

// checkRetry retries connection failures and gateway errors. Whether
// a retry actually happens is up to Client.Retries.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, nil
	}
	if err != nil {
		return true, nil
	}
	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true, nil
	}
	return false, nil
}

func (c *Client) httpClient() *http.Client {
	switch {
	case c.Client != nil:
		return c.Client
	case c.Insecure:
		return InsecureHTTPClient
	default:
		return DefaultSecureClient
	}
}

func (c *Client) logger(ctx context.Context) logrus.FieldLogger {
	if c.Logger != nil {
		return c.Logger
	}
	return ctxlog.FromContext(ctx)
}

// retryLogger adapts logrus to retryablehttp.LeveledLogger.
type retryLogger struct {
	logger logrus.FieldLogger
}

func (l retryLogger) with(keysAndValues []interface{}) logrus.FieldLogger {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return l.logger.WithFields(fields)
}

func (l retryLogger) Error(msg string, keysAndValues ...interface{}) {
	// Failures are logged (once) by the Client itself.
	l.with(keysAndValues).Debug(msg)
}

func (l retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.with(keysAndValues).Info(msg)
}

func (l retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.with(keysAndValues).Debug(msg)
}

func (l retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.with(keysAndValues).Warn(msg)
}

var _ retryablehttp.LeveledLogger = retryLogger{}

// String describes the client without revealing credentials.
func (c *Client) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "archivesspace.Client{%s", c.Endpoint)
	if c.Credentials.Username != "" {
		fmt.Fprintf(&buf, " user=%s", c.Credentials.Username)
	}
	if c.Session() != nil {
		buf.WriteString(" connected")
	}
	buf.WriteString("}")
	return buf.String()
}
