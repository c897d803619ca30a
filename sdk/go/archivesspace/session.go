// Copyright (C) The Arvados Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package archivesspace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// SessionHeader is the request header that carries the session
// token on every authenticated call.
const SessionHeader = "X-ArchivesSpace-Session"

// User is the authenticated user described by a login response.
type User struct {
	URI          string              `json:"uri"`
	Username     string              `json:"username"`
	Name         string              `json:"name"`
	IsAdmin      bool                `json:"is_admin"`
	IsSystemUser bool                `json:"is_system_user"`
	LockVersion  int                 `json:"lock_version"`
	Permissions  map[string][]string `json:"permissions,omitempty"`
}

// Session is the result of a successful Connect. A Session is never
// modified after it is created; Connect replaces it with a new one.
type Session struct {
	// Token issued by the server.
	Token string
	// Authenticated user.
	User User
	// Full login response.
	Raw map[string]interface{}

	header http.Header
}

type loginResponse struct {
	Session string `json:"session"`
	User    User   `json:"user"`
}

func newSession(buf []byte) (*Session, error) {
	var lr loginResponse
	if err := json.Unmarshal(buf, &lr); err != nil {
		return nil, fmt.Errorf("decoding login response: %w", err)
	}
	if lr.Session == "" {
		return nil, fmt.Errorf("login response has no session token")
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(buf, &raw); err != nil {
		return nil, fmt.Errorf("decoding login response: %w", err)
	}
	header := http.Header{}
	header.Set(SessionHeader, lr.Session)
	return &Session{
		Token:  lr.Session,
		User:   lr.User,
		Raw:    raw,
		header: header,
	}, nil
}

// Header returns a copy of the headers attached to requests made
// with this session.
func (s *Session) Header() http.Header {
	return s.header.Clone()
}

// Connect logs in with the client's credentials and stores the
// resulting session, replacing any previous one. It must be called
// before any other request.
//
// A non-200 response, or a 200 response without a session token,
// returns an error matching ErrAuthenticationFailed; the client is
// left without a session in that case. A network failure returns an
// error matching ErrConnectionFailed.
func (c *Client) Connect(ctx context.Context) error {
	u, err := c.Endpoint.url("/users/" + url.PathEscape(c.Credentials.Username) + "/login")
	if err != nil {
		return err
	}
	form := url.Values{"password": {c.Credentials.Password}}
	resp, err := c.do(ctx, nil, http.MethodPost, u, []byte(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		c.setSession(nil)
		return c.transportError(ctx, http.MethodPost, u, err)
	}
	defer resp.Body.Close()
	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		c.setSession(nil)
		return c.transportError(ctx, http.MethodPost, u, err)
	}
	logger := c.logger(ctx).WithField("username", c.Credentials.Username)
	if resp.StatusCode != http.StatusOK {
		c.setSession(nil)
		txErr := newTransactionError(http.MethodPost, u, resp, buf)
		logger.WithField("respStatusCode", resp.StatusCode).Error("couldn't authenticate")
		return fmt.Errorf("%w: %w", ErrAuthenticationFailed, txErr)
	}
	session, err := newSession(buf)
	if err != nil {
		c.setSession(nil)
		logger.WithError(err).Error("couldn't authenticate")
		return fmt.Errorf("%w: %s", ErrAuthenticationFailed, err)
	}
	c.setSession(session)
	logger.Debug("connected")
	return nil
}

// Session returns the current session, or nil if Connect has not
// succeeded.
func (c *Client) Session() *Session {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.session
}

func (c *Client) setSession(s *Session) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.session = s
}

func (c *Client) currentSession() (*Session, error) {
	if s := c.Session(); s != nil {
		return s, nil
	}
	return nil, ErrNotConnected
}
