package qbittorrent

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"torrentbot/internal/apperrors"
)

const service = "qbittorrent"

// API endpoints relative to the WebUI base URL.
const (
	loginPath = "/api/v2/auth/login"
	addPath   = "/api/v2/torrents/add"
	infoPath  = "/api/v2/torrents/info"
)

// Outcome is the result of a call that reached the WebUI.
type Outcome struct {
	Success    bool
	StatusCode int
}

// Client talks to a qBittorrent WebUI.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	log        logrus.FieldLogger
}

// NewClient creates a client for the WebUI at baseURL. It does not log in.
func NewClient(baseURL, username, password string, timeout time.Duration, logger logrus.FieldLogger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("qBittorrent base URL is required")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		log: logger.WithField("component", "qbittorrent"),
	}, nil
}

// Authenticate logs in with the configured credentials. It reports true iff
// the WebUI answered 200; an error is returned only when it was unreachable.
func (c *Client) Authenticate(ctx context.Context) (bool, error) {
	form := url.Values{}
	form.Set("username", c.username)
	form.Set("password", c.password)

	status, err := c.do(ctx, http.MethodPost, loginPath, form)
	if err != nil {
		c.log.WithError(err).Error("Login request failed")
		return false, err
	}

	ok := status == http.StatusOK
	c.log.WithField("status", status).WithField("success", ok).Info("Login attempted")
	return ok, nil
}

// Add submits a magnet link for download. The link is sent as-is.
func (c *Client) Add(ctx context.Context, magnet string) (Outcome, error) {
	form := url.Values{}
	form.Set("urls", magnet)

	status, err := c.do(ctx, http.MethodPost, addPath, form)
	if err != nil {
		c.log.WithError(err).Error("Add torrent request failed")
		return Outcome{}, err
	}

	outcome := Outcome{Success: status == http.StatusOK, StatusCode: status}
	log := c.log.WithField("status", status)
	if outcome.Success {
		log.Info("Torrent added")
	} else {
		log.Warn("Torrent rejected by qBittorrent")
	}
	return outcome, nil
}

// Info lists torrents. Only the status is of interest: it is used as a
// connectivity check.
func (c *Client) Info(ctx context.Context) (Outcome, error) {
	status, err := c.do(ctx, http.MethodGet, infoPath, nil)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Success: status == http.StatusOK, StatusCode: status}, nil
}

// do sends a request and returns the response status. Form values are sent
// url-encoded in the body.
func (c *Client) do(ctx context.Context, method, path string, form url.Values) (int, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	// The WebUI rejects cross-origin requests whose Referer does not match its host.
	req.Header.Set("Referer", c.baseURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, apperrors.NewTransportError(service, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}
