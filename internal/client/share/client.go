// Package share implements a client for the Dexcom Share publisher API:
// session login, latest glucose fetch, payload decoding and the
// authenticate-then-fetch retry state machine.
package share

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the Dexcom Share web services root for US accounts.
	DefaultBaseURL = "https://share1.dexcom.com/ShareWebServices/Services"
	// DefaultApplicationID is the vendor-issued application identifier.
	DefaultApplicationID = "d89443d2-327c-4a6f-89e5-496bbb0317db"
	// UserAgent is sent with every request; the service expects the mobile app agent.
	UserAgent = "Dexcom Share/3.0.2.11 CFNetwork/711.2.23 Darwin/14.0.0"

	loginPath  = "/General/LoginPublisherAccountByName"
	latestPath = "/Publisher/ReadPublisherLatestGlucoseValues"

	historyMinutes = 1440
	maxCount       = 1
)

// Credentials identify the Dexcom Share account. They never change after startup.
type Credentials struct {
	AccountName   string
	Password      string
	ApplicationID string
}

// RawResponse is an HTTP answer from Dexcom Share with its body fully read.
type RawResponse struct {
	StatusCode int
	Body       []byte
}

// API is the pair of vendor calls the controller drives.
type API interface {
	// Login performs one login attempt.
	Login(ctx context.Context) (RawResponse, error)
	// FetchLatest performs one latest-reading request with the given session token.
	FetchLatest(ctx context.Context, token string) (RawResponse, error)
}

// Client talks to the Dexcom Share HTTP endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	creds      Credentials
}

// NewHTTPClient returns an http.Client with an explicit per-request timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// NewClient builds a Client. An empty baseURL selects DefaultBaseURL and an
// empty application id selects DefaultApplicationID.
func NewClient(httpClient *http.Client, baseURL string, creds Credentials) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(10 * time.Second)
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if creds.ApplicationID == "" {
		creds.ApplicationID = DefaultApplicationID
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		creds:      creds,
	}
}

type loginRequest struct {
	Password      string `json:"password"`
	ApplicationID string `json:"applicationId"`
	AccountName   string `json:"accountName"`
}

// Login posts the account credentials to the login endpoint.
func (c *Client) Login(ctx context.Context) (RawResponse, error) {
	b, err := json.Marshal(loginRequest{
		Password:      c.creds.Password,
		ApplicationID: c.creds.ApplicationID,
		AccountName:   c.creds.AccountName,
	})
	if err != nil {
		return RawResponse{}, fmt.Errorf("encode login request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, bytes.NewReader(b))
	if err != nil {
		return RawResponse{}, fmt.Errorf("build login request: %w", err)
	}
	setHeaders(req)
	return c.do(req, "login")
}

// FetchLatest asks for at most one reading from the last day.
// The request carries an empty body with Content-Length: 0.
func (c *Client) FetchLatest(ctx context.Context, token string) (RawResponse, error) {
	q := url.Values{}
	q.Set("sessionID", token)
	q.Set("minutes", strconv.Itoa(historyMinutes))
	q.Set("maxCount", strconv.Itoa(maxCount))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+latestPath+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return RawResponse{}, fmt.Errorf("build fetch request: %w", err)
	}
	setHeaders(req)
	req.ContentLength = 0
	return c.do(req, "fetch")
}

func (c *Client) do(req *http.Request, op string) (RawResponse, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return RawResponse{}, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return RawResponse{}, &TransportError{Op: op, Err: err}
	}
	return RawResponse{StatusCode: resp.StatusCode, Body: body}, nil
}

func setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}
