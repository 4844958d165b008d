// Package buildingapi is the client for the external building-management
// API (identity, objects directory) and its photo storage service.
package buildingapi

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

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	DefaultMetadataTimeout = 10 * time.Second
	DefaultUploadTimeout   = 30 * time.Second

	maxErrorBody = 512
)

// Config holds endpoints and per-call limits.
type Config struct {
	BaseURL         string // e.g. https://building-api.example/api/v1
	StorageURL      string
	MetadataTimeout time.Duration
	UploadTimeout   time.Duration
	DirectoryRPS    float64 // <= 0 disables limiting
}

// Client is safe for concurrent use. It holds no per-user state; every
// call carries its own bearer token.
type Client struct {
	http          *http.Client
	baseURL       string
	storageURL    string
	metaTimeout   time.Duration
	uploadTimeout time.Duration
	limiter       *rate.Limiter
}

// NewHTTPClient returns a pooled client meant to be shared by the process.
func NewHTTPClient() *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.MaxIdleConns = 100
	tr.MaxIdleConnsPerHost = 20
	tr.IdleConnTimeout = 90 * time.Second
	return &http.Client{Transport: tr}
}

// New builds a Client on top of hc. A nil hc gets NewHTTPClient().
func New(hc *http.Client, cfg Config) *Client {
	if hc == nil {
		hc = NewHTTPClient()
	}
	if cfg.MetadataTimeout <= 0 {
		cfg.MetadataTimeout = DefaultMetadataTimeout
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = DefaultUploadTimeout
	}
	c := &Client{
		http:          hc,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		storageURL:    strings.TrimRight(cfg.StorageURL, "/"),
		metaTimeout:   cfg.MetadataTimeout,
		uploadTimeout: cfg.UploadTimeout,
	}
	if cfg.DirectoryRPS > 0 {
		burst := int(cfg.DirectoryRPS)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.DirectoryRPS), burst)
	}
	return c
}

// Login verifies credentials with the identity provider.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var resp loginResponse
	err := c.do(ctx, call{
		op:      "login",
		method:  http.MethodPost,
		url:     c.baseURL + "/auth/login",
		body:    loginRequest{Email: email, Password: password},
		timeout: c.metaTimeout,
	}, func(raw []byte) error { return json.Unmarshal(raw, &resp) })
	if err != nil {
		return LoginResult{}, err
	}
	token := resp.token()
	if token == "" || resp.User.ID == "" {
		return LoginResult{}, fmt.Errorf("%w: login: response without token or user id", ErrUnavailable)
	}
	return LoginResult{Token: token, UserID: resp.User.ID.String(), Role: resp.User.Role}, nil
}

// CurrentUser resolves the owner of token.
func (c *Client) CurrentUser(ctx context.Context, token string) (User, error) {
	var u User
	err := c.do(ctx, c.meta("current user", c.baseURL+"/users/me", token),
		func(raw []byte) error { return json.Unmarshal(raw, &u) })
	if err != nil {
		return User{}, err
	}
	if u.ID == "" {
		return User{}, fmt.Errorf("%w: current user: response without id", ErrUnavailable)
	}
	return u, nil
}

func (c *Client) ListUsers(ctx context.Context, token string) ([]User, error) {
	var users []User
	err := c.directory(ctx, c.meta("list users", c.baseURL+"/users", token), func(raw []byte) (err error) {
		users, err = decodeList[User](raw)
		return err
	})
	return users, err
}

// ListObjects returns every object visible to token.
func (c *Client) ListObjects(ctx context.Context, token string) ([]Object, error) {
	var objects []Object
	err := c.directory(ctx, c.meta("list objects", c.baseURL+"/objects", token), func(raw []byte) (err error) {
		objects, err = decodeList[Object](raw)
		return err
	})
	return objects, err
}

// GetObject returns one object with its areas and main polygon.
func (c *Client) GetObject(ctx context.Context, token string, id int) (ObjectDetail, error) {
	var d ObjectDetail
	u := c.baseURL + "/objects/" + strconv.Itoa(id)
	err := c.directory(ctx, c.meta("get object", u, token),
		func(raw []byte) error { return json.Unmarshal(raw, &d) })
	return d, err
}

func (c *Client) ListAreas(ctx context.Context, token string) ([]Area, error) {
	var areas []Area
	err := c.directory(ctx, c.meta("list areas", c.baseURL+"/areas/list", token), func(raw []byte) (err error) {
		areas, err = decodeList[Area](raw)
		return err
	})
	return areas, err
}

// UploadForemanVisit stores visit photos for a foreman.
func (c *Client) UploadForemanVisit(ctx context.Context, token, userID string, p UploadPayload) error {
	u := c.storageURL + "/upload/foreman/visit/" + url.PathEscape(userID)
	return c.do(ctx, call{
		op: "upload foreman visit", method: http.MethodPost, url: u,
		token: token, body: p, timeout: c.uploadTimeout,
	}, nil)
}

// UploadViolation stores violation photos under an inspector tag.
func (c *Client) UploadViolation(ctx context.Context, token, tag string, objectID int, p UploadPayload) error {
	u := fmt.Sprintf("%s/upload/violation/%s/%d/creation", c.storageURL, url.PathEscape(tag), objectID)
	return c.do(ctx, call{
		op: "upload violation", method: http.MethodPost, url: u,
		token: token, body: p, timeout: c.uploadTimeout,
	}, nil)
}

type call struct {
	op      string
	method  string
	url     string
	token   string
	body    any
	timeout time.Duration
}

func (c *Client) meta(op, u, token string) call {
	return call{op: op, method: http.MethodGet, url: u, token: token, timeout: c.metaTimeout}
}

// directory is do behind the rate limiter.
func (c *Client) directory(ctx context.Context, cl call, decode func([]byte) error) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %s: rate limit wait: %v", ErrTimeout, cl.op, err)
		}
	}
	return c.do(ctx, cl, decode)
}

func (c *Client) do(ctx context.Context, cl call, decode func([]byte) error) error {
	ctx, cancel := context.WithTimeout(ctx, cl.timeout)
	defer cancel()

	var body io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", cl.op, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, cl.url, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", cl.op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		err = classify(cl.op, err)
		logrus.WithError(err).WithField("op", cl.op).Warn("building api call failed")
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return classify(cl.op, err)
	}
	logrus.WithFields(logrus.Fields{
		"op":       cl.op,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("building api call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(raw) > maxErrorBody {
			raw = raw[:maxErrorBody]
		}
		return &StatusError{Op: cl.op, Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if decode == nil {
		return nil
	}
	if err := decode(raw); err != nil {
		return fmt.Errorf("%w: %s: decode response: %v", ErrUnavailable, cl.op, err)
	}
	return nil
}
