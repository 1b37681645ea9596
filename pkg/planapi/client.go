// Package planapi is the read-side client for the plan service, the system
// projects are migrated from. All list operations page through the service's
// cursor protocol until exhaustion and return complete slices.
package planapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

type Options struct {
	BaseURL string
	// OAuth2 client credentials. When TokenURL is empty the client sends
	// unauthenticated requests, which only test servers accept.
	TokenURL     string
	ClientID     string
	ClientSecret string

	RequestIDHeader string
	PageSize        int
	HTTPClient      *http.Client
	Logger          logrus.FieldLogger
}

func (o *Options) setDefaults() {
	if o.PageSize <= 0 {
		o.PageSize = 100
	}
	if o.RequestIDHeader == "" {
		o.RequestIDHeader = "X-Request-Id"
	}
	if o.HTTPClient == nil {
		o.HTTPClient = newHTTPClient()
	}
	if o.Logger == nil {
		nop := logrus.New()
		nop.SetOutput(io.Discard)
		o.Logger = nop
	}
}

type Client struct {
	baseURL         *url.URL
	httpClient      *http.Client
	requestIDHeader string
	pageSize        int
	log             logrus.FieldLogger
}

func New(opts Options) (*Client, error) {
	opts.setDefaults()

	u, err := url.Parse(strings.TrimSpace(opts.BaseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid plan service base URL: %q", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if strings.TrimSpace(opts.TokenURL) != "" {
		cc := clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, opts.HTTPClient)
		httpClient = cc.Client(ctx)
		httpClient.Timeout = opts.HTTPClient.Timeout
	}

	return &Client{
		baseURL:         u,
		httpClient:      httpClient,
		requestIDHeader: opts.RequestIDHeader,
		pageSize:        opts.PageSize,
		log:             opts.Logger,
	}, nil
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, out any) error {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return fmt.Errorf("plan service request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(c.requestIDHeader, requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("plan service %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("plan service read response: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"method":     method,
		"path":       path,
		"status":     resp.StatusCode,
		"request_id": requestID,
	}).Debug("plan service call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{StatusCode: resp.StatusCode, RequestID: requestID}
		var payload struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		}
		if err := json.Unmarshal(respBody, &payload); err == nil && strings.TrimSpace(payload.Code) != "" {
			apiErr.Code = payload.Code
			apiErr.Message = payload.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("plan service decode response: %w", err)
	}
	return nil
}

func listAll[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var all []T
	cursor := ""
	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(c.pageSize))
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		var page struct {
			Items      []T     `json:"items"`
			NextCursor *string `json:"next_cursor"`
		}
		if err := c.doJSON(ctx, http.MethodGet, path, q, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Items...)

		if page.NextCursor == nil || strings.TrimSpace(*page.NextCursor) == "" {
			return all, nil
		}
		cursor = *page.NextCursor
	}
}

func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	return listAll[Project](ctx, c, "/api/projects")
}

func (c *Client) GetProject(ctx context.Context, projectID string) (Project, error) {
	var p Project
	err := c.doJSON(ctx, http.MethodGet, "/api/projects/"+url.PathEscape(projectID), nil, &p)
	return p, err
}

// ListTasks returns the project's tasks in source declaration order.
func (c *Client) ListTasks(ctx context.Context, projectID string) ([]Task, error) {
	return listAll[Task](ctx, c, "/api/projects/"+url.PathEscape(projectID)+"/tasks")
}

func (c *Client) ListResources(ctx context.Context, projectID string) ([]Resource, error) {
	return listAll[Resource](ctx, c, "/api/projects/"+url.PathEscape(projectID)+"/resources")
}

func (c *Client) ListAssignments(ctx context.Context, projectID string) ([]Assignment, error) {
	return listAll[Assignment](ctx, c, "/api/projects/"+url.PathEscape(projectID)+"/assignments")
}
