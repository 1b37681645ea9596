// Package sheetapi is the write-side client for the sheet service, the
// system projects are migrated into. Batch row inserts preserve input order
// in the response, which the loading engine relies on to map source entities
// to created rows.
package sheetapi

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

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Options struct {
	BaseURL string
	Token   string

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
		o.HTTPClient = &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	if o.Logger == nil {
		nop := logrus.New()
		nop.SetOutput(io.Discard)
		o.Logger = nop
	}
}

type Client struct {
	baseURL         *url.URL
	token           string
	httpClient      *http.Client
	requestIDHeader string
	pageSize        int
	log             logrus.FieldLogger
}

func New(opts Options) (*Client, error) {
	opts.setDefaults()

	u, err := url.Parse(strings.TrimSpace(opts.BaseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid sheet service base URL: %q", opts.BaseURL)
	}

	return &Client{
		baseURL:         u,
		token:           strings.TrimSpace(opts.Token),
		httpClient:      opts.HTTPClient,
		requestIDHeader: opts.RequestIDHeader,
		pageSize:        opts.PageSize,
		log:             opts.Logger,
	}, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, reqBody, out any) error {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("sheet service encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("sheet service request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(c.requestIDHeader, requestID)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sheet service %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("sheet service read response: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"method":     method,
		"path":       path,
		"status":     resp.StatusCode,
		"request_id": requestID,
	}).Debug("sheet service call")

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
		return fmt.Errorf("sheet service decode response: %w", err)
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
		if err := c.doJSON(ctx, http.MethodGet, path, q, nil, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Items...)

		if page.NextCursor == nil || strings.TrimSpace(*page.NextCursor) == "" {
			return all, nil
		}
		cursor = *page.NextCursor
	}
}

func (c *Client) CreateWorkspace(ctx context.Context, name string) (Workspace, error) {
	var ws Workspace
	err := c.doJSON(ctx, http.MethodPost, "/api/workspaces", nil, map[string]string{"name": name}, &ws)
	return ws, err
}

func (c *Client) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	return listAll[Workspace](ctx, c, "/api/workspaces")
}

func (c *Client) CreateSheet(ctx context.Context, workspaceID int64, spec SheetSpec) (Sheet, error) {
	var sheet Sheet
	path := "/api/workspaces/" + strconv.FormatInt(workspaceID, 10) + "/sheets"
	err := c.doJSON(ctx, http.MethodPost, path, nil, spec, &sheet)
	return sheet, err
}

// ListSheets returns the workspace's sheet headers without columns or rows.
func (c *Client) ListSheets(ctx context.Context, workspaceID int64) ([]Sheet, error) {
	return listAll[Sheet](ctx, c, "/api/workspaces/"+strconv.FormatInt(workspaceID, 10)+"/sheets")
}

func (c *Client) ListColumns(ctx context.Context, sheetID int64) ([]Column, error) {
	var out struct {
		Columns []Column `json:"columns"`
	}
	path := "/api/sheets/" + strconv.FormatInt(sheetID, 10) + "/columns"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Columns, nil
}

func (c *Client) AddColumn(ctx context.Context, sheetID int64, spec ColumnSpec) (Column, error) {
	var col Column
	path := "/api/sheets/" + strconv.FormatInt(sheetID, 10) + "/columns"
	err := c.doJSON(ctx, http.MethodPost, path, nil, spec, &col)
	return col, err
}

func (c *Client) UpdateColumn(ctx context.Context, sheetID, columnID int64, update ColumnUpdate) (Column, error) {
	var col Column
	path := "/api/sheets/" + strconv.FormatInt(sheetID, 10) + "/columns/" + strconv.FormatInt(columnID, 10)
	err := c.doJSON(ctx, http.MethodPut, path, nil, update, &col)
	return col, err
}

// AddRows inserts rows as a single batch. The response carries one created
// row per submitted insert, in submission order.
func (c *Client) AddRows(ctx context.Context, sheetID int64, rows []RowInsert) ([]Row, error) {
	var out struct {
		Rows []Row `json:"rows"`
	}
	path := "/api/sheets/" + strconv.FormatInt(sheetID, 10) + "/rows"
	body := map[string][]RowInsert{"rows": rows}
	if err := c.doJSON(ctx, http.MethodPost, path, nil, body, &out); err != nil {
		return nil, err
	}
	return out.Rows, nil
}

// ListRows returns all rows of the sheet with their cells, in sheet order.
func (c *Client) ListRows(ctx context.Context, sheetID int64) ([]Row, error) {
	return listAll[Row](ctx, c, "/api/sheets/"+strconv.FormatInt(sheetID, 10)+"/rows")
}
