package sheetapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func TestAddRows_SubmitsBatchInOrder(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/sheets/77/rows", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req struct {
			Rows []RowInsert `json:"rows"`
		}
		require.NoError(t, json.Unmarshal(body, &req))
		require.Len(t, req.Rows, 2)
		assert.Equal(t, int64(5), req.Rows[0].ParentID)
		assert.False(t, req.Rows[0].ToBottom)
		assert.Equal(t, int64(5), req.Rows[1].ParentID)

		writeJSON(t, w, map[string]any{
			"rows": []map[string]any{
				{"id": 101, "parent_id": 5, "row_number": 2},
				{"id": 102, "parent_id": 5, "row_number": 3},
			},
		})
	}))
	defer srv.Close()

	client, err := New(Options{BaseURL: srv.URL, Token: "tok"})
	require.NoError(t, err)

	rows, err := client.AddRows(context.Background(), 77, []RowInsert{
		{ParentID: 5, Cells: []Cell{{ColumnID: 1, Value: "Pour footing"}}},
		{ParentID: 5, Cells: []Cell{{ColumnID: 1, Value: "Strip forms"}}},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(101), rows[0].ID)
	assert.Equal(t, int64(102), rows[1].ID)
}

func TestListRows_Paginates(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("cursor") {
		case "":
			writeJSON(t, w, map[string]any{
				"items":       []map[string]any{{"id": 1, "row_number": 1}},
				"next_cursor": "p2",
			})
		case "p2":
			writeJSON(t, w, map[string]any{
				"items":       []map[string]any{{"id": 2, "row_number": 2}},
				"next_cursor": "",
			})
		}
	}))
	defer srv.Close()

	client, err := New(Options{BaseURL: srv.URL, PageSize: 1})
	require.NoError(t, err)

	rows, err := client.ListRows(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0].ID)
	assert.Equal(t, int64(2), rows[1].ID)
}

func TestUpdateColumn_SendsCrossSheetReference(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/api/sheets/10/columns/44", r.URL.Path)

		var update ColumnUpdate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&update))
		require.NotNil(t, update.OptionsFrom)
		assert.Equal(t, int64(20), update.OptionsFrom.SheetID)
		assert.Equal(t, int64(55), update.OptionsFrom.ColumnID)

		writeJSON(t, w, map[string]any{"id": 44, "title": "Materials", "type": "MULTI_PICKLIST"})
	}))
	defer srv.Close()

	client, err := New(Options{BaseURL: srv.URL})
	require.NoError(t, err)

	col, err := client.UpdateColumn(context.Background(), 10, 44, ColumnUpdate{
		Type:        ColumnMultiPicklist,
		OptionsFrom: &CrossSheetReference{SheetID: 20, ColumnID: 55},
	})
	require.NoError(t, err)
	assert.Equal(t, ColumnMultiPicklist, col.Type)
}

func TestDoJSON_TransientClassification(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		writeJSON(t, w, map[string]any{"message": "slow down", "code": "rate_limited"})
	}))
	defer srv.Close()

	client, err := New(Options{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.ListWorkspaces(context.Background())
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "rate_limited", apiErr.Code)
	assert.True(t, apiErr.Transient())

	conflict := &Error{StatusCode: http.StatusConflict}
	assert.False(t, conflict.Transient())
	down := &Error{StatusCode: http.StatusBadGateway}
	assert.True(t, down.Transient())
}

func TestRow_StringValue(t *testing.T) {
	t.Parallel()

	row := Row{Cells: []Cell{
		{ColumnID: 1, Value: "task-7"},
		{ColumnID: 2, Value: float64(42)},
		{ColumnID: 3, Value: 2.5},
		{ColumnID: 4, Value: true},
	}}
	assert.Equal(t, "task-7", row.StringValue(1))
	assert.Equal(t, "42", row.StringValue(2))
	assert.Equal(t, "2.5", row.StringValue(3))
	assert.Equal(t, "true", row.StringValue(4))
	assert.Equal(t, "", row.StringValue(99))
}
