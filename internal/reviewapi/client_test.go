package reviewapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"chat-review/internal/review"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchPageSendsQueryAndDecodesRows(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ctx/admin/widgets/view/review-data", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		_, _ = w.Write([]byte(`{
			"status":"ok",
			"rows":[{"chatId":"a","prompt":"p","response":"r","createdAt":"2024-02-01T10:00:00Z","sessionId":"s"}],
			"page":2,"totalPages":3,"totalRows":21,
			"searchTerms":{"global":"refund","prompt":"","response":""}
		}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/", "/ctx/", WithToken("secret"))
	require.NoError(t, err)

	page, err := c.FetchPage(context.Background(), review.Query{
		SelectionID: "sel-1",
		Limit:       10,
		Page:        2,
		SortColumn:  review.ColumnPrompt,
		SortDir:     review.SortAsc,
		Search:      "refund",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"selectionId": "sel-1",
		"limit":       "10",
		"page":        "2",
		"sortColumn":  "prompt",
		"sortDir":     "ASC",
		"search":      "refund",
	}, gotQuery)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "a", page.Rows[0].ChatID)
	assert.Equal(t, 2024, page.Rows[0].CreatedAt.Year())
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 21, page.TotalRows)
	assert.Equal(t, "refund", page.SearchTerms.Global)
}

func TestFetchPageOmitsEmptySearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.URL.Query()["search"]
		assert.False(t, present, "search should be omitted when empty")
		_, _ = w.Write([]byte(`{"status":"ok","rows":[],"page":1,"totalPages":1,"totalRows":0}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, "")
	require.NoError(t, err)
	_, err = c.FetchPage(context.Background(), review.Query{SelectionID: "s", Limit: 10, Page: 1})
	require.NoError(t, err)
}

func TestFetchPageSurfacesNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status":"error","message":"Selection not found."}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, "")
	require.NoError(t, err)
	_, err = c.FetchPage(context.Background(), review.Query{SelectionID: "missing"})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Selection not found.", apiErr.Message)
	assert.Contains(t, err.Error(), "status 404")
}

func TestFetchPageNonOKBodyWithSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, "")
	require.NoError(t, err)
	_, err = c.FetchPage(context.Background(), review.Query{})
	require.Error(t, err)
	assert.True(t, IsAPIError(err))
	assert.Equal(t, "Unable to load selection.", err.Error())
}

func TestFetchPageRejectsGarbage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>login</html>`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, "")
	require.NoError(t, err)
	_, err = c.FetchPage(context.Background(), review.Query{})
	require.Error(t, err)
	assert.False(t, IsAPIError(err))
	assert.Contains(t, err.Error(), "decode review data")
}

func TestSendManualMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/admin/widgets/review/manual-message", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body["message"])
		_, _ = w.Write([]byte(`{"textResponse":"**done**"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, "")
	require.NoError(t, err)
	reply, err := c.SendManualMessage(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "**done**", reply.Text)
}

func TestSendManualMessageRawReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("plain text answer"))
	}))
	defer srv.Close()

	c, err := New(srv.URL, "")
	require.NoError(t, err)
	reply, err := c.SendManualMessage(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "plain text answer", reply.Text)
}

func TestSendManualMessageErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"message field", http.StatusBadRequest, `{"status":"error","message":"message is required."}`, "message is required."},
		{"error field", http.StatusBadGateway, `{"error":"upstream down"}`, "upstream down"},
		{"raw body", http.StatusInternalServerError, `oops`, "oops"},
		{"empty body", http.StatusServiceUnavailable, ``, "Unable to send message (status 503)."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c, err := New(srv.URL, "")
			require.NoError(t, err)
			_, err = c.SendManualMessage(context.Background(), "x")

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.status, apiErr.StatusCode)
			assert.Equal(t, tc.want, apiErr.Message)
		})
	}
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := New("localhost:8080", "")
	require.Error(t, err)
}
