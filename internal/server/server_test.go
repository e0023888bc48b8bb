package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"chat-review/internal/review"
	"chat-review/internal/reviewapi"
	"chat-review/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, opts Options) (*httptest.Server, string) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "review.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	rows := []review.Row{
		{ChatID: "a", Prompt: "refund please", Response: "ok"},
		{ChatID: "b", Prompt: "hello", Response: "hi"},
		{ChatID: "c", Prompt: "bye", Response: "Refund issued"},
	}
	id, err := st.CreateSelection(context.Background(), review.SearchTerms{Global: "refund"}, rows)
	require.NoError(t, err)

	srv := httptest.NewServer(New(st, opts))
	t.Cleanup(srv.Close)
	return srv, id
}

func getJSON(t *testing.T, url string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestReviewDataErrors(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	status, body := getJSON(t, srv.URL+"/admin/widgets/view/review-data")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "selectionId is required.", body["message"])

	status, body = getJSON(t, srv.URL+"/admin/widgets/view/review-data?selectionId=missing")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Selection not found.", body["message"])
}

func TestReviewDataRoundTripsThroughClient(t *testing.T) {
	srv, id := newTestServer(t, Options{ContextPath: "/ctx", Token: "s3cret"})

	c, err := reviewapi.New(srv.URL, "ctx", reviewapi.WithToken("s3cret"))
	require.NoError(t, err)

	page, err := c.FetchPage(context.Background(), review.Query{
		SelectionID: id,
		Limit:       2,
		Page:        1,
		SortColumn:  review.ColumnChatID,
		SortDir:     review.SortAsc,
		Search:      "REFUND",
	})
	require.NoError(t, err)
	require.Len(t, page.Rows, 2)
	assert.Equal(t, "a", page.Rows[0].ChatID)
	assert.Equal(t, "c", page.Rows[1].ChatID)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, 2, page.TotalRows)
	assert.Equal(t, "refund", page.SearchTerms.Global)
}

func TestReviewDataRequiresToken(t *testing.T) {
	srv, id := newTestServer(t, Options{Token: "s3cret"})

	c, err := reviewapi.New(srv.URL, "")
	require.NoError(t, err)
	_, err = c.FetchPage(context.Background(), review.Query{SelectionID: id})

	var apiErr *reviewapi.APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestManualMessage(t *testing.T) {
	got := make(chan string, 1)
	srv, _ := newTestServer(t, Options{Responder: ResponderFunc(func(_ context.Context, msg string) (string, error) {
		got <- msg
		return "noted", nil
	})})

	c, err := reviewapi.New(srv.URL, "")
	require.NoError(t, err)

	reply, err := c.SendManualMessage(context.Background(), "  look at these  ")
	require.NoError(t, err)
	assert.Equal(t, "noted", reply.Text)
	assert.Equal(t, "look at these", <-got)

	_, err = c.SendManualMessage(context.Background(), "   ")
	var apiErr *reviewapi.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "message is required.", apiErr.Message)
}

func TestManualMessageResponderFailure(t *testing.T) {
	srv, _ := newTestServer(t, Options{Responder: ResponderFunc(func(context.Context, string) (string, error) {
		return "", errors.New("upstream down")
	})})

	resp, err := http.Post(srv.URL+"/admin/widgets/review/manual-message", "application/json", strings.NewReader(`{"message":"hi"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestEchoResponderCountsChats(t *testing.T) {
	msg := "please check\n\nSelected chats context:\n### Chat a\n- Prompt: x\n\n### Chat b\n- Prompt: y"
	reply, err := EchoResponder{}.Respond(context.Background(), msg)
	require.NoError(t, err)
	assert.Contains(t, reply, "context for 2 chat(s)")
	assert.Contains(t, reply, "> please check")
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, Options{Token: "s3cret"})
	status, body := getJSON(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}
