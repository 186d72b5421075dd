package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *GitHubClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewGitHubClient("secret-token", server.URL)
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestGet_SendsTokenAuthorization(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, []interface{}{})
	})

	var out []interface{}
	status, err := client.Get(context.Background(), "repos/o/r/labels", nil, &out)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "token secret-token", gotAuth)
}

func TestListLabels(t *testing.T) {
	var gotPath string
	var gotQuery url.Values
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		writeJSON(w, http.StatusOK, []map[string]interface{}{
			{"id": 7, "url": "https://api.github.com/repos/o/r/labels/bug", "name": "bug", "color": "d73a4a"},
			{"id": 8, "url": "https://api.github.com/repos/o/r/labels/docs", "name": "docs", "color": "0075ca"},
		})
	})

	labels, err := client.ListLabels(context.Background(), "o", "r")
	require.NoError(t, err)

	assert.Equal(t, "/repos/o/r/labels", gotPath)
	assert.Equal(t, "100", gotQuery.Get("per_page"))
	assert.False(t, gotQuery.Has("page"))

	require.Len(t, labels, 2)
	assert.Equal(t, int64(7), labels[0].ID)
	assert.Equal(t, "bug", labels[0].Name)
	assert.Equal(t, "d73a4a", labels[0].Color)
	assert.Equal(t, "https://api.github.com/repos/o/r/labels/bug", labels[0].URL)
}

func TestListLabels_RejectsLabelWithoutID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]interface{}{{"name": "bug"}})
	})

	_, err := client.ListLabels(context.Background(), "o", "r")
	assert.Error(t, err)
}

func TestListIssuesPage_Query(t *testing.T) {
	var gotQuery url.Values
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		writeJSON(w, http.StatusOK, []interface{}{})
	})

	since := time.Date(2024, 3, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600))

	tests := []struct {
		name      string
		since     *time.Time
		page      int
		wantSince string
		wantPage  string
	}{
		{name: "incremental first page", since: &since, page: 0, wantSince: "2024-03-01T08:30:00Z", wantPage: "0"},
		{name: "full history", since: nil, page: 3, wantSince: "", wantPage: "3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.ListIssuesPage(context.Background(), "o", "r", tt.since, tt.page)
			require.NoError(t, err)

			assert.Equal(t, "all", gotQuery.Get("state"))
			assert.Equal(t, "100", gotQuery.Get("per_page"))
			assert.Equal(t, tt.wantPage, gotQuery.Get("page"))
			if tt.wantSince == "" {
				assert.False(t, gotQuery.Has("since"))
			} else {
				assert.Equal(t, tt.wantSince, gotQuery.Get("since"))
			}
		})
	}
}

func TestListIssuesPage_PullRequestMarker(t *testing.T) {
	tests := []struct {
		name   string
		marker string
		want   bool
	}{
		{name: "no marker", marker: "", want: false},
		{name: "object marker", marker: `,"pull_request":{"url":"https://api.github.com/repos/o/r/pulls/1"}`, want: true},
		{name: "empty object marker", marker: `,"pull_request":{}`, want: true},
		{name: "boolean marker", marker: `,"pull_request":false`, want: true},
		{name: "null marker", marker: `,"pull_request":null`, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprintf(w, `[{"number":1,"title":"t","state":"open","created_at":"2024-01-01T00:00:00Z","updated_at":"2024-01-02T00:00:00Z"%s}]`, tt.marker)
			})

			issues, err := client.ListIssuesPage(context.Background(), "o", "r", nil, 0)
			require.NoError(t, err)
			require.Len(t, issues, 1)
			assert.Equal(t, tt.want, issues[0].IsPullRequest)
		})
	}
}

func TestGet_NotFoundIsHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"message":           "Not Found",
			"documentation_url": "https://docs.github.com/rest",
		})
	})

	_, err := client.ListIssuesPage(context.Background(), "o", "r", nil, 1)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, "Not Found", httpErr.Message)
	assert.Equal(t, "https://docs.github.com/rest", httpErr.DocumentationURL)

	var ghErr *github.ErrorResponse
	assert.True(t, errors.As(err, &ghErr))
}

func TestGet_ServerErrorIsHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	status, err := client.Get(context.Background(), "repos/o/r/labels", nil, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.False(t, IsNotFound(err))

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
	assert.Contains(t, httpErr.Error(), "502")
}

func TestGet_ConnectionFailureIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	serverURL := server.URL
	server.Close()

	client, err := NewGitHubClient("secret-token", serverURL)
	require.NoError(t, err)

	status, err := client.Get(context.Background(), "repos/o/r/labels", nil, nil)
	require.Error(t, err)
	assert.Equal(t, 0, status)

	var transportErr *TransportError
	assert.True(t, errors.As(err, &transportErr))
	assert.False(t, IsNotFound(err))
}

func TestGet_UndecodableBodyIsTransportError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("<html>not json</html>"))
	})

	_, err := client.ListLabels(context.Background(), "o", "r")
	require.Error(t, err)

	var transportErr *TransportError
	assert.True(t, errors.As(err, &transportErr))
}

func TestConvertGitHubIssue(t *testing.T) {
	created := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	closed := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)

	issue, err := ConvertGitHubIssue(&github.Issue{
		Number:    github.Int(42),
		Title:     github.String("Crash on start"),
		State:     github.String("closed"),
		User:      &github.User{Login: github.String("octocat"), AvatarURL: github.String("https://avatars/octocat")},
		CreatedAt: &github.Timestamp{Time: created},
		UpdatedAt: &github.Timestamp{Time: closed},
		ClosedAt:  &github.Timestamp{Time: closed},
		Labels: []*github.Label{
			{ID: github.Int64(3)},
			{ID: github.Int64(1)},
			{ID: github.Int64(3)},
		},
	}, false)
	require.NoError(t, err)

	assert.Equal(t, 42, issue.Number)
	assert.Equal(t, "Crash on start", issue.Title)
	assert.False(t, issue.Open)
	assert.Equal(t, "octocat", issue.Author)
	assert.Equal(t, "https://avatars/octocat", issue.AuthorAvatarURL)
	assert.True(t, created.Equal(issue.CreatedAt))
	require.NotNil(t, issue.ClosedAt)
	assert.True(t, closed.Equal(*issue.ClosedAt))
	assert.Equal(t, []int64{3, 1}, issue.LabelIDs)
	assert.False(t, issue.IsPullRequest)
}

func TestConvertGitHubIssue_MissingFields(t *testing.T) {
	issue, err := ConvertGitHubIssue(&github.Issue{Number: github.Int(1), State: github.String("open")}, true)
	require.NoError(t, err)
	assert.True(t, issue.Open)
	assert.Empty(t, issue.Author)
	assert.Nil(t, issue.ClosedAt)
	assert.Empty(t, issue.LabelIDs)
	assert.True(t, issue.IsPullRequest)

	_, err = ConvertGitHubIssue(&github.Issue{Title: github.String("no number")}, false)
	assert.Error(t, err)

	_, err = ConvertGitHubIssue(&github.Issue{Number: github.Int(2), Labels: []*github.Label{{Name: github.String("x")}}}, false)
	assert.Error(t, err)
}
