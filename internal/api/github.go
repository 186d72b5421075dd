package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/google/go-querystring/query"
	"github.com/wesm/github-issue-mirror/internal/models"
	"golang.org/x/oauth2"
)

const (
	// DefaultBaseURL is the public GitHub REST API root
	DefaultBaseURL = "https://api.github.com/"

	// PageSize is sent as per_page on every list request
	PageSize = 100
)

// GitHubClient represents a client for the GitHub REST API
type GitHubClient struct {
	client *github.Client
}

// NewGitHubClient creates a client that sends "Authorization: token <token>" on
// every request. An empty baseURL selects DefaultBaseURL.
func NewGitHubClient(token, baseURL string) (*GitHubClient, error) {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token, TokenType: "token"},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	client := github.NewClient(tc)
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse API base URL %q: %w", baseURL, err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		client.BaseURL = u
	}

	return &GitHubClient{client: client}, nil
}

// Get issues a GET for path (relative to the API root) with opts encoded as the
// query string, and decodes the JSON response into v. It returns the response
// status code when one was received.
//
// Failures are *TransportError when no usable response arrived and *HTTPError
// for non-2xx responses.
func (c *GitHubClient) Get(ctx context.Context, path string, opts interface{}, v interface{}) (int, error) {
	u := path
	if opts != nil {
		qs, err := query.Values(opts)
		if err != nil {
			return 0, fmt.Errorf("failed to encode query for %s: %w", path, err)
		}
		if encoded := qs.Encode(); encoded != "" {
			u += "?" + encoded
		}
	}

	req, err := c.client.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request for %s: %w", path, err)
	}

	resp, err := c.client.Do(ctx, req, v)
	if err != nil {
		return statusCode(resp), translateError(req, resp, err)
	}
	return resp.StatusCode, nil
}

func statusCode(resp *github.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}

func translateError(req *http.Request, resp *github.Response, err error) error {
	code := statusCode(resp)
	if code == 0 || (code >= 200 && code < 300) {
		return &TransportError{Method: req.Method, URL: req.URL.String(), Err: err}
	}

	httpErr := &HTTPError{
		Method:     req.Method,
		URL:        req.URL.String(),
		StatusCode: code,
		Err:        err,
	}

	var errResp *github.ErrorResponse
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	switch {
	case errors.As(err, &errResp):
		httpErr.Message = errResp.Message
		httpErr.DocumentationURL = errResp.DocumentationURL
	case errors.As(err, &rateErr):
		httpErr.Message = rateErr.Message
	case errors.As(err, &abuseErr):
		httpErr.Message = abuseErr.Message
	}
	return httpErr
}

type labelListOptions struct {
	PerPage int `url:"per_page"`
}

type issueListOptions struct {
	State   string `url:"state"`
	Since   string `url:"since,omitempty"`
	PerPage int    `url:"per_page"`
	Page    int    `url:"page"`
}

// issuePayload is one item of the issues endpoint. The pull_request marker is
// kept raw so that its presence can be tested whatever its value is.
type issuePayload struct {
	github.Issue
	PullRequest json.RawMessage `json:"pull_request,omitempty"`
}

func repoPath(owner, name, resource string) string {
	return fmt.Sprintf("repos/%s/%s/%s", url.PathEscape(owner), url.PathEscape(name), resource)
}

// ListLabels gets the first page of labels for a repository. Only one page of
// PageSize labels is requested.
func (c *GitHubClient) ListLabels(ctx context.Context, owner, name string) ([]*models.Label, error) {
	var ghLabels []*github.Label
	opts := &labelListOptions{PerPage: PageSize}
	if _, err := c.Get(ctx, repoPath(owner, name, "labels"), opts, &ghLabels); err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}

	labels := make([]*models.Label, 0, len(ghLabels))
	for _, ghLabel := range ghLabels {
		label, err := ConvertGitHubLabel(ghLabel)
		if err != nil {
			return nil, err
		}
		labels = append(labels, label)
	}
	return labels, nil
}

// ListIssuesPage gets one page of issues (pull requests included) in any state.
// A nil since requests the full history; page numbering is passed through as is.
func (c *GitHubClient) ListIssuesPage(ctx context.Context, owner, name string, since *time.Time, page int) ([]*models.Issue, error) {
	opts := &issueListOptions{
		State:   "all",
		PerPage: PageSize,
		Page:    page,
	}
	if since != nil {
		opts.Since = since.UTC().Format(time.RFC3339)
	}

	var payloads []*issuePayload
	if _, err := c.Get(ctx, repoPath(owner, name, "issues"), opts, &payloads); err != nil {
		return nil, fmt.Errorf("failed to list issues (page %d): %w", page, err)
	}

	issues := make([]*models.Issue, 0, len(payloads))
	for _, p := range payloads {
		issue, err := ConvertGitHubIssue(&p.Issue, len(p.PullRequest) > 0)
		if err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

// ConvertGitHubLabel converts a GitHub label to our model
func ConvertGitHubLabel(label *github.Label) (*models.Label, error) {
	if label == nil || label.ID == nil {
		return nil, errors.New("label without id in API response")
	}

	return &models.Label{
		ID:    label.GetID(),
		URL:   label.GetURL(),
		Name:  label.GetName(),
		Color: label.GetColor(),
	}, nil
}

// ConvertGitHubIssue converts a GitHub issue to our model. The pull request
// flag comes from the raw payload, so the caller passes it in.
func ConvertGitHubIssue(issue *github.Issue, isPullRequest bool) (*models.Issue, error) {
	if issue == nil || issue.Number == nil {
		return nil, errors.New("issue without number in API response")
	}

	var closedAt *time.Time
	if issue.ClosedAt != nil {
		t := issue.ClosedAt.Time.UTC()
		closedAt = &t
	}

	labelIDs := make([]int64, 0, len(issue.Labels))
	seen := make(map[int64]bool, len(issue.Labels))
	for _, label := range issue.Labels {
		if label == nil || label.ID == nil {
			return nil, fmt.Errorf("issue #%d has a label without id", issue.GetNumber())
		}
		if seen[label.GetID()] {
			continue
		}
		seen[label.GetID()] = true
		labelIDs = append(labelIDs, label.GetID())
	}

	return &models.Issue{
		Number:          issue.GetNumber(),
		Title:           issue.GetTitle(),
		Open:            issue.GetState() == "open",
		Author:          issue.GetUser().GetLogin(),
		AuthorAvatarURL: issue.GetUser().GetAvatarURL(),
		CreatedAt:       issue.GetCreatedAt().Time.UTC(),
		UpdatedAt:       issue.GetUpdatedAt().Time.UTC(),
		ClosedAt:        closedAt,
		IsPullRequest:   isPullRequest,
		LabelIDs:        labelIDs,
	}, nil
}
