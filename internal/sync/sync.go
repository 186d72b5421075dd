package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wesm/github-issue-mirror/internal/api"
	"github.com/wesm/github-issue-mirror/internal/db"
	"github.com/wesm/github-issue-mirror/internal/models"
	"go.uber.org/zap"
)

// IncrementalWindow is how far back an incremental sync looks for updated issues
const IncrementalWindow = 3 * time.Hour

// IssueSource is the read side of the GitHub API used by the syncer
type IssueSource interface {
	ListLabels(ctx context.Context, owner, name string) ([]*models.Label, error)
	ListIssuesPage(ctx context.Context, owner, name string, since *time.Time, page int) ([]*models.Issue, error)
}

// Syncer mirrors a repository's labels and issues into the local database
type Syncer struct {
	db     *db.DB
	client IssueSource
	log    *zap.SugaredLogger
	now    func() time.Time
}

// New creates a new syncer
func New(database *db.DB, client IssueSource, logger *zap.SugaredLogger) *Syncer {
	return &Syncer{
		db:     database,
		client: client,
		log:    logger,
		now:    time.Now,
	}
}

// SyncRepository syncs labels, then issues, of repo ("owner/name"). Unless
// sinceForever is set only issues updated within IncrementalWindow are fetched.
// The first error aborts the run; whatever was committed before it stays.
func (s *Syncer) SyncRepository(ctx context.Context, repo string, sinceForever bool) error {
	owner, name, err := ParseRepositoryString(repo)
	if err != nil {
		return err
	}

	startTime := s.now()
	var since *time.Time
	if !sinceForever {
		cutoff := startTime.Add(-IncrementalWindow)
		since = &cutoff
		s.log.Infof("Syncing %s (issues updated since %s)", repo, cutoff.UTC().Format(time.RFC3339))
	} else {
		s.log.Infof("Syncing %s (full history)", repo)
	}

	if err := s.SyncLabels(ctx, owner, name); err != nil {
		return fmt.Errorf("failed to sync labels for %s: %w", repo, err)
	}

	issues, err := s.FetchIssues(ctx, owner, name, since)
	if err != nil {
		return fmt.Errorf("failed to fetch issues for %s: %w", repo, err)
	}
	s.log.Infof("%d issues to process", len(issues))

	for _, issue := range issues {
		if err := s.SyncIssue(ctx, issue); err != nil {
			return fmt.Errorf("failed to sync issue #%d of %s: %w", issue.Number, repo, err)
		}
	}

	s.log.Infof("Sync completed in %v", s.now().Sub(startTime))
	return nil
}

// SyncLabels upserts the repository's labels. Only the first page is fetched,
// so a repository with more than api.PageSize labels is mirrored partially.
func (s *Syncer) SyncLabels(ctx context.Context, owner, name string) error {
	labels, err := s.client.ListLabels(ctx, owner, name)
	if err != nil {
		return err
	}

	if len(labels) >= api.PageSize {
		s.log.Warnf("Repository has at least %d labels, labels past the first page are not synced", api.PageSize)
	}

	for _, label := range labels {
		if err := s.db.SaveLabel(ctx, label); err != nil {
			return err
		}
		s.log.Infof("Updated label %s", label.Name)
	}

	return nil
}

// FetchIssues pages through the issues endpoint starting at page 0 and returns
// every issue in fetch order. Paging stops on an empty page or a 404.
func (s *Syncer) FetchIssues(ctx context.Context, owner, name string, since *time.Time) ([]*models.Issue, error) {
	var issues []*models.Issue
	for page := 0; ; page++ {
		batch, err := s.client.ListIssuesPage(ctx, owner, name, since, page)
		if err != nil {
			if api.IsNotFound(err) {
				s.log.Debugf("Page %d not found, stopping", page)
				break
			}
			return nil, err
		}

		if len(batch) == 0 {
			break
		}
		issues = append(issues, batch...)
	}

	return issues, nil
}

// SyncIssue upserts one issue and replaces its label set in a single transaction
func (s *Syncer) SyncIssue(ctx context.Context, issue *models.Issue) error {
	err := s.db.WithTx(ctx, func(tx *db.Tx) error {
		if err := tx.SaveIssue(ctx, issue); err != nil {
			return err
		}

		if err := tx.DeleteIssueLabels(ctx, issue.Number); err != nil {
			return err
		}

		for _, labelID := range issue.LabelIDs {
			if err := tx.SaveIssueLabel(ctx, issue.Number, labelID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Infof("Updated issue #%d %s", issue.Number, issue.Title)
	return nil
}

// ParseRepositoryString parses a repository string in the format "owner/name"
func ParseRepositoryString(repoStr string) (string, string, error) {
	parts := strings.Split(repoStr, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository format, expected 'owner/name', got '%s'", repoStr)
	}
	return parts[0], parts[1], nil
}
