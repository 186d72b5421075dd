package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wesm/github-issue-mirror/internal/models"
)

// Stats holds the row count of each mirror table
type Stats struct {
	Labels      int
	Issues      int
	IssueLabels int
}

// GetLabel gets a label by id, or nil if it has never been mirrored
func (db *DB) GetLabel(ctx context.Context, id int64) (*models.Label, error) {
	query := `SELECT id, url, name, color FROM github_labels WHERE id = ?`

	var label models.Label
	err := db.QueryRowContext(ctx, query, id).Scan(&label.ID, &label.URL, &label.Name, &label.Color)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, &StorageError{Op: fmt.Sprintf("get label %d", id), Err: err}
	}

	return &label, nil
}

// GetIssue gets an issue with its label set, or nil if it has never been mirrored
func (db *DB) GetIssue(ctx context.Context, number int) (*models.Issue, error) {
	query := `
	SELECT id, title, open, author, author_avatar_url, created_at, updated_at, closed_at, is_pull_request
	FROM github_issues WHERE id = ?
	`

	var issue models.Issue
	var closedAt sql.NullTime
	err := db.QueryRowContext(ctx, query, number).Scan(
		&issue.Number,
		&issue.Title,
		&issue.Open,
		&issue.Author,
		&issue.AuthorAvatarURL,
		&issue.CreatedAt,
		&issue.UpdatedAt,
		&closedAt,
		&issue.IsPullRequest,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, &StorageError{Op: fmt.Sprintf("get issue #%d", number), Err: err}
	}
	if closedAt.Valid {
		t := closedAt.Time
		issue.ClosedAt = &t
	}

	issue.LabelIDs, err = db.IssueLabelIDs(ctx, number)
	if err != nil {
		return nil, err
	}

	return &issue, nil
}

// IssueLabelIDs lists the label ids associated with an issue, in ascending order
func (db *DB) IssueLabelIDs(ctx context.Context, issueNumber int) ([]int64, error) {
	query := `SELECT label_id FROM github_issue_labels WHERE issue_id = ? ORDER BY label_id`

	rows, err := db.QueryContext(ctx, query, issueNumber)
	if err != nil {
		return nil, &StorageError{Op: fmt.Sprintf("list labels of issue #%d", issueNumber), Err: err}
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, &StorageError{Op: fmt.Sprintf("list labels of issue #%d", issueNumber), Err: err}
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: fmt.Sprintf("list labels of issue #%d", issueNumber), Err: err}
	}

	return ids, nil
}

// GetStats counts the rows of the mirror tables
func (db *DB) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	counts := []struct {
		table string
		dest  *int
	}{
		{"github_labels", &stats.Labels},
		{"github_issues", &stats.Issues},
		{"github_issue_labels", &stats.IssueLabels},
	}

	for _, c := range counts {
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dest); err != nil {
			return nil, &StorageError{Op: "count " + c.table, Err: err}
		}
	}

	return &stats, nil
}
