package models

import (
	"time"
)

// Label represents a repository label as mirrored into github_labels
type Label struct {
	ID    int64
	URL   string
	Name  string
	Color string
}

// Issue represents a GitHub issue or pull request as mirrored into github_issues.
// Number is the per-repository issue number and is the row key.
type Issue struct {
	Number          int
	Title           string
	Open            bool
	Author          string
	AuthorAvatarURL string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ClosedAt        *time.Time
	IsPullRequest   bool

	// LabelIDs is the label set returned with the issue, without duplicates
	LabelIDs []int64
}

// IssueLabel represents a many-to-many relationship between issues and labels
type IssueLabel struct {
	IssueID int
	LabelID int64
}
