package db

const (
	deleteIssueLabels = `DELETE FROM github_issue_labels WHERE issue_id = ?`
	insertIssueLabel  = `INSERT INTO github_issue_labels (issue_id, label_id) VALUES (?, ?)`
)

type statements struct {
	schema      []string
	upsertLabel string
	upsertIssue string
}

var dialects = map[Dialect]*statements{
	MySQL: {
		schema: []string{
			`CREATE TABLE IF NOT EXISTS github_labels (
				id BIGINT NOT NULL PRIMARY KEY,
				url VARCHAR(512) NOT NULL,
				name VARCHAR(255) NOT NULL,
				color VARCHAR(16) NOT NULL
			) DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS github_issues (
				id INT NOT NULL PRIMARY KEY,
				title TEXT NOT NULL,
				open TINYINT(1) NOT NULL,
				author VARCHAR(255) NOT NULL,
				author_avatar_url VARCHAR(512) NOT NULL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL,
				closed_at DATETIME NULL,
				is_pull_request TINYINT(1) NOT NULL DEFAULT 0
			) DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS github_issue_labels (
				issue_id INT NOT NULL,
				label_id BIGINT NOT NULL,
				PRIMARY KEY (issue_id, label_id)
			) DEFAULT CHARSET=utf8mb4`,
		},
		upsertLabel: `
		INSERT INTO github_labels (id, url, name, color)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			url = VALUES(url),
			name = VALUES(name),
			color = VALUES(color)
		`,
		upsertIssue: `
		INSERT INTO github_issues (id, title, open, author, author_avatar_url, created_at, updated_at, closed_at, is_pull_request)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			title = VALUES(title),
			open = VALUES(open),
			author = VALUES(author),
			author_avatar_url = VALUES(author_avatar_url),
			created_at = VALUES(created_at),
			updated_at = VALUES(updated_at),
			closed_at = VALUES(closed_at),
			is_pull_request = VALUES(is_pull_request)
		`,
	},
	SQLite: {
		schema: []string{
			`CREATE TABLE IF NOT EXISTS github_labels (
				id INTEGER PRIMARY KEY,
				url TEXT NOT NULL,
				name TEXT NOT NULL,
				color TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS github_issues (
				id INTEGER PRIMARY KEY,
				title TEXT NOT NULL,
				open BOOLEAN NOT NULL,
				author TEXT NOT NULL,
				author_avatar_url TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				closed_at TIMESTAMP,
				is_pull_request BOOLEAN NOT NULL DEFAULT 0
			)`,
			`CREATE TABLE IF NOT EXISTS github_issue_labels (
				issue_id INTEGER NOT NULL,
				label_id INTEGER NOT NULL,
				PRIMARY KEY (issue_id, label_id)
			)`,
		},
		upsertLabel: `
		INSERT INTO github_labels (id, url, name, color)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			url = excluded.url,
			name = excluded.name,
			color = excluded.color
		`,
		upsertIssue: `
		INSERT INTO github_issues (id, title, open, author, author_avatar_url, created_at, updated_at, closed_at, is_pull_request)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			open = excluded.open,
			author = excluded.author,
			author_avatar_url = excluded.author_avatar_url,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			closed_at = excluded.closed_at,
			is_pull_request = excluded.is_pull_request
		`,
	},
}
