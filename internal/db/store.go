package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrSecretConflict is returned when a secret is already bound to a
// different repository. Secrets double as webhook signing keys, so sharing
// one across repositories would let one webhook source impersonate another.
var ErrSecretConflict = errors.New("secret already bound to another repository")

// Integration binds a repository to the Telegram chat that receives its
// notifications, together with the shared webhook secret.
type Integration struct {
	ID        int64
	Repo      string
	ChatID    string
	Secret    string
	CreatedAt string
}

// CreateIntegration inserts a new binding. Re-onboarding the same repository
// inserts a fresh row; reads return the newest one.
func (c *Database) CreateIntegration(ctx context.Context, repo, chatID, secret string) (Integration, error) {
	var holder string
	err := c.db.QueryRowContext(ctx,
		`SELECT repo FROM integrations WHERE secret = ? AND lower(repo) != lower(?) LIMIT 1`,
		secret, repo,
	).Scan(&holder)
	if err == nil {
		return Integration{}, ErrSecretConflict
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Integration{}, fmt.Errorf("check secret uniqueness: %w", err)
	}

	createdAt := time.Now().UTC().Format(time.RFC3339)
	res, err := c.db.ExecContext(ctx,
		`INSERT INTO integrations (repo, chat_id, secret, created_at) VALUES (?, ?, ?, ?)`,
		repo, chatID, secret, createdAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return Integration{}, ErrSecretConflict
		}
		return Integration{}, fmt.Errorf("insert integration: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Integration{}, fmt.Errorf("read integration id: %w", err)
	}
	return Integration{ID: id, Repo: repo, ChatID: chatID, Secret: secret, CreatedAt: createdAt}, nil
}

// GetIntegrationByRepo returns the newest binding for a repository. The
// lookup is case-insensitive. Returns sql.ErrNoRows when no binding exists.
func (c *Database) GetIntegrationByRepo(ctx context.Context, repo string) (Integration, error) {
	return c.scanIntegration(c.db.QueryRowContext(ctx,
		`SELECT id, repo, chat_id, secret, created_at
		 FROM integrations WHERE lower(repo) = lower(?)
		 ORDER BY id DESC LIMIT 1`,
		repo,
	))
}

// GetIntegrationByRepoAndSecret validates a user-supplied secret against an
// existing binding. Returns sql.ErrNoRows when the pair does not match.
func (c *Database) GetIntegrationByRepoAndSecret(ctx context.Context, repo, secret string) (Integration, error) {
	return c.scanIntegration(c.db.QueryRowContext(ctx,
		`SELECT id, repo, chat_id, secret, created_at
		 FROM integrations WHERE lower(repo) = lower(?) AND secret = ?
		 ORDER BY id DESC LIMIT 1`,
		repo, secret,
	))
}

// ListIntegrationRepos returns every bound repository identifier. Used for
// diagnostics when a webhook names an unknown repository.
func (c *Database) ListIntegrationRepos(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT repo FROM integrations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list integration repos: %w", err)
	}
	defer rows.Close()

	var repos []string
	for rows.Next() {
		var repo string
		if err := rows.Scan(&repo); err != nil {
			return nil, fmt.Errorf("scan integration repo: %w", err)
		}
		repos = append(repos, repo)
	}
	return repos, rows.Err()
}

func (c *Database) scanIntegration(row *sql.Row) (Integration, error) {
	var integration Integration
	err := row.Scan(
		&integration.ID,
		&integration.Repo,
		&integration.ChatID,
		&integration.Secret,
		&integration.CreatedAt,
	)
	if err != nil {
		return Integration{}, err
	}
	return integration, nil
}
