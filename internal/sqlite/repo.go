// Package sqlite is the durable preference backend.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/jdholdren/herald/internal/prefs"
)

var _ prefs.KV = Repo{}

type Repo struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) Repo {
	return Repo{db: db}
}

func (r Repo) Value(ctx context.Context, profile, key string) (string, bool, error) {
	const q = `SELECT value FROM preferences WHERE profile = ? AND key = ?;`

	var value string
	err := r.db.GetContext(ctx, &value, q, profile, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("error fetching preference: %s", err)
	}

	return value, true, nil
}

func (r Repo) SetValue(ctx context.Context, profile, key, value string) error {
	query, args, err := sq.Insert("preferences").
		Columns("profile", "key", "value").
		Values(profile, key, value).
		Suffix("ON CONFLICT (profile, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP").
		ToSql()
	if err != nil {
		return fmt.Errorf("error constructing sql: %s", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("error upserting preference: %s", err)
	}

	return nil
}
