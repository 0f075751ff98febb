package data

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/loveliiivelaugh/exercise-tracker/internal/data/pgxutil"
	"github.com/loveliiivelaugh/exercise-tracker/internal/domain/activity"
	errorsx "github.com/loveliiivelaugh/exercise-tracker/internal/errors"
	"github.com/loveliiivelaugh/exercise-tracker/internal/ports"
)

const activityColumns = `id, owner, name, type, duration_minutes, date, featured, created_at, updated_at`

// ActivityRepo provides database operations for logged activities.
type ActivityRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

var _ ports.ActivityStore = (*ActivityRepo)(nil)

// NewActivityRepo creates a new ActivityRepo with real time provider.
func NewActivityRepo(db *sql.DB) *ActivityRepo {
	return &ActivityRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewActivityRepoWithTimeProvider creates an ActivityRepo with a custom time
// provider (useful for tests).
func NewActivityRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *ActivityRepo {
	return &ActivityRepo{DB: db, timeProvider: tp}
}

// Create inserts a new activity and returns the stored row.
func (r *ActivityRepo) Create(ctx context.Context, a activity.Activity) (activity.Activity, error) {
	if err := a.Validate(); err != nil {
		return activity.Activity{}, errorsx.Wrap(err, errorsx.ErrCodeValidation, "validate activity")
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := r.timeProvider.Now().UTC()

	var out activity.Activity
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO activities (id, owner, name, type, duration_minutes, date, featured, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
			RETURNING `+activityColumns+`
		`,
			a.ID,
			a.Owner,
			strings.TrimSpace(a.Name),
			string(a.Type),
			a.DurationMinutes,
			a.Date.UTC(),
			a.Featured,
			now,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = collectActivity(rows)
		return err
	})
	if err != nil {
		return activity.Activity{}, errorsx.MapDBError(err)
	}
	return out, nil
}

// GetByID retrieves an activity by its id.
func (r *ActivityRepo) GetByID(ctx context.Context, id string) (activity.Activity, error) {
	if id == "" {
		return activity.Activity{}, errorsx.Validation("activity id is required")
	}

	var out activity.Activity
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+activityColumns+`
			FROM activities
			WHERE id = $1
		`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = collectActivity(rows)
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return activity.Activity{}, errorsx.NotFoundf("activity %s not found", id)
	}
	if err != nil {
		return activity.Activity{}, errorsx.MapDBError(err)
	}
	return out, nil
}

// ListByOwner returns the owner's activities ordered by date, oldest first.
func (r *ActivityRepo) ListByOwner(ctx context.Context, owner string) ([]activity.Activity, error) {
	if owner == "" {
		return nil, errorsx.Validation("activity owner is required")
	}

	var out []activity.Activity
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+activityColumns+`
			FROM activities
			WHERE owner = $1
			ORDER BY date ASC, created_at ASC
		`, owner)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			a, scanErr := scanActivity(rows)
			if scanErr != nil {
				return scanErr
			}
			out = append(out, a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, errorsx.MapDBError(err)
	}
	return out, nil
}

// Update applies a partial update to an activity.
func (r *ActivityRepo) Update(ctx context.Context, id string, patch activity.Patch) error {
	if id == "" {
		return errorsx.Validation("activity id is required")
	}
	if patch.IsZero() {
		return nil
	}
	if patch.Type != nil {
		if _, err := activity.ParseType(string(*patch.Type)); err != nil {
			return errorsx.Wrap(err, errorsx.ErrCodeValidation, "validate activity type")
		}
	}

	set, args := buildActivityUpdate(patch)
	args = append(args, r.timeProvider.Now().UTC())
	set = append(set, "updated_at = $"+strconv.Itoa(len(args)))
	args = append(args, id)

	query := `UPDATE activities SET ` + strings.Join(set, ", ") +
		` WHERE id = $` + strconv.Itoa(len(args))

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return errorsx.MapDBError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errorsx.MapDBError(err)
	}
	if affected == 0 {
		return errorsx.NotFoundf("activity %s not found", id)
	}
	return nil
}

// Delete removes an activity.
func (r *ActivityRepo) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errorsx.Validation("activity id is required")
	}

	res, err := r.DB.ExecContext(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		return errorsx.MapDBError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errorsx.MapDBError(err)
	}
	if affected == 0 {
		return errorsx.NotFoundf("activity %s not found", id)
	}
	return nil
}

func buildActivityUpdate(patch activity.Patch) ([]string, []any) {
	var set []string
	var args []any

	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, column+" = $"+strconv.Itoa(len(args)))
	}

	if patch.Date != nil {
		add("date", patch.Date.UTC())
	}
	if patch.Name != nil {
		add("name", strings.TrimSpace(*patch.Name))
	}
	if patch.Type != nil {
		add("type", string(*patch.Type))
	}
	if patch.DurationMinutes != nil {
		add("duration_minutes", *patch.DurationMinutes)
	}
	if patch.Featured != nil {
		add("featured", *patch.Featured)
	}
	return set, args
}

func collectActivity(rows pgx.Rows) (activity.Activity, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return activity.Activity{}, err
		}
		return activity.Activity{}, pgx.ErrNoRows
	}
	return scanActivity(rows)
}

func scanActivity(row rowScanner) (activity.Activity, error) {
	var a activity.Activity
	var typ string
	if err := row.Scan(
		&a.ID,
		&a.Owner,
		&a.Name,
		&typ,
		&a.DurationMinutes,
		&a.Date,
		&a.Featured,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return activity.Activity{}, err
	}
	a.Type = activity.Type(typ)
	return a, nil
}
