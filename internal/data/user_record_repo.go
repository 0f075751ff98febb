package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/loveliiivelaugh/exercise-tracker/internal/data/pgxutil"
	"github.com/loveliiivelaugh/exercise-tracker/internal/domain/identity"
	errorsx "github.com/loveliiivelaugh/exercise-tracker/internal/errors"
	"github.com/loveliiivelaugh/exercise-tracker/internal/ports"
)

const userRecordColumns = `id, email, name, picture, plan_id, plan_active, features, created_at, updated_at`

// UserRecordRepo provides database operations for application-owned user
// records, including a LISTEN/NOTIFY-backed live subscription per record id.
type UserRecordRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger

	// waitWindow bounds a single LISTEN wait so a lost notification only
	// delays a re-read, never wedges the subscription.
	waitWindow time.Duration
	backoff    time.Duration
}

var _ ports.UserRecordStore = (*UserRecordRepo)(nil)

// NewUserRecordRepo creates a new UserRecordRepo with real time provider.
func NewUserRecordRepo(db *sql.DB, logger *slog.Logger) *UserRecordRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserRecordRepo{
		DB:           db,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
		waitWindow:   time.Minute,
		backoff:      250 * time.Millisecond,
	}
}

// NewUserRecordRepoWithTimeProvider creates a UserRecordRepo with a custom
// time provider (useful for tests).
func NewUserRecordRepoWithTimeProvider(db *sql.DB, logger *slog.Logger, tp TimeProvider) *UserRecordRepo {
	r := NewUserRecordRepo(db, logger)
	r.timeProvider = tp
	return r
}

// CreateByID writes the initial record for id. Repeating the call for an
// existing id is a no-op, so at-least-once delivery of the creation step is
// safe. A change notification is sent either way.
func (r *UserRecordRepo) CreateByID(ctx context.Context, id string, patch identity.RecordPatch) error {
	if id == "" {
		return errorsx.Validation("user record id is required")
	}

	seed := patch.Apply(identity.UserRecord{ID: id})
	features, err := marshalFeatures(seed.Features)
	if err != nil {
		return err
	}
	now := r.timeProvider.Now().UTC()

	err = pgxutil.WithSQLTx(ctx, r.DB, nil, func(tx *sql.Tx) error {
		if _, execErr := tx.ExecContext(ctx, `
			INSERT INTO user_records (id, email, name, picture, plan_id, plan_active, features, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
			ON CONFLICT (id) DO NOTHING
		`, id, seed.Email, seed.Name, seed.Picture, seed.PlanID, seed.PlanIsActive, features, now); execErr != nil {
			return execErr
		}
		return notifyRecordChanged(ctx, tx, id)
	})
	if err != nil {
		return errorsx.MapDBError(err)
	}
	return nil
}

// UpdateByID applies a partial update, merging fields into the record.
func (r *UserRecordRepo) UpdateByID(ctx context.Context, id string, patch identity.RecordPatch) error {
	if id == "" {
		return errorsx.Validation("user record id is required")
	}
	if patch.IsZero() {
		return nil
	}

	set, args := buildRecordUpdate(patch)
	args = append(args, r.timeProvider.Now().UTC())
	set = append(set, "updated_at = $"+strconv.Itoa(len(args)))
	args = append(args, id)

	query := `UPDATE user_records SET ` + strings.Join(set, ", ") +
		` WHERE id = $` + strconv.Itoa(len(args))

	err := pgxutil.WithSQLTx(ctx, r.DB, nil, func(tx *sql.Tx) error {
		res, execErr := tx.ExecContext(ctx, query, args...)
		if execErr != nil {
			return execErr
		}
		affected, raErr := res.RowsAffected()
		if raErr != nil {
			return raErr
		}
		if affected == 0 {
			return pgx.ErrNoRows
		}
		return notifyRecordChanged(ctx, tx, id)
	})
	if err != nil {
		return errorsx.MapDBError(err)
	}
	return nil
}

// buildRecordUpdate returns SET fragments and matching args for the patch.
// Features merge key-by-key into the stored JSONB document.
func buildRecordUpdate(patch identity.RecordPatch) ([]string, []any) {
	var set []string
	var args []any

	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, column+" = $"+strconv.Itoa(len(args)))
	}

	if patch.Email != nil {
		add("email", *patch.Email)
	}
	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Picture != nil {
		add("picture", *patch.Picture)
	}
	if patch.PlanID != nil {
		add("plan_id", *patch.PlanID)
	}
	if patch.PlanIsActive != nil {
		add("plan_active", *patch.PlanIsActive)
	}
	if len(patch.Features) > 0 {
		encoded, err := json.Marshal(patch.Features)
		if err == nil {
			args = append(args, encoded)
			set = append(set, "features = features || $"+strconv.Itoa(len(args))+"::jsonb")
		}
	}
	return set, args
}

// GetByID fetches the record once. Returns a NotFound error when the record
// has not been created yet.
func (r *UserRecordRepo) GetByID(ctx context.Context, id string) (identity.UserRecord, error) {
	if id == "" {
		return identity.UserRecord{}, errorsx.Validation("user record id is required")
	}

	row := r.DB.QueryRowContext(ctx, `
		SELECT `+userRecordColumns+`
		FROM user_records
		WHERE id = $1
	`, id)

	rec, err := scanUserRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return identity.UserRecord{}, errorsx.NotFoundf("user record %s not found", id)
		}
		return identity.UserRecord{}, errorsx.MapDBError(err)
	}
	return rec, nil
}

// SubscribeByID emits the current snapshot first, then re-emits after every
// change notification, from a dedicated pump goroutine. Snapshots are
// delivered one at a time and never from inside this call.
func (r *UserRecordRepo) SubscribeByID(ctx context.Context, id string, fn func(ports.RecordSnapshot)) (func(), error) {
	if id == "" {
		return nil, errorsx.Validation("user record id is required")
	}
	if fn == nil {
		return nil, errorsx.Validation("snapshot callback is required")
	}

	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.pump(subCtx, id, fn)
	}()

	unsubscribe := func() {
		cancel()
		<-done
	}
	return unsubscribe, nil
}

// pump drives one subscription. Each attempt holds a dedicated LISTENing
// connection for the record's channel; when the stream breaks, an error
// snapshot goes out and the attempt restarts after a backoff.
func (r *UserRecordRepo) pump(ctx context.Context, id string, fn func(ports.RecordSnapshot)) {
	emit := func(snap ports.RecordSnapshot) bool {
		if ctx.Err() != nil {
			return false
		}
		fn(snap)
		return true
	}

	for ctx.Err() == nil {
		err := r.listenAndStream(ctx, id, emit)
		if err == nil || ctx.Err() != nil {
			return
		}

		r.logger.Debug("record subscription stream failed", "record_id", id, "error", err)
		if !emit(ports.RecordSnapshot{Status: ports.RecordError, Err: errorsx.MapDBError(err)}) {
			return
		}
		timer := time.NewTimer(r.backoff)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

// listenAndStream issues LISTEN before the first snapshot read, so a write
// landing between the read and the wait is carried by a pending
// notification rather than the wait-window re-read. The same connection
// then serves every wait until the subscriber unsubscribes or the
// connection fails. Returns nil only when the subscription is done.
func (r *UserRecordRepo) listenAndStream(ctx context.Context, id string, emit func(ports.RecordSnapshot) bool) error {
	conn, err := r.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get conn from pool: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			_ = cerr
		}
	}()

	channel := recordChannel(id)
	quoted := pgx.Identifier{channel}.Sanitize()

	if _, execErr := conn.ExecContext(ctx, "LISTEN "+quoted); execErr != nil {
		return fmt.Errorf("listen %s: %w", channel, execErr)
	}
	defer func() {
		// The connection returns to the pool; it must not keep the
		// subscription.
		if _, execErr := conn.ExecContext(context.Background(), "UNLISTEN "+quoted); execErr != nil {
			_ = execErr
		}
	}()

	if !emit(r.snapshot(ctx, id)) {
		return nil
	}

	for {
		waitCtx, cancelWait := context.WithTimeout(ctx, r.waitWindow)
		waitErr := waitForNotification(waitCtx, conn)
		windowElapsed := errors.Is(waitErr, context.DeadlineExceeded) ||
			errors.Is(waitCtx.Err(), context.DeadlineExceeded)
		cancelWait()

		if ctx.Err() != nil {
			return nil
		}

		switch {
		case waitErr == nil, windowElapsed:
			// An elapsed window means no change arrived; re-read anyway in
			// case a notification was lost.
			if !emit(r.snapshot(ctx, id)) {
				return nil
			}
		default:
			return waitErr
		}
	}
}

// snapshot reads the record once and classifies the result. A missing row is
// a successful read of an absent document, not an error.
func (r *UserRecordRepo) snapshot(ctx context.Context, id string) ports.RecordSnapshot {
	rec, err := r.GetByID(ctx, id)
	switch {
	case err == nil:
		return ports.RecordSnapshot{Status: ports.RecordSuccess, Data: &rec}
	case errorsx.IsNotFound(err):
		return ports.RecordSnapshot{Status: ports.RecordSuccess}
	default:
		return ports.RecordSnapshot{Status: ports.RecordError, Err: err}
	}
}

// waitForNotification blocks on the already-LISTENing connection until its
// channel fires or ctx expires. A deadline interrupt leaves the connection
// usable for the next wait.
func waitForNotification(ctx context.Context, conn *sql.Conn) error {
	return conn.Raw(func(dc any) error {
		sc, ok := dc.(*stdlib.Conn)
		if !ok {
			return errors.New("unexpected driver connection type; expected *stdlib.Conn")
		}
		_, notifyErr := sc.Conn().WaitForNotification(ctx)
		return notifyErr
	})
}

func notifyRecordChanged(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1::text, $2::text)`, recordChannel(id), id); err != nil {
		return fmt.Errorf("send record notification: %w", err)
	}
	return nil
}

func recordChannel(id string) string {
	return "user_record_" + id
}

func marshalFeatures(features map[string]bool) ([]byte, error) {
	if len(features) == 0 {
		return []byte(`{}`), nil
	}
	encoded, err := json.Marshal(features)
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ErrCodeInternal, "encode features")
	}
	return encoded, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUserRecord(row rowScanner) (identity.UserRecord, error) {
	var rec identity.UserRecord
	var features []byte
	if err := row.Scan(
		&rec.ID,
		&rec.Email,
		&rec.Name,
		&rec.Picture,
		&rec.PlanID,
		&rec.PlanIsActive,
		&features,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return identity.UserRecord{}, err
	}
	if len(features) > 0 {
		if err := json.Unmarshal(features, &rec.Features); err != nil {
			return identity.UserRecord{}, fmt.Errorf("decode features: %w", err)
		}
	}
	if len(rec.Features) == 0 {
		rec.Features = nil
	}
	return rec, nil
}
