package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapDBError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  ErrorCode
		wantField string
	}{
		{
			name:     "no rows maps to not found",
			err:      pgx.ErrNoRows,
			wantCode: ErrCodeNotFound,
		},
		{
			name:     "wrapped no rows maps to not found",
			err:      fmt.Errorf("get user record: %w", pgx.ErrNoRows),
			wantCode: ErrCodeNotFound,
		},
		{
			name:     "deadline exceeded maps to timeout",
			err:      context.DeadlineExceeded,
			wantCode: ErrCodeTimeout,
		},
		{
			name:     "context canceled maps to canceled",
			err:      context.Canceled,
			wantCode: ErrCodeCanceled,
		},
		{
			name: "unique violation with column name",
			err: &pgconn.PgError{
				Code:       pgerrcode.UniqueViolation,
				ColumnName: "email",
			},
			wantCode:  ErrCodeConflict,
			wantField: "email",
		},
		{
			name: "unique violation parses detail",
			err: &pgconn.PgError{
				Code:   pgerrcode.UniqueViolation,
				Detail: "Key (email)=(a@b.com) already exists.",
			},
			wantCode:  ErrCodeConflict,
			wantField: "email",
		},
		{
			name: "not null violation",
			err: &pgconn.PgError{
				Code:       pgerrcode.NotNullViolation,
				ColumnName: "name",
			},
			wantCode:  ErrCodeValidation,
			wantField: "name",
		},
		{
			name: "check violation",
			err: &pgconn.PgError{
				Code: pgerrcode.CheckViolation,
			},
			wantCode: ErrCodeValidation,
		},
		{
			name: "connection exception maps to network",
			err: &pgconn.PgError{
				Code: pgerrcode.ConnectionFailure,
			},
			wantCode: ErrCodeNetwork,
		},
		{
			name: "other pg errors map to internal",
			err: &pgconn.PgError{
				Code: pgerrcode.SyntaxError,
			},
			wantCode: ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := MapDBError(tt.err)

			var appErr *AppError
			if !errors.As(mapped, &appErr) {
				t.Fatalf("MapDBError() = %v, want *AppError", mapped)
			}
			if appErr.Code != tt.wantCode {
				t.Errorf("Code = %v, want %v", appErr.Code, tt.wantCode)
			}
			if appErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.wantField)
			}
			if !errors.Is(mapped, tt.err) {
				t.Error("mapped error must keep the original as its cause")
			}
		})
	}
}

func TestMapDBErrorPassthrough(t *testing.T) {
	if got := MapDBError(nil); got != nil {
		t.Errorf("MapDBError(nil) = %v, want nil", got)
	}

	plain := errors.New("not a database error")
	if got := MapDBError(plain); !errors.Is(got, plain) {
		t.Errorf("MapDBError() = %v, want original error", got)
	}
}
