package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err: &AppError{
				Code:    ErrCodeNotFound,
				Message: "activity not found",
			},
			want: "activity not found",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeInternal,
				Message: "failed to merge session",
				Cause:   errors.New("underlying error"),
			},
			want: "failed to merge session: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &AppError{
		Code:    ErrCodeInternal,
		Message: "wrapped error",
		Cause:   cause,
	}

	if unwrapped := err.Unwrap(); !errors.Is(unwrapped, cause) {
		t.Errorf("AppError.Unwrap() = %v, want %v", unwrapped, cause)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantCode ErrorCode
		wantMsg  string
	}{
		{name: "credential", err: Credential("wrong password"), wantCode: ErrCodeCredential, wantMsg: "wrong password"},
		{name: "conflict", err: Conflictf("email %s already in use", "a@b.com"), wantCode: ErrCodeConflict, wantMsg: "email a@b.com already in use"},
		{name: "permission", err: Permission("recent sign-in required"), wantCode: ErrCodePermission, wantMsg: "recent sign-in required"},
		{name: "consistency", err: Consistencyf("record id %s does not match session", "u1"), wantCode: ErrCodeConsistency, wantMsg: "record id u1 does not match session"},
		{name: "record not ready", err: RecordNotReady("record pending"), wantCode: ErrCodeRecordNotReady, wantMsg: "record pending"},
		{name: "not found", err: NotFoundf("activity %s not found", "act-1"), wantCode: ErrCodeNotFound, wantMsg: "activity act-1 not found"},
		{name: "validation", err: Validation("name is required"), wantCode: ErrCodeValidation, wantMsg: "name is required"},
		{name: "internal", err: Internal("boom"), wantCode: ErrCodeInternal, wantMsg: "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.wantCode)
			}
			if tt.err.Message != tt.wantMsg {
				t.Errorf("Message = %v, want %v", tt.err.Message, tt.wantMsg)
			}
		})
	}
}

func TestValidationField(t *testing.T) {
	err := ValidationField("email", "invalid email address")
	if err.Code != ErrCodeValidation {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeValidation)
	}
	if got := GetField(err); got != "email" {
		t.Errorf("GetField() = %q, want %q", got, "email")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Wrap(cause, ErrCodeNetwork, "identify webhook")

	if err.Code != ErrCodeNetwork {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeNetwork)
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped error must match its cause with errors.Is")
	}
	if got := err.Error(); got != "identify webhook: dial tcp: connection refused" {
		t.Errorf("Error() = %q", got)
	}
}

func TestPredicatesMatchThroughWrapping(t *testing.T) {
	base := NotFound("activity not found")
	wrapped := fmt.Errorf("list activities: %w", base)

	if !IsNotFound(wrapped) {
		t.Error("IsNotFound must see through fmt.Errorf wrapping")
	}
	if IsPermission(wrapped) {
		t.Error("IsPermission must not match a not-found error")
	}
	if IsNotFound(errors.New("plain")) {
		t.Error("IsNotFound must not match plain errors")
	}
}

func TestGetCodeOrInternal(t *testing.T) {
	if got := GetCodeOrInternal(Credential("nope")); got != ErrCodeCredential {
		t.Errorf("GetCodeOrInternal() = %v, want %v", got, ErrCodeCredential)
	}
	if got := GetCodeOrInternal(errors.New("plain")); got != ErrCodeInternal {
		t.Errorf("GetCodeOrInternal() = %v, want %v", got, ErrCodeInternal)
	}
	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode() = %v, want empty", got)
	}
}
