package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	errorsx "github.com/loveliiivelaugh/exercise-tracker/internal/errors"
)

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, map[string]string{"error": p.ErrCode, "message": p.Err.Error()})
}

// retryAfterSeconds is the hint sent with not-ready responses.
const retryAfterSeconds = 1

// WriteAppError maps a typed application error to an HTTP response. Unknown
// errors are reported as internal without leaking the message.
func WriteAppError(w http.ResponseWriter, err error) {
	code := errorsx.GetCodeOrInternal(err)
	status := statusForCode(code)

	if code == errorsx.ErrCodeRecordNotReady {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}

	WriteError(w, ErrorParams{Code: status, ErrCode: string(code), Err: err})
}

func statusForCode(code errorsx.ErrorCode) int {
	switch code {
	case errorsx.ErrCodeValidation:
		return http.StatusBadRequest
	case errorsx.ErrCodeCredential:
		return http.StatusUnauthorized
	case errorsx.ErrCodePermission:
		return http.StatusForbidden
	case errorsx.ErrCodeNotFound:
		return http.StatusNotFound
	case errorsx.ErrCodeConflict:
		return http.StatusConflict
	case errorsx.ErrCodeRecordNotReady:
		return http.StatusServiceUnavailable
	case errorsx.ErrCodeNetwork:
		return http.StatusBadGateway
	case errorsx.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
