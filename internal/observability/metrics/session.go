package metrics

import (
	"github.com/loveliiivelaugh/exercise-tracker/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// EmitSessionTransition counts a reconciler state transition.
func EmitSessionTransition(sink statsd.Sink, state string) {
	if sink == nil {
		return
	}
	sink.Count("session.transition", 1, map[string]string{"state": state})
}

// AuthOpMetric captures details about an authentication operation.
type AuthOpMetric struct {
	Op     string
	Result string
}

// EmitAuthOp counts an authentication operation outcome.
func EmitAuthOp(sink statsd.Sink, in AuthOpMetric) {
	if sink == nil {
		return
	}
	sink.Count("auth.op", 1, map[string]string{
		"op":     in.Op,
		"result": in.Result,
	})
}
