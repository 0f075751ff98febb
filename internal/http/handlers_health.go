package httpx

import "net/http"

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// healthHandler answers liveness probes. No downstream checks here; a
// Postgres or Redis blip must not flip liveness.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", Service: "exercise-tracker"})
}
