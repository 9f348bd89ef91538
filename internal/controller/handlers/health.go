package handlers

import "net/http"

// Healthz is a liveness probe.
// It returns 200 OK if the server is running.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	h.respondJson(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Readyz is a readiness probe. It runs every configured check (store, mail
// relay) and reports the first failure.
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	for _, c := range h.checks {
		if err := c.Check(r.Context()); err != nil {
			h.logger.Warn("readiness check failed", "check", c.Name, "error", err)
			h.httpError(w, c.Name+" unavailable", CodeUnavailable, http.StatusServiceUnavailable)
			return
		}
	}
	h.respondJson(w, http.StatusOK, map[string]string{"status": "ready"})
}
