package api

import (
	"errors"
	"net/http"

	"github.com/newslens/hypetrack/internal/domain/lifecycle"
)

// handleLifecycleRun triggers an immediate maintenance pass. A pass already
// in progress answers 409 rather than queuing a second one.
func (s *Server) handleLifecycleRun(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.RunLifecyclePass(r.Context())
	if err != nil {
		if errors.Is(err, lifecycle.ErrPassRunning) {
			writeError(w, http.StatusConflict, "pass_running", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
