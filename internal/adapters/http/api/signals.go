package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/newslens/hypetrack/internal/domain/entities"
	"github.com/newslens/hypetrack/internal/domain/model"
)

// signalRequest mirrors the wire schema for one impact signal.
type signalRequest struct {
	Entity     string  `json:"entity"`
	Type       string  `json:"type"`
	Raw        float64 `json:"raw"`
	ObservedAt string  `json:"observed_at"`
}

type signalsRequest struct {
	Signals []signalRequest `json:"signals"`
}

type signalsResponse struct {
	Recorded int `json:"recorded"`
}

// handlePostSignals records a batch of external impact signals. Each signal
// is validated independently; the first invalid one fails the request so
// the collector can fix and resubmit the whole batch.
func (s *Server) handlePostSignals(w http.ResponseWriter, r *http.Request) {
	var req signalsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if len(req.Signals) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("empty signal batch"))
		return
	}

	recorded := 0
	for _, in := range req.Signals {
		typ, err := model.ParseSignalType(in.Type)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		if strings.TrimSpace(in.Entity) == "" {
			writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing entity"))
			return
		}
		observed := time.Now().UTC()
		if in.ObservedAt != "" {
			observed, err = time.Parse(time.RFC3339, in.ObservedAt)
			if err != nil {
				writeError(w, http.StatusBadRequest, "bad_request",
					errors.New("invalid observed_at; must be RFC3339"))
				return
			}
		}

		sig := &model.ImpactSignal{
			Entity: in.Entity,
			Window: s.deps.WindowAt(observed),
			Type:   typ,
			Raw:    in.Raw,
		}
		if err := s.deps.SubmitSignal(r.Context(), sig); err != nil {
			if errors.Is(err, entities.ErrUnknownEntity) {
				writeError(w, http.StatusBadRequest, "unknown_entity", err)
				return
			}
			writeError(w, http.StatusInternalServerError, "internal", err)
			return
		}
		recorded++
	}
	writeJSON(w, http.StatusAccepted, signalsResponse{Recorded: recorded})
}
