package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/newslens/hypetrack/internal/adapters/hirlog"
	"github.com/newslens/hypetrack/internal/domain/model"
)

const defaultRecordLimit = 100

type recordsResponse struct {
	Records []model.HIRRecord `json:"records"`
}

// handleGetRecords queries the append-only record log by entity, cluster,
// and window range.
func (s *Server) handleGetRecords(w http.ResponseWriter, r *http.Request) {
	q := hirlog.Query{
		Entity:    r.URL.Query().Get("entity"),
		ClusterID: r.URL.Query().Get("cluster"),
		Limit:     defaultRecordLimit,
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid limit"))
			return
		}
		q.Limit = n
	}
	for param, dst := range map[string]*time.Time{"from": &q.From, "to": &q.To} {
		if v := r.URL.Query().Get(param); v != "" {
			ts, err := time.Parse(time.RFC3339, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "bad_request",
					errors.New("invalid "+param+"; must be RFC3339"))
				return
			}
			*dst = ts
		}
	}

	records, err := s.deps.Records(r.Context(), q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}
	if records == nil {
		records = []model.HIRRecord{}
	}
	writeJSON(w, http.StatusOK, recordsResponse{Records: records})
}

type scoreResponse struct {
	Window  model.Window      `json:"window"`
	Records []model.HIRRecord `json:"records"`
}

// handlePostScore scores the window containing ?at= (default: the previous
// full window, since the current one is still accruing coverage).
func (s *Server) handlePostScore(w http.ResponseWriter, r *http.Request) {
	var at time.Time
	if v := r.URL.Query().Get("at"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request",
				errors.New("invalid at; must be RFC3339"))
			return
		}
		at = ts
	}

	var window model.Window
	if at.IsZero() {
		window = s.deps.WindowAt(time.Now().UTC()).Prev()
	} else {
		window = s.deps.WindowAt(at)
	}

	records, err := s.deps.ScoreWindow(r.Context(), window)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}
	if records == nil {
		records = []model.HIRRecord{}
	}
	writeJSON(w, http.StatusOK, scoreResponse{Window: window, Records: records})
}
