package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/newslens/hypetrack/internal/domain/model"
)

// articleRequest mirrors the wire schema for one article in a batch.
type articleRequest struct {
	ID          string  `json:"id"`
	Source      string  `json:"source"`
	URL         string  `json:"url"`
	Entity      string  `json:"entity"`
	PublishedAt string  `json:"published_at"`
	Title       string  `json:"title"`
	Text        string  `json:"text"`
	Sentiment   float64 `json:"sentiment"`
	Stance      string  `json:"stance"`
}

func (a articleRequest) validate() error {
	switch {
	case strings.TrimSpace(a.ID) == "":
		return errors.New("missing id")
	case strings.TrimSpace(a.Source) == "":
		return errors.New("missing source")
	case strings.TrimSpace(a.Entity) == "":
		return errors.New("missing entity")
	case strings.TrimSpace(a.Text) == "":
		return errors.New("missing text")
	case strings.TrimSpace(a.PublishedAt) == "":
		return errors.New("missing published_at")
	}
	if _, err := time.Parse(time.RFC3339, a.PublishedAt); err != nil {
		return errors.New("invalid published_at; must be RFC3339")
	}
	return nil
}

type batchRequest struct {
	Articles []articleRequest `json:"articles"`
}

type batchResponse struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// handlePostBatch accepts a batch of articles for asynchronous processing.
// Articles that bounce off a full queue are reported as rejected; the
// caller owns the retry.
func (s *Server) handlePostBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if len(req.Articles) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("empty batch"))
		return
	}

	articles := make([]*model.Article, 0, len(req.Articles))
	for i, a := range req.Articles {
		if err := a.validate(); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request",
				errors.New("article "+strconv.Itoa(i)+": "+err.Error()))
			return
		}
		ts, _ := time.Parse(time.RFC3339, a.PublishedAt)
		articles = append(articles, &model.Article{
			ID:          a.ID,
			Source:      a.Source,
			URL:         a.URL,
			Entity:      a.Entity,
			PublishedAt: ts.UTC(),
			Title:       a.Title,
			Text:        a.Text,
			Sentiment:   a.Sentiment,
			Stance:      a.Stance,
		})
	}

	accepted, rejected := s.deps.SubmitBatch(r.Context(), articles)
	status := http.StatusAccepted
	if rejected > 0 && accepted == 0 {
		status = http.StatusTooManyRequests
	}
	writeJSON(w, status, batchResponse{Accepted: accepted, Rejected: rejected})
}
