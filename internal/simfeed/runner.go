package simfeed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/newslens/hypetrack/internal/domain/model"
	"github.com/newslens/hypetrack/pkg/logger"
)

// Config controls one simulated feed run.
type Config struct {
	BaseURL          string
	Entities         []string
	StoriesPerEntity int
	ArticlesPerStory int
	DupRate          float64
	Days             int
	Seed             int64
	Timeout          time.Duration
}

type signalInput struct {
	Entity     string
	Type       string
	Raw        float64
	ObservedAt time.Time
}

// Runner drives a live engine over HTTP with generated traffic.
type Runner struct {
	cfg    Config
	client *http.Client
	log    logger.Logger
}

// NewRunner creates a Runner.
func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    logger.Named("simfeed"),
	}
}

// Run generates the feed, submits it, runs a lifecycle pass, scores each
// day, and prints the resulting stats.
func (r *Runner) Run(ctx context.Context) error {
	start := time.Now().UTC().AddDate(0, 0, -r.cfg.Days)
	gen := NewGenerator(r.cfg.Seed, start)

	for _, entity := range r.cfg.Entities {
		stories := gen.Stories(entity, r.cfg.StoriesPerEntity, r.cfg.ArticlesPerStory, r.cfg.DupRate)
		var articles []*model.Article
		for _, st := range stories {
			articles = append(articles, st.Articles...)
		}
		if err := r.postBatch(ctx, articles); err != nil {
			return fmt.Errorf("submit batch for %s: %w", entity, err)
		}
		if err := r.postSignals(ctx, gen.Signals(entity, r.cfg.Days)); err != nil {
			return fmt.Errorf("submit signals for %s: %w", entity, err)
		}
		r.log.Info(ctx, "entity feed submitted",
			logger.String("entity", entity),
			logger.Int("articles", len(articles)))
	}

	// Give the workers a moment to drain before maintenance and scoring.
	select {
	case <-time.After(2 * time.Second):
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := r.post(ctx, "/lifecycle/run", nil, nil); err != nil {
		return fmt.Errorf("lifecycle pass: %w", err)
	}
	for d := 0; d < r.cfg.Days; d++ {
		at := start.Add(time.Duration(d*24)*time.Hour + time.Hour)
		path := "/score?at=" + at.Format(time.RFC3339)
		if err := r.post(ctx, path, nil, nil); err != nil {
			return fmt.Errorf("score day %d: %w", d, err)
		}
	}

	var stats map[string]any
	if err := r.get(ctx, "/stats", &stats); err != nil {
		return fmt.Errorf("fetch stats: %w", err)
	}
	r.log.Info(ctx, "run complete", logger.Any("stats", stats))
	return nil
}

func (r *Runner) postBatch(ctx context.Context, articles []*model.Article) error {
	type wireArticle struct {
		ID          string  `json:"id"`
		Source      string  `json:"source"`
		URL         string  `json:"url"`
		Entity      string  `json:"entity"`
		PublishedAt string  `json:"published_at"`
		Title       string  `json:"title"`
		Text        string  `json:"text"`
		Sentiment   float64 `json:"sentiment"`
	}
	batch := struct {
		Articles []wireArticle `json:"articles"`
	}{}
	for _, a := range articles {
		batch.Articles = append(batch.Articles, wireArticle{
			ID:          a.ID,
			Source:      a.Source,
			URL:         a.URL,
			Entity:      a.Entity,
			PublishedAt: a.PublishedAt.Format(time.RFC3339),
			Title:       a.Title,
			Text:        a.Text,
			Sentiment:   a.Sentiment,
		})
	}
	return r.post(ctx, "/batch", batch, nil)
}

func (r *Runner) postSignals(ctx context.Context, signals []signalInput) error {
	type wireSignal struct {
		Entity     string  `json:"entity"`
		Type       string  `json:"type"`
		Raw        float64 `json:"raw"`
		ObservedAt string  `json:"observed_at"`
	}
	req := struct {
		Signals []wireSignal `json:"signals"`
	}{}
	for _, s := range signals {
		req.Signals = append(req.Signals, wireSignal{
			Entity:     s.Entity,
			Type:       s.Type,
			Raw:        s.Raw,
			ObservedAt: s.ObservedAt.Format(time.RFC3339),
		})
	}
	return r.post(ctx, "/signals", req, nil)
}

func (r *Runner) post(ctx context.Context, path string, body, out any) error {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return r.do(req, out)
}

func (r *Runner) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return r.do(req, out)
}

func (r *Runner) do(req *http.Request, out any) error {
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, string(b))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
