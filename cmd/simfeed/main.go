// Command simfeed submits a deterministic synthetic news feed to a running
// engine for demos and smoke checks.
package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/newslens/hypetrack/internal/simfeed"
	"github.com/newslens/hypetrack/pkg/logger"
)

const (
	defaultStories  = 5
	defaultArticles = 8
	defaultDupRate  = 0.1
	defaultDays     = 7
	defaultTimeout  = 30 * time.Second
	runTimeout      = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "base URL of the engine")
		entities = flag.String("entities", "acme,globex,initech", "comma-separated entity ids")
		stories  = flag.Int("stories", defaultStories, "stories per entity")
		articles = flag.Int("articles", defaultArticles, "articles per story")
		dupRate  = flag.Float64("dup-rate", defaultDupRate, "probability of an exact duplicate per article")
		days     = flag.Int("days", defaultDays, "days of feed history to simulate")
		seed     = flag.Int64("seed", 42, "feed generator seed")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	runner := simfeed.NewRunner(simfeed.Config{
		BaseURL:          *baseURL,
		Entities:         strings.Split(*entities, ","),
		StoriesPerEntity: *stories,
		ArticlesPerStory: *articles,
		DupRate:          *dupRate,
		Days:             *days,
		Seed:             *seed,
		Timeout:          *timeout,
	})
	if err := runner.Run(ctx); err != nil {
		os.Stderr.WriteString("simfeed failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
