// Package simfeed generates a deterministic synthetic news feed and drives
// a running engine with it over HTTP. It exists for load checks and demos;
// nothing in the engine depends on it.
package simfeed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/newslens/hypetrack/internal/domain/model"
)

// wordPool seeds the synthetic article text. Articles of the same story
// share most of their sentences, so they cluster together under any
// reasonable lexical or semantic embedding.
var wordPool = []string{
	"shares", "regulator", "filing", "guidance", "quarter", "revenue",
	"lawsuit", "merger", "outage", "recall", "launch", "partnership",
	"investigation", "earnings", "forecast", "upgrade", "downgrade",
	"breach", "settlement", "expansion", "layoffs", "acquisition",
	"dividend", "disruption", "shortage", "approval", "patent", "strike",
}

var sources = []string{
	"wire-global", "daily-ledger", "market-pulse", "the-monitor",
	"city-desk", "sector-watch", "newsfeed-x", "openpress",
}

// Story is one synthetic news event: a bundle of near-identical articles
// about the same happening.
type Story struct {
	Entity   string
	Articles []*model.Article
}

// Generator produces deterministic synthetic stories.
type Generator struct {
	rnd   *rand.Rand
	start time.Time
}

// NewGenerator creates a Generator; the same seed always yields the same
// feed.
func NewGenerator(seed int64, start time.Time) *Generator {
	return &Generator{
		rnd:   rand.New(rand.NewSource(seed)),
		start: start.UTC(),
	}
}

// Stories generates count stories for the entity, each with n articles
// spread over the story's first day, plus exact duplicates at dupRate.
func (g *Generator) Stories(entity string, count, n int, dupRate float64) []Story {
	out := make([]Story, 0, count)
	for s := 0; s < count; s++ {
		// Each story gets its own vocabulary slice so stories stay
		// lexically apart from one another.
		base := g.sentences(6 + g.rnd.Intn(4))
		storyStart := g.start.Add(time.Duration(s*36) * time.Hour)

		story := Story{Entity: entity}
		for i := 0; i < n; i++ {
			art := g.article(entity, base, storyStart, i)
			story.Articles = append(story.Articles, art)
			if g.rnd.Float64() < dupRate {
				dup := *art
				dup.ID = uuid.NewString()
				dup.Source = sources[g.rnd.Intn(len(sources))]
				story.Articles = append(story.Articles, &dup)
			}
		}
		out = append(out, story)
	}
	return out
}

func (g *Generator) article(entity string, base []string, storyStart time.Time, i int) *model.Article {
	// Keep most of the base text, vary a sentence or two per outlet.
	text := append([]string(nil), base...)
	for j := 0; j < 1+g.rnd.Intn(2); j++ {
		text[g.rnd.Intn(len(text))] = g.sentence()
	}
	return &model.Article{
		ID:          uuid.NewString(),
		Source:      sources[g.rnd.Intn(len(sources))],
		URL:         fmt.Sprintf("https://example.test/%s/%s", entity, uuid.NewString()),
		Entity:      entity,
		PublishedAt: storyStart.Add(time.Duration(i*2) * time.Hour),
		Title:       fmt.Sprintf("%s %s %s", entity, wordPool[g.rnd.Intn(len(wordPool))], wordPool[g.rnd.Intn(len(wordPool))]),
		Text:        strings.Join(text, " "),
		Sentiment:   g.rnd.Float64()*2 - 1,
	}
}

func (g *Generator) sentences(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = g.sentence()
	}
	return out
}

func (g *Generator) sentence() string {
	words := make([]string, 8+g.rnd.Intn(8))
	for i := range words {
		words[i] = wordPool[g.rnd.Intn(len(wordPool))]
	}
	return strings.Join(words, " ") + "."
}

// Signals generates raw impact signals for the entity across the feed's
// time range, one observation per signal type per day.
func (g *Generator) Signals(entity string, days int) []signalInput {
	var out []signalInput
	for d := 0; d < days; d++ {
		at := g.start.Add(time.Duration(d*24) * time.Hour).Add(time.Hour)
		out = append(out,
			signalInput{Entity: entity, Type: "search_interest", Raw: 20 + g.rnd.Float64()*80, ObservedAt: at},
			signalInput{Entity: entity, Type: "market_movement", Raw: (g.rnd.Float64() - 0.5) * 8, ObservedAt: at},
			signalInput{Entity: entity, Type: "verified_events", Raw: float64(g.rnd.Intn(4)), ObservedAt: at},
		)
	}
	return out
}
