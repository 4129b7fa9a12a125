package worker

import (
	"sync"

	"github.com/newslens/hypetrack/internal/domain/model"
)

// Deferrals collects articles that hit a resource error (embedding timeout,
// provider outage) so the next batch can retry them instead of losing them.
type Deferrals struct {
	mu    sync.Mutex
	items []*model.Article
}

// NewDeferrals creates an empty deferral buffer.
func NewDeferrals() *Deferrals {
	return &Deferrals{}
}

// Add parks an article for the next batch.
func (d *Deferrals) Add(art *model.Article) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items = append(d.items, art)
}

// Drain removes and returns all parked articles.
func (d *Deferrals) Drain() []*model.Article {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.items
	d.items = nil
	return out
}

// Len returns the number of parked articles.
func (d *Deferrals) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items)
}
