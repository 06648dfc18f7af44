package leadlist

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/atinyakov/realtivo/internal/models"
)

// ErrStale is returned by Load when a newer Load started before this one
// finished; its response was discarded.
var ErrStale = errors.New("stale lead response discarded")

// LeadFetcher fetches the full lead list.
type LeadFetcher interface {
	FetchLeads(ctx context.Context) ([]models.Lead, error)
}

// Loader caches the lead list and guarantees that only the most recently
// started fetch may replace the cache.
type Loader struct {
	fetcher LeadFetcher
	log     *zap.Logger

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	leads      []models.Lead
}

// NewLoader creates a Loader over fetcher. log may be nil.
func NewLoader(fetcher LeadFetcher, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{fetcher: fetcher, log: log}
}

// Load fetches leads and replaces the cache. Starting a Load cancels the
// context of any earlier one still in flight.
func (l *Loader) Load(ctx context.Context) ([]models.Lead, error) {
	ctx, cancel := context.WithCancel(ctx)

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.generation++
	gen := l.generation
	l.cancel = cancel
	l.mu.Unlock()

	leads, err := l.fetcher.FetchLeads(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.generation {
		cancel()
		l.log.Debug("discarding stale lead response", zap.Uint64("generation", gen), zap.Uint64("current", l.generation))
		return nil, ErrStale
	}
	cancel()
	l.cancel = nil
	if err != nil {
		return nil, err
	}
	l.leads = append([]models.Lead(nil), leads...)
	return l.copyLeads(), nil
}

// Leads returns a copy of the cached leads.
func (l *Loader) Leads() []models.Lead {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.copyLeads()
}

func (l *Loader) copyLeads() []models.Lead {
	return append([]models.Lead(nil), l.leads...)
}

// Find returns the cached lead with id.
func (l *Loader) Find(id string) (models.Lead, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ld := range l.leads {
		if ld.ID == id {
			return ld, true
		}
	}
	return models.Lead{}, false
}

// Upsert replaces the cached lead with the same id or appends it.
func (l *Loader) Upsert(lead models.Lead) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.leads {
		if l.leads[i].ID == lead.ID {
			l.leads[i] = lead
			return
		}
	}
	l.leads = append(l.leads, lead)
}

// Remove drops the cached lead with id.
func (l *Loader) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.leads {
		if l.leads[i].ID == id {
			l.leads = append(l.leads[:i], l.leads[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the cache, e.g. on logout.
func (l *Loader) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.leads = nil
}
