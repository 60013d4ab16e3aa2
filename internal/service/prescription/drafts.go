package prescription

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/clinic-api/internal/composer"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
)

// Draft is one in-progress prescription. Only Composer changes after creation.
type Draft struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	Doctor    string
	Notes     string
	Composer  *composer.Composer
	CreatedAt time.Time
}

// DraftStore keeps drafts in process memory. A draft expires after ttl without access.
type DraftStore struct {
	cache   *cache.Cache
	metrics *metrics.Metrics
}

func NewDraftStore(ttl, cleanupInterval time.Duration, m *metrics.Metrics) *DraftStore {
	s := &DraftStore{
		cache:   cache.New(ttl, cleanupInterval),
		metrics: m,
	}
	// go-cache runs the callback outside its lock, so counting here is safe.
	s.cache.OnEvicted(func(string, interface{}) { s.observe() })
	return s
}

func (s *DraftStore) Put(d *Draft) {
	s.cache.SetDefault(d.ID.String(), d)
	s.observe()
}

// Get returns the draft and extends its lifetime.
func (s *DraftStore) Get(id uuid.UUID) (*Draft, bool) {
	v, ok := s.cache.Get(id.String())
	if !ok {
		return nil, false
	}
	d := v.(*Draft)
	s.cache.SetDefault(id.String(), d)
	return d, true
}

func (s *DraftStore) Delete(id uuid.UUID) bool {
	if _, ok := s.cache.Get(id.String()); !ok {
		return false
	}
	s.cache.Delete(id.String())
	return true
}

func (s *DraftStore) Len() int {
	return s.cache.ItemCount()
}

func (s *DraftStore) observe() {
	if s.metrics == nil {
		return
	}
	s.metrics.DraftsActive.Set(float64(s.cache.ItemCount()))
}
