package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	Registrations        map[string]uint64
	Logins               map[string]uint64
	TokenVerifications   map[string]uint64
	RateLimited          map[string]uint64
	PasswordRehashes     uint64
	HashDurationCount    uint64
	HashDurationTotalNs  int64
	ProfileCacheHits     uint64
	ProfileCacheMisses   uint64
	HTTPRequests         uint64
	HTTPDurationTotalNs  int64
	HTTPRequestsByStatus map[int]uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu                 sync.Mutex
	registrations      map[string]uint64
	logins             map[string]uint64
	tokenVerifications map[string]uint64
	rateLimited        map[string]uint64
	httpByStatus       map[int]uint64

	passwordRehashes    uint64
	hashDurationCount   uint64
	hashDurationTotalNs int64
	profileCacheHits    uint64
	profileCacheMisses  uint64
	httpRequests        uint64
	httpDurationTotalNs int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		registrations:      make(map[string]uint64),
		logins:             make(map[string]uint64),
		tokenVerifications: make(map[string]uint64),
		rateLimited:        make(map[string]uint64),
		httpByStatus:       make(map[int]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Snapshot{
		Registrations:        copyCounts(m.registrations),
		Logins:               copyCounts(m.logins),
		TokenVerifications:   copyCounts(m.tokenVerifications),
		RateLimited:          copyCounts(m.rateLimited),
		HTTPRequestsByStatus: copyCounts(m.httpByStatus),
		PasswordRehashes:     atomic.LoadUint64(&m.passwordRehashes),
		HashDurationCount:    atomic.LoadUint64(&m.hashDurationCount),
		HashDurationTotalNs:  atomic.LoadInt64(&m.hashDurationTotalNs),
		ProfileCacheHits:     atomic.LoadUint64(&m.profileCacheHits),
		ProfileCacheMisses:   atomic.LoadUint64(&m.profileCacheMisses),
		HTTPRequests:         atomic.LoadUint64(&m.httpRequests),
		HTTPDurationTotalNs:  atomic.LoadInt64(&m.httpDurationTotalNs),
	}
}

func copyCounts[K comparable](src map[K]uint64) map[K]uint64 {
	dst := make(map[K]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (m *InMemoryRecorder) inc(counts map[string]uint64, label string) {
	m.mu.Lock()
	counts[label]++
	m.mu.Unlock()
}

// IncRegistration counts a registration attempt by outcome.
func (m *InMemoryRecorder) IncRegistration(outcome string) {
	m.inc(m.registrations, outcome)
}

// IncLogin counts a login attempt by outcome.
func (m *InMemoryRecorder) IncLogin(outcome string) {
	m.inc(m.logins, outcome)
}

// IncTokenVerification counts a token check by result.
func (m *InMemoryRecorder) IncTokenVerification(result string) {
	m.inc(m.tokenVerifications, result)
}

// IncRateLimited counts a rejected request by scope.
func (m *InMemoryRecorder) IncRateLimited(scope string) {
	m.inc(m.rateLimited, scope)
}

// IncPasswordRehash increments the rehash counter.
func (m *InMemoryRecorder) IncPasswordRehash() {
	atomic.AddUint64(&m.passwordRehashes, 1)
}

// ObservePasswordHashDuration records hashing time.
func (m *InMemoryRecorder) ObservePasswordHashDuration(duration time.Duration) {
	atomic.AddUint64(&m.hashDurationCount, 1)
	atomic.AddInt64(&m.hashDurationTotalNs, duration.Nanoseconds())
}

// IncProfileCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncProfileCacheHit() {
	atomic.AddUint64(&m.profileCacheHits, 1)
}

// IncProfileCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncProfileCacheMiss() {
	atomic.AddUint64(&m.profileCacheMisses, 1)
}

// ObserveHTTPRequest records one served request.
func (m *InMemoryRecorder) ObserveHTTPRequest(_, _ string, status int, duration time.Duration) {
	atomic.AddUint64(&m.httpRequests, 1)
	atomic.AddInt64(&m.httpDurationTotalNs, duration.Nanoseconds())

	m.mu.Lock()
	m.httpByStatus[status]++
	m.mu.Unlock()
}
