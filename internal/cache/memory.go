package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/circleapp/circle/pkg/logging"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is the in-process Store implementation.
//
// Expiry is lazy: a key whose TTL has elapsed is treated as absent at
// access time. A periodic sweep reclaims memory for keys nothing reads
// anymore. Eviction is TTL-only; there is no size bound, so key
// cardinality must stay bounded by the caller's key shapes.
type Memory struct {
	mu   sync.RWMutex
	data map[Namespace]map[string]entry
	ttls TTLs

	sweepInterval time.Duration
	stop          chan struct{}
	stopOnce      sync.Once

	// now is swappable for tests
	now func() time.Time

	logger *zap.Logger
}

// NewMemory creates an in-process store with per-namespace default TTLs.
func NewMemory(ttls TTLs, sweepInterval time.Duration) *Memory {
	m := &Memory{
		data:          make(map[Namespace]map[string]entry, len(Namespaces)),
		ttls:          ttls,
		sweepInterval: sweepInterval,
		stop:          make(chan struct{}),
		now:           time.Now,
		logger:        logging.WithComponent("cache-memory"),
	}
	for _, ns := range Namespaces {
		m.data[ns] = make(map[string]entry)
	}
	return m
}

// Start launches the sweep goroutine. Safe to skip in tests.
func (m *Memory) Start() {
	go func() {
		ticker := time.NewTicker(m.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.sweep()
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop terminates the sweep goroutine.
func (m *Memory) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// Get returns the cached value, treating elapsed TTLs as absence.
func (m *Memory) Get(_ context.Context, ns Namespace, key string) ([]byte, bool) {
	m.mu.RLock()
	e, ok := m.data[ns][key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !m.now().Before(e.expiresAt) {
		// Lazily expired; the sweep will reclaim it
		return nil, false
	}
	return e.value, true
}

// Set stores value under key. ttl <= 0 selects the namespace default.
func (m *Memory) Set(_ context.Context, ns Namespace, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = m.ttls[ns]
	}
	if ttl <= 0 {
		return
	}
	m.mu.Lock()
	bucket, ok := m.data[ns]
	if !ok {
		bucket = make(map[string]entry)
		m.data[ns] = bucket
	}
	bucket[key] = entry{value: value, expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
}

// Delete removes a single key.
func (m *Memory) Delete(_ context.Context, ns Namespace, key string) {
	m.mu.Lock()
	delete(m.data[ns], key)
	m.mu.Unlock()
}

// DeletePrefix removes every key in ns starting with prefix.
func (m *Memory) DeletePrefix(_ context.Context, ns Namespace, prefix string) {
	m.mu.Lock()
	for k := range m.data[ns] {
		if strings.HasPrefix(k, prefix) {
			delete(m.data[ns], k)
		}
	}
	m.mu.Unlock()
}

// Clear removes every key in ns.
func (m *Memory) Clear(_ context.Context, ns Namespace) {
	m.mu.Lock()
	m.data[ns] = make(map[string]entry)
	m.mu.Unlock()
}

// Len reports the number of live (non-expired) keys in ns.
func (m *Memory) Len(ns Namespace) int {
	now := m.now()
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.data[ns] {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}

func (m *Memory) sweep() {
	now := m.now()
	reclaimed := 0
	m.mu.Lock()
	for ns, bucket := range m.data {
		for k, e := range bucket {
			if !now.Before(e.expiresAt) {
				delete(bucket, k)
				reclaimed++
			}
		}
		m.data[ns] = bucket
	}
	m.mu.Unlock()
	if reclaimed > 0 {
		m.logger.Debug("Swept expired cache entries", zap.Int("reclaimed", reclaimed))
	}
}
