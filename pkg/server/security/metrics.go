package security

import (
	"sync"
	"time"
)

// AssetMetrics are the security counters kept per asset.
type AssetMetrics struct {
	TotalQueries          uint64            `json:"total_queries"`
	SuspiciousQueries     uint64            `json:"suspicious_queries"`
	LastSuspiciousTime    time.Time         `json:"last_suspicious_time"`
	ConsecutiveSuspicious uint32            `json:"consecutive_suspicious"`
	PerCallerQueryCount   map[string]uint64 `json:"per_caller_query_count"`
}

// MetricsStore keeps AssetMetrics for every asset that has been queried.
type MetricsStore struct {
	mu     sync.Mutex
	assets map[string]*AssetMetrics
}

// NewMetricsStore creates an empty store.
func NewMetricsStore() *MetricsStore {
	return &MetricsStore{assets: make(map[string]*AssetMetrics)}
}

func (s *MetricsStore) get(asset string) *AssetMetrics {
	m, ok := s.assets[asset]
	if !ok {
		m = &AssetMetrics{PerCallerQueryCount: make(map[string]uint64)}
		s.assets[asset] = m
	}
	return m
}

// RecordQuery counts a secure price query by caller.
func (s *MetricsStore) RecordQuery(asset, caller string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.get(asset)
	m.TotalQueries++
	m.PerCallerQueryCount[caller]++
}

// RecordSuspicious counts a suspicious event and returns the new streak.
func (s *MetricsStore) RecordSuspicious(asset string, now time.Time) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.get(asset)
	m.SuspiciousQueries++
	m.LastSuspiciousTime = now
	m.ConsecutiveSuspicious++
	return m.ConsecutiveSuspicious
}

// ResetStreak zeroes the consecutive suspicious counter.
func (s *MetricsStore) ResetStreak(asset string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.assets[asset]; ok {
		m.ConsecutiveSuspicious = 0
	}
}

// Snapshot returns a copy of the asset's counters. Unknown assets yield zero values.
func (s *MetricsStore) Snapshot(asset string) AssetMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := AssetMetrics{PerCallerQueryCount: make(map[string]uint64)}
	m, ok := s.assets[asset]
	if !ok {
		return out
	}
	out.TotalQueries = m.TotalQueries
	out.SuspiciousQueries = m.SuspiciousQueries
	out.LastSuspiciousTime = m.LastSuspiciousTime
	out.ConsecutiveSuspicious = m.ConsecutiveSuspicious
	for k, v := range m.PerCallerQueryCount {
		out.PerCallerQueryCount[k] = v
	}
	return out
}
