package application

import (
	"time"
)

// ActivityTier classifies a source by how recently any of its reviews
// changed. Busier sources are polled more often.
type ActivityTier int

const (
	TierHot ActivityTier = iota
	TierActive
	TierWarm
	TierStale
)

// tierRules are checked in order; the first rule whose window contains the
// elapsed time wins. The stale rule has no window and catches the rest.
var tierRules = []struct {
	tier   ActivityTier
	name   string
	within time.Duration
	every  time.Duration
}{
	{TierHot, "hot", time.Hour, 5 * time.Minute},
	{TierActive, "active", 24 * time.Hour, 15 * time.Minute},
	{TierWarm, "warm", 7 * 24 * time.Hour, time.Hour},
	{TierStale, "stale", 0, 3 * time.Hour},
}

// String returns the tier name reported by the health endpoint.
func (t ActivityTier) String() string {
	for _, r := range tierRules {
		if r.tier == t {
			return r.name
		}
	}
	return "unknown"
}

// tierInterval returns the polling interval for tier. Unknown tiers poll at
// the active rate.
func tierInterval(tier ActivityTier) time.Duration {
	for _, r := range tierRules {
		if r.tier == tier {
			return r.every
		}
	}
	return tierInterval(TierActive)
}

// classifyActivity picks the tier for a source whose freshest review changed
// at lastActivity. A source with no reviews is stale.
func classifyActivity(lastActivity, now time.Time) ActivityTier {
	if lastActivity.IsZero() {
		return TierStale
	}

	elapsed := now.Sub(lastActivity)
	for _, r := range tierRules {
		if r.within > 0 && elapsed < r.within {
			return r.tier
		}
	}
	return TierStale
}

// sourceSchedule tracks per-source adaptive polling state.
type sourceSchedule struct {
	tier       ActivityTier
	nextPollAt time.Time
	lastPolled time.Time
}

// due reports whether the source should be ingested at now.
func (s *sourceSchedule) due(now time.Time) bool {
	return !now.Before(s.nextPollAt)
}

// advance records an ingest at now and reschedules from the freshest activity.
func (s *sourceSchedule) advance(now, freshest time.Time) {
	s.tier = classifyActivity(freshest, now)
	s.lastPolled = now
	s.nextPollAt = now.Add(tierInterval(s.tier))
}

// ScheduleInfo is an exported view of a source's adaptive polling schedule,
// used for observability and testing.
type ScheduleInfo struct {
	Tier       ActivityTier
	NextPollAt time.Time
	LastPolled time.Time
}
