package application

import (
	"slices"
	"time"

	"github.com/ericfisherdev/reviewq/internal/domain/model"
	"github.com/ericfisherdev/reviewq/internal/domain/port/driven"
)

// stateInputs carries what the override rules need beyond the mapped state.
type stateInputs struct {
	seriesInactive bool
	// lastAuthor wrote the newest comment; nil when there are none.
	lastAuthor *model.Person
	// followedBy is the person whose reply turns a reviewed item into a
	// follow-up (the submitter or the assignee); nil disables the rule.
	followedBy *model.Person
	tags       []string
	excludeTag string
}

// resolveState applies the override rules to a state mapped from a remote
// status, in order: an inactive series abandons, a reply from followedBy on a
// reviewed or closed item asks for follow-up, and the exclusion tag abandons.
func resolveState(mapped model.ReviewState, in stateInputs) model.ReviewState {
	state := mapped

	if in.seriesInactive {
		state = model.StateAbandoned
	}

	if (state == model.StateReviewed || state == model.StateClosed) &&
		in.lastAuthor != nil && in.followedBy != nil && in.lastAuthor.Equal(*in.followedBy) {
		state = model.StateFollowUp
	}

	if in.excludeTag != "" && slices.Contains(in.tags, in.excludeTag) {
		state = model.StateAbandoned
	}

	return state
}

// snapshot captures the reconciled fields of a review before it changes.
type snapshot struct {
	exists  bool
	state   model.ReviewState
	updated time.Time
}

func snapshotOf(r *model.Review) snapshot {
	return snapshot{exists: r.ID != 0, state: r.State, updated: r.Updated}
}

// changed reports whether the review moved since the snapshot was taken.
func (s snapshot) changed(r *model.Review) bool {
	return !s.updated.Equal(r.Updated) || s.state != r.State
}

// outcome classifies the reconciliation for metrics.
func (s snapshot) outcome(r *model.Review) string {
	switch {
	case !s.exists:
		return driven.OutcomeCreated
	case s.changed(r):
		return driven.OutcomeChanged
	default:
		return driven.OutcomeUnchanged
	}
}

// settle clears a stale advisory lock: any lock is released when the remote
// side moved.
func (s snapshot) settle(r *model.Review) {
	if s.exists && s.changed(r) {
		r.Unlock()
	}
}

func latest(ts ...time.Time) time.Time {
	var newest time.Time
	for _, t := range ts {
		if t.After(newest) {
			newest = t
		}
	}
	return newest
}
