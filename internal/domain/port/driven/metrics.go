package driven

import (
	"time"

	"github.com/ericfisherdev/reviewq/internal/domain/model"
)

// Reconciliation outcomes reported to IngestMetrics.
const (
	OutcomeCreated   = "created"
	OutcomeChanged   = "changed"
	OutcomeUnchanged = "unchanged"
	OutcomeAbandoned = "abandoned"
	OutcomeClosed    = "closed"
)

// IngestMetrics receives ingestion observations.
type IngestMetrics interface {
	ObserveIngest(source string, duration time.Duration, err error)
	ReviewReconciled(source, outcome string)
	VoteCreated(source string, vote model.VoteKind)
}
