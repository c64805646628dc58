package application

import (
	"context"
	"time"

	"github.com/ericfisherdev/reviewq/internal/domain/port/driven"
)

// Health status values.
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
)

// HealthReport is the service health view served by the HTTP API.
type HealthReport struct {
	Status        string
	Database      string
	SchemaVersion uint
	SchemaDirty   bool
	Sources       map[string]ScheduleInfo
	CheckedAt     time.Time
}

// scheduleSource is satisfied by IngestService.
type scheduleSource interface {
	Schedules() map[string]ScheduleInfo
}

// HealthService combines the database probe with the ingest schedules.
type HealthService struct {
	db        driven.DatabaseProbe
	schedules scheduleSource
	now       func() time.Time
}

// NewHealthService creates a new HealthService. schedules may be nil when no
// ingest loop runs in this process.
func NewHealthService(db driven.DatabaseProbe, schedules scheduleSource) *HealthService {
	return &HealthService{db: db, schedules: schedules, now: time.Now}
}

// Check probes the database and reports a degraded status when it is
// unreachable or its schema is dirty.
func (s *HealthService) Check(ctx context.Context) HealthReport {
	report := HealthReport{
		Status:    HealthOK,
		Database:  HealthOK,
		CheckedAt: s.now().UTC(),
	}

	if err := s.db.Ping(ctx); err != nil {
		report.Status = HealthDegraded
		report.Database = err.Error()
	} else if version, dirty, err := s.db.SchemaVersion(); err != nil {
		report.Status = HealthDegraded
		report.Database = err.Error()
	} else {
		report.SchemaVersion = version
		report.SchemaDirty = dirty
		if dirty {
			report.Status = HealthDegraded
		}
	}

	if s.schedules != nil {
		report.Sources = s.schedules.Schedules()
	}
	return report
}
