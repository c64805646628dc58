package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewq/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/reviewq/internal/application"
)

type fakeProbe struct {
	pingErr error
	version uint
	dirty   bool
}

func (p fakeProbe) Ping(context.Context) error { return p.pingErr }

func (p fakeProbe) SchemaVersion() (uint, bool, error) { return p.version, p.dirty, nil }

type fixedSchedules map[string]application.ScheduleInfo

func (s fixedSchedules) Schedules() map[string]application.ScheduleInfo { return s }

func TestHealthService_Check(t *testing.T) {
	tests := []struct {
		name       string
		probe      fakeProbe
		wantStatus string
	}{
		{"healthy", fakeProbe{version: 3}, application.HealthOK},
		{"dirty schema", fakeProbe{version: 3, dirty: true}, application.HealthDegraded},
		{"unreachable", fakeProbe{pingErr: errors.New("disk gone")}, application.HealthDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := application.NewHealthService(tt.probe, fixedSchedules{
				"lp": {Tier: application.TierWarm},
			})
			report := svc.Check(context.Background())
			assert.Equal(t, tt.wantStatus, report.Status)
			assert.Equal(t, application.TierWarm, report.Sources["lp"].Tier)
		})
	}
}

func TestHealthService_RealDatabase(t *testing.T) {
	db, err := sqlite.NewMemoryDB(context.Background(), t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	report := application.NewHealthService(db, nil).Check(context.Background())
	assert.Equal(t, application.HealthOK, report.Status)
	assert.Equal(t, uint(3), report.SchemaVersion)
	assert.Nil(t, report.Sources)
}
