package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"orbita/internal/models"
	"orbita/internal/repository"
	"orbita/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTelemetryService struct {
	purges atomic.Int64
}

func (s *stubTelemetryService) Create(ctx context.Context, telemetry *models.Telemetry) (*models.Telemetry, error) {
	return telemetry, nil
}

func (s *stubTelemetryService) GetByID(ctx context.Context, id uint) (*models.Telemetry, error) {
	return nil, service.ErrNotFound
}

func (s *stubTelemetryService) DeleteByID(ctx context.Context, id uint) error {
	return service.ErrNotFound
}

func (s *stubTelemetryService) List(ctx context.Context, query service.ListQuery) (*service.TelemetryPage, error) {
	return &service.TelemetryPage{Items: []models.Telemetry{}}, nil
}

func (s *stubTelemetryService) Export(ctx context.Context, format string, filter repository.TelemetryFilter) (string, error) {
	return "", service.ErrNoData
}

func (s *stubTelemetryService) PurgeOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	s.purges.Add(1)
	return 0, nil
}

func TestRetentionWorkerPurgesOnSchedule(t *testing.T) {
	stub := &stubTelemetryService{}
	w := NewRetentionWorker(stub, 10*time.Millisecond, time.Hour)

	w.Start()
	time.Sleep(60 * time.Millisecond)
	w.Stop()

	// Первый проход выполняется сразу при старте
	require.GreaterOrEqual(t, stub.purges.Load(), int64(2))
}

func TestSchedulerStartsAndStopsWorkers(t *testing.T) {
	stub := &stubTelemetryService{}
	s := NewScheduler()
	s.AddWorker(NewRetentionWorker(stub, 10*time.Millisecond, time.Hour))

	s.Start()
	time.Sleep(30 * time.Millisecond)
	s.Stop()

	// Даем завершиться проходу, начатому до остановки
	time.Sleep(20 * time.Millisecond)
	after := stub.purges.Load()
	assert.GreaterOrEqual(t, after, int64(1))

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, stub.purges.Load(), "no purges after stop")
}
