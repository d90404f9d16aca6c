package service

import (
	"context"
	"encoding/csv"
	"os"
	"testing"
	"time"

	"orbita/internal/models"
	"orbita/internal/repository"
	"orbita/pkg/database"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupService(t *testing.T) TelemetryService {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	repo := repository.NewTelemetryRepository(db)
	return NewTelemetryService(repo, t.TempDir(), 100)
}

func mustCreate(t *testing.T, svc TelemetryService, satelliteID string, ts time.Time, status models.TelemetryStatus) *models.Telemetry {
	t.Helper()
	record, err := svc.Create(context.Background(), &models.Telemetry{
		SatelliteID: satelliteID,
		Timestamp:   ts,
		Altitude:    550.0,
		Velocity:    7.6,
		Status:      status,
	})
	require.NoError(t, err)
	return record
}

func TestGetByIDMapsNotFound(t *testing.T) {
	svc := setupService(t)

	_, err := svc.GetByID(context.Background(), 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteByIDMapsNotFound(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	record := mustCreate(t, svc, "SAT-001", time.Now().UTC(), models.StatusHealthy)

	require.NoError(t, svc.DeleteByID(ctx, record.ID))
	require.ErrorIs(t, svc.DeleteByID(ctx, record.ID), ErrNotFound)
	_, err := svc.GetByID(ctx, record.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListPageMath(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	base := time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		mustCreate(t, svc, "SAT-001", base.Add(time.Duration(i)*time.Minute), models.StatusHealthy)
	}

	page, err := svc.List(ctx, ListQuery{Page: 1, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, int64(3), page.Pages)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.Size)

	// Страница за пределами набора — не ошибка
	beyond, err := svc.List(ctx, ListQuery{Page: 4, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), beyond.Total)
	assert.NotNil(t, beyond.Items)
	assert.Empty(t, beyond.Items)
	assert.Equal(t, 4, beyond.Page)
}

func TestListGuardsBounds(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	mustCreate(t, svc, "SAT-001", time.Now().UTC(), models.StatusHealthy)

	page, err := svc.List(ctx, ListQuery{Page: 0, Size: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 100, page.Size)

	page, err = svc.List(ctx, ListQuery{Page: 1, Size: 10000})
	require.NoError(t, err)
	assert.Equal(t, 100, page.Size)
}

func TestExportFormats(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	ts := time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC)
	mustCreate(t, svc, "SAT-001", ts, models.StatusHealthy)
	mustCreate(t, svc, "SAT-002", ts.Add(time.Minute), models.StatusCritical)

	csvPath, err := svc.Export(ctx, "csv", repository.TelemetryFilter{})
	require.NoError(t, err)
	file, err := os.Open(csvPath)
	require.NoError(t, err)
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3) // заголовок + 2 записи
	assert.Equal(t, "SAT-002", rows[1][1], "export keeps timestamp-descending order")

	jsonPath, err := svc.Export(ctx, "json", repository.TelemetryFilter{})
	require.NoError(t, err)
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "SAT-001")

	xlsxPath, err := svc.Export(ctx, "xlsx", repository.TelemetryFilter{})
	require.NoError(t, err)
	book, err := excelize.OpenFile(xlsxPath)
	require.NoError(t, err)
	defer book.Close()
	cell, err := book.GetCellValue("Telemetry", "B2")
	require.NoError(t, err)
	assert.Equal(t, "SAT-002", cell)
}

func TestExportFilteredAndEmpty(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	mustCreate(t, svc, "SAT-001", time.Now().UTC(), models.StatusHealthy)

	_, err := svc.Export(ctx, "csv", repository.TelemetryFilter{SatelliteID: "SAT-404"})
	require.ErrorIs(t, err, ErrNoData)

	_, err = svc.Export(ctx, "pdf", repository.TelemetryFilter{})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNoData)
}

func TestPurgeOlderThan(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	old := time.Now().UTC().Add(-48 * time.Hour)
	recent := time.Now().UTC().Add(-time.Hour)
	mustCreate(t, svc, "SAT-001", old, models.StatusHealthy)
	keep := mustCreate(t, svc, "SAT-001", recent, models.StatusCritical)

	removed, err := svc.PurgeOlderThan(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	page, err := svc.List(ctx, ListQuery{Page: 1, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, keep.ID, page.Items[0].ID)
}
