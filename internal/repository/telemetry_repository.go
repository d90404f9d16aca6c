package repository

import (
	"context"
	"time"

	"orbita/internal/models"

	"gorm.io/gorm"
)

// TelemetryFilter narrows a listing by exact match. Zero values mean the
// field is not filtered; both filters combine with AND.
type TelemetryFilter struct {
	SatelliteID string
	Status      models.TelemetryStatus
}

type TelemetryRepository interface {
	Create(ctx context.Context, telemetry *models.Telemetry) error
	GetByID(ctx context.Context, id uint) (*models.Telemetry, error)
	DeleteByID(ctx context.Context, id uint) (int64, error)
	List(ctx context.Context, filter TelemetryFilter, offset, limit int) ([]models.Telemetry, int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type telemetryRepository struct {
	db *gorm.DB
}

func NewTelemetryRepository(db *gorm.DB) TelemetryRepository {
	return &telemetryRepository{db: db}
}

func (r *telemetryRepository) Create(ctx context.Context, telemetry *models.Telemetry) error {
	return r.db.WithContext(ctx).Create(telemetry).Error
}

func (r *telemetryRepository) GetByID(ctx context.Context, id uint) (*models.Telemetry, error) {
	var telemetry models.Telemetry
	if err := r.db.WithContext(ctx).First(&telemetry, id).Error; err != nil {
		return nil, err
	}
	return &telemetry, nil
}

func (r *telemetryRepository) DeleteByID(ctx context.Context, id uint) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.Telemetry{}, id)
	return result.RowsAffected, result.Error
}

// List returns one page of matching records plus the total match count.
// Count and fetch are derived from the same predicate, so they can never
// disagree within a request. Pass limit -1 to fetch everything.
func (r *telemetryRepository) List(ctx context.Context, filter TelemetryFilter, offset, limit int) ([]models.Telemetry, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Telemetry{})

	if filter.SatelliteID != "" {
		query = query.Where("satellite_id = ?", filter.SatelliteID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var telemetries []models.Telemetry
	// id DESC разрешает совпадающие timestamp детерминированно
	err := query.
		Order("timestamp DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&telemetries).
		Error
	return telemetries, total, err
}

func (r *telemetryRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("timestamp < ?", cutoff).
		Delete(&models.Telemetry{})
	return result.RowsAffected, result.Error
}
