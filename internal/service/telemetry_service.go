package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"orbita/internal/models"
	"orbita/internal/repository"
	"orbita/internal/utils"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("telemetry record not found")
	ErrNoData   = errors.New("no telemetry records match the export filter")
)

type ListQuery struct {
	Filter repository.TelemetryFilter
	Page   int
	Size   int
}

// TelemetryPage is the list response envelope.
type TelemetryPage struct {
	Items []models.Telemetry `json:"items"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Size  int                `json:"size"`
	Pages int64              `json:"pages"`
}

type TelemetryService interface {
	Create(ctx context.Context, telemetry *models.Telemetry) (*models.Telemetry, error)
	GetByID(ctx context.Context, id uint) (*models.Telemetry, error)
	DeleteByID(ctx context.Context, id uint) error
	List(ctx context.Context, query ListQuery) (*TelemetryPage, error)
	Export(ctx context.Context, format string, filter repository.TelemetryFilter) (string, error)
	PurgeOlderThan(ctx context.Context, maxAge time.Duration) (int64, error)
}

type telemetryService struct {
	repo      repository.TelemetryRepository
	outputDir string
	maxSize   int
}

func NewTelemetryService(repo repository.TelemetryRepository, outputDir string, maxPageSize int) TelemetryService {
	if outputDir == "" {
		outputDir = "./data/exports"
	}
	if maxPageSize < 1 {
		maxPageSize = 100
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		log.Printf("Failed to create export directory: %v", err)
	}

	return &telemetryService{
		repo:      repo,
		outputDir: outputDir,
		maxSize:   maxPageSize,
	}
}

func (s *telemetryService) Create(ctx context.Context, telemetry *models.Telemetry) (*models.Telemetry, error) {
	if err := s.repo.Create(ctx, telemetry); err != nil {
		return nil, err
	}
	return telemetry, nil
}

func (s *telemetryService) GetByID(ctx context.Context, id uint) (*models.Telemetry, error) {
	telemetry, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return telemetry, nil
}

func (s *telemetryService) DeleteByID(ctx context.Context, id uint) error {
	rows, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *telemetryService) List(ctx context.Context, query ListQuery) (*TelemetryPage, error) {
	// Границы уже проверены на уровне API, здесь только страховка
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Size < 1 || query.Size > s.maxSize {
		query.Size = s.maxSize
	}

	offset := (query.Page - 1) * query.Size
	items, total, err := s.repo.List(ctx, query.Filter, offset, query.Size)
	if err != nil {
		return nil, err
	}

	if items == nil {
		items = []models.Telemetry{}
	}

	pages := total / int64(query.Size)
	if total%int64(query.Size) != 0 {
		pages++
	}

	return &TelemetryPage{
		Items: items,
		Total: total,
		Page:  query.Page,
		Size:  query.Size,
		Pages: pages,
	}, nil
}

func (s *telemetryService) Export(ctx context.Context, format string, filter repository.TelemetryFilter) (string, error) {
	// Без окна: экспортируется весь отфильтрованный набор
	records, _, err := s.repo.List(ctx, filter, 0, -1)
	if err != nil {
		return "", fmt.Errorf("failed to get telemetry data: %w", err)
	}

	if len(records) == 0 {
		return "", ErrNoData
	}

	timestamp := time.Now().UTC().Format("20060102_150405")

	switch format {
	case "csv":
		path := filepath.Join(s.outputDir, fmt.Sprintf("telemetry_export_%s.csv", timestamp))
		if err := utils.WriteCSVFile(path, records); err != nil {
			return "", err
		}
		return path, nil

	case "excel", "xlsx":
		path := filepath.Join(s.outputDir, fmt.Sprintf("telemetry_export_%s.xlsx", timestamp))
		if err := utils.CreateExcelFile(path, records); err != nil {
			return "", err
		}
		return path, nil

	case "json":
		path := filepath.Join(s.outputDir, fmt.Sprintf("telemetry_export_%s.json", timestamp))
		if err := utils.SaveAsJSON(path, records); err != nil {
			return "", err
		}
		return path, nil

	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func (s *telemetryService) PurgeOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	removed, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		log.Printf("Retention purge removed %d records older than %s", removed, cutoff.Format(time.RFC3339))
	}
	return removed, nil
}
