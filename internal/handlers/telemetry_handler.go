package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"

	"orbita/internal/models"
	"orbita/internal/repository"
	"orbita/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type TelemetryHandler struct {
	service         service.TelemetryService
	defaultPageSize int
	maxPageSize     int
}

func NewTelemetryHandler(service service.TelemetryService, defaultPageSize, maxPageSize int) *TelemetryHandler {
	if defaultPageSize < 1 {
		defaultPageSize = 50
	}
	if maxPageSize < defaultPageSize {
		maxPageSize = 100
	}
	return &TelemetryHandler{
		service:         service,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}
}

func (h *TelemetryHandler) CreateTelemetry(c *gin.Context) {
	ctx := c.Request.Context()

	var req TelemetryCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fieldErrorsFromBinding(err))
		return
	}

	timestamp, err := parseTimestamp(req.Timestamp)
	if err != nil {
		respondValidationError(c, []FieldError{{
			Field:   "timestamp",
			Message: "must be a valid ISO 8601 date-time",
		}})
		return
	}

	record := &models.Telemetry{
		SatelliteID: req.SatelliteID,
		Timestamp:   timestamp,
		Altitude:    *req.Altitude,
		Velocity:    *req.Velocity,
		Status:      models.TelemetryStatus(req.Status),
	}

	stored, err := h.service.Create(ctx, record)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stored)
}

func (h *TelemetryHandler) ListTelemetry(c *gin.Context) {
	ctx := c.Request.Context()

	filter, fields := h.parseFilter(c)

	page := 1
	if raw := c.Query("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			fields = append(fields, FieldError{
				Field:   "page",
				Message: "must be an integer greater than or equal to 1",
			})
		} else {
			page = parsed
		}
	}

	size := h.defaultPageSize
	if raw := c.Query("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > h.maxPageSize {
			fields = append(fields, FieldError{
				Field:   "size",
				Message: fmt.Sprintf("must be an integer between 1 and %d", h.maxPageSize),
			})
		} else {
			size = parsed
		}
	}

	if len(fields) > 0 {
		respondValidationError(c, fields)
		return
	}

	result, err := h.service.List(ctx, service.ListQuery{
		Filter: filter,
		Page:   page,
		Size:   size,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *TelemetryHandler) GetTelemetry(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := parseID(c)
	if !ok {
		return
	}

	record, err := h.service.GetByID(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *TelemetryHandler) DeleteTelemetry(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteByID(ctx, id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":      id,
		"message": "Telemetry record deleted successfully",
	})
}

func (h *TelemetryHandler) ExportTelemetry(c *gin.Context) {
	ctx := c.Request.Context()

	format := c.DefaultQuery("format", "csv")

	filter, fields := h.parseFilter(c)

	var contentType string
	switch format {
	case "csv":
		contentType = "text/csv"
	case "excel", "xlsx":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "json":
		contentType = "application/json"
	default:
		fields = append(fields, FieldError{
			Field:   "format",
			Message: "must be one of: csv, xlsx, json",
		})
	}

	if len(fields) > 0 {
		respondValidationError(c, fields)
		return
	}

	path, err := h.service.Export(ctx, format, filter)
	if err != nil {
		if errors.Is(err, service.ErrNoData) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": err.Error(),
			})
			return
		}
		respondError(c, err)
		return
	}

	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", "attachment; filename="+filepath.Base(path))
	c.File(path)
}

// parseFilter reads the satelliteId/status query params shared by the list
// and export endpoints.
func (h *TelemetryHandler) parseFilter(c *gin.Context) (repository.TelemetryFilter, []FieldError) {
	var filter repository.TelemetryFilter
	var fields []FieldError

	satelliteID := c.Query("satelliteId")
	if len(satelliteID) > models.SatelliteIDMaxLen {
		fields = append(fields, FieldError{
			Field:   "satelliteId",
			Message: fmt.Sprintf("must be at most %d characters", models.SatelliteIDMaxLen),
		})
	} else {
		filter.SatelliteID = satelliteID
	}

	if raw := c.Query("status"); raw != "" {
		status := models.TelemetryStatus(raw)
		if !status.IsValid() {
			fields = append(fields, FieldError{
				Field:   "status",
				Message: "must be one of: healthy, critical",
			})
		} else {
			filter.Status = status
		}
	}

	return filter, fields
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		respondValidationError(c, []FieldError{{
			Field:   "id",
			Message: "must be a positive integer",
		}})
		return 0, false
	}
	return uint(id), true
}

func respondValidationError(c *gin.Context, fields []FieldError) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"error":  "validation_error",
		"fields": fields,
	})
}

// respondError maps service/storage errors onto the response taxonomy.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "Telemetry record not found",
		})

	case errors.Is(err, gorm.ErrCheckConstraintViolated),
		errors.Is(err, gorm.ErrDuplicatedKey),
		errors.Is(err, gorm.ErrForeignKeyViolated):
		// Сюда попадает только то, что прошло валидацию — расхождение схем
		log.Printf("Storage constraint rejected a validated payload: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "constraint_violation",
			"message": "record violated a storage constraint",
		})

	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "storage_unavailable",
			"message": "storage did not respond in time, please retry",
		})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal",
			"message": err.Error(),
		})
	}
}
