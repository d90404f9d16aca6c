package models

import (
	"time"
)

// Constraints shared by the input validation path and the storage schema.
const (
	SatelliteIDMaxLen = 64
)

// TelemetryStatus is a closed two-value classification of satellite health.
type TelemetryStatus string

const (
	StatusHealthy  TelemetryStatus = "healthy"
	StatusCritical TelemetryStatus = "critical"
)

func (s TelemetryStatus) IsValid() bool {
	return s == StatusHealthy || s == StatusCritical
}

// Telemetry is one measurement snapshot of a satellite's state.
// Timestamp is when the telemetry was measured; Created/Updated are assigned
// by the database. The CHECK constraints duplicate the input validation on
// the write path, so a payload that slips past validation is still rejected.
type Telemetry struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	SatelliteID string          `gorm:"column:satellite_id;size:64;not null;check:chk_telemetry_satellite_id_length,length(satellite_id) <= 64" json:"satelliteId"`
	Timestamp   time.Time       `gorm:"not null" json:"timestamp"`
	Altitude    float64         `gorm:"not null;check:chk_telemetry_altitude_positive,altitude > 0" json:"altitude"`
	Velocity    float64         `gorm:"not null;check:chk_telemetry_velocity_positive,velocity > 0" json:"velocity"`
	Status      TelemetryStatus `gorm:"type:varchar(16);not null;check:chk_telemetry_status,status IN ('healthy','critical')" json:"status"`
	Created     time.Time       `gorm:"autoCreateTime" json:"created"`
	// Updated refreshes on mutation; no update endpoint exists yet, so it
	// stays equal to Created until one is added.
	Updated time.Time `gorm:"autoUpdateTime" json:"updated"`
}

func (Telemetry) TableName() string {
	return "telemetry"
}
