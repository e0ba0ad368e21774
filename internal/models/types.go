// internal/models/types.go
package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes the two work item flavours that share the lifecycle machine.
type Kind string

const (
	KindWorkOrder Kind = "work_order"
	KindExtraJob  Kind = "extra_job"
)

// EnforcesSingleFlight reports whether Start must reject a second concurrent
// in-progress item for the same person. Only extra jobs carry this rule;
// work orders may legitimately run several at once for one person.
func (k Kind) EnforcesSingleFlight() bool { return k == KindExtraJob }

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is one of the four lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusDone, StatusCancelled:
		return true
	}
	return false
}

type Classification string

const (
	ClassReactive  Classification = "reactive"
	ClassProactive Classification = "proactive"
)

type WorkOrderType string

const (
	TypePreventive WorkOrderType = "preventive"
	TypeCorrective WorkOrderType = "corrective"
	TypeInspection WorkOrderType = "inspection"
	TypeOther      WorkOrderType = "other"
)

// WorkItem is the shared shape behind work orders and extra jobs.
// Classification, Type and AssetID are only meaningful for the work order kind.
type WorkItem struct {
	ID             uuid.UUID       `json:"id"`
	Kind           Kind            `json:"kind"`
	Title          string          `json:"title"`
	Description    string          `json:"description,omitempty"`
	Status         Status          `json:"status"`
	Classification *Classification `json:"classification,omitempty"`
	Type           WorkOrderType   `json:"type,omitempty"`
	AssignedPerson *uuid.UUID      `json:"assigned_person_id,omitempty"`
	AssetID        *uuid.UUID      `json:"asset_id,omitempty"`

	StartAt         *time.Time `json:"start_at,omitempty"`
	StopAt          *time.Time `json:"stop_at,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`

	Defect   string `json:"defect,omitempty"`
	Cause    string `json:"cause,omitempty"`
	Solution string `json:"solution,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DurationBetween rounds a start/stop pair to whole minutes.
func DurationBetween(start, stop time.Time) int {
	return int(math.Round(stop.Sub(start).Minutes()))
}

type AssetStatus string

const (
	AssetOperational   AssetStatus = "operational"
	AssetInMaintenance AssetStatus = "in_maintenance"
	AssetDown          AssetStatus = "down"
)

type Asset struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Status    AssetStatus `json:"status"`
	Timezone  string      `json:"timezone,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

type Person struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Timezone  string    `json:"timezone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LaborLogEntry is a granular per-person labor booking against a work order.
// When present it overrides duration-based attribution for that person.
type LaborLogEntry struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	PersonID  uuid.UUID `json:"person_id"`
	Minutes   float64   `json:"minutes"`
	CreatedAt time.Time `json:"created_at"`
}

// Category classifies a reconstructed segment for reporting.
type Category string

const (
	CategoryPM        Category = "pm"
	CategoryProactive Category = "proactive"
	CategoryReactive  Category = "reactive"
	CategoryExtra     Category = "extra"
	CategoryOther     Category = "other"
)

// Segment is a derived, never persisted slice of worked time.
type Segment struct {
	Category Category  `json:"category"`
	StartUtc time.Time `json:"start_utc"`
	StopUtc  time.Time `json:"stop_utc"`
	Minutes  float64   `json:"minutes"`
}
