package models

import "time"

// TripType is the commercial category of a trip.
type TripType string

const (
	TripTypeCruise TripType = "cruise"
	TripTypeResort TripType = "resort"
	TripTypeTour   TripType = "tour"
	TripTypeCustom TripType = "custom"
)

// TripStatus is the lifecycle status of a trip.
type TripStatus string

const (
	TripStatusDraft     TripStatus = "draft"
	TripStatusActive    TripStatus = "active"
	TripStatusConfirmed TripStatus = "confirmed"
	TripStatusCompleted TripStatus = "completed"
	TripStatusCancelled TripStatus = "cancelled"
)

// Valid reports whether s is one of the five lifecycle statuses.
func (s TripStatus) Valid() bool {
	switch s {
	case TripStatusDraft, TripStatusActive, TripStatusConfirmed, TripStatusCompleted, TripStatusCancelled:
		return true
	}
	return false
}

// RequiresCompleteTrip reports whether moving into s needs a title and a client.
func (s TripStatus) RequiresCompleteTrip() bool {
	return s == TripStatusActive || s == TripStatusConfirmed
}

// Trip is the parent record every child collection points at through trip_id.
type Trip struct {
	ID          string     `json:"id" bson:"id"`
	Title       string     `json:"title" bson:"title"`
	Destination string     `json:"destination" bson:"destination"`
	Description string     `json:"description" bson:"description"`
	StartDate   time.Time  `json:"start_date" bson:"start_date"`
	EndDate     time.Time  `json:"end_date" bson:"end_date"`
	TripType    TripType   `json:"trip_type" bson:"trip_type"`
	AgentID     string     `json:"agent_id" bson:"agent_id"`
	ClientID    string     `json:"client_id" bson:"client_id"`
	Status      TripStatus `json:"status" bson:"status"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
	UpdatedBy   string     `json:"updated_by,omitempty" bson:"updated_by,omitempty"`
}

// IsComplete reports whether the trip carries the data needed to be activated or confirmed.
func (t *Trip) IsComplete() bool {
	return t.Title != "" && t.ClientID != ""
}
