package models

import "time"

// ChildCollection names a collection whose documents reference a trip
// through a trip_id field.
type ChildCollection string

const (
	CollectionFinancialRecords ChildCollection = "trip_admin"
	CollectionItineraries      ChildCollection = "itineraries"
	CollectionCruiseInfo       ChildCollection = "cruise_info"
	CollectionClientNotes      ChildCollection = "client_notes"
	CollectionClientPhotos     ChildCollection = "client_photos"
)

// TripChildCollections lists the collections swept for orphans, in sweep order.
var TripChildCollections = []ChildCollection{
	CollectionFinancialRecords,
	CollectionItineraries,
	CollectionCruiseInfo,
	CollectionClientNotes,
	CollectionClientPhotos,
}

// ChildRef is the minimal projection of a child document needed for
// referential checks.
type ChildRef struct {
	ID     string
	TripID string
}

// Itinerary is one day of a trip.
type Itinerary struct {
	ID            string    `json:"id" bson:"id"`
	TripID        string    `json:"trip_id" bson:"trip_id"`
	DayNumber     int       `json:"day_number" bson:"day_number"`
	Date          time.Time `json:"date" bson:"date"`
	Title         string    `json:"title" bson:"title"`
	Description   string    `json:"description" bson:"description"`
	ItineraryType string    `json:"itinerary_type" bson:"itinerary_type"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
}

// CruiseInfo holds the ship and cabin data of a cruise trip.
type CruiseInfo struct {
	ID            string    `json:"id" bson:"id"`
	TripID        string    `json:"trip_id" bson:"trip_id"`
	ShipName      string    `json:"ship_name" bson:"ship_name"`
	CabinNumber   string    `json:"cabin_number" bson:"cabin_number"`
	DepartureTime time.Time `json:"departure_time" bson:"departure_time"`
	ReturnTime    time.Time `json:"return_time" bson:"return_time"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
}

// ClientNote is a free-text note a client attaches to a day of a trip.
type ClientNote struct {
	ID        string    `json:"id" bson:"id"`
	TripID    string    `json:"trip_id" bson:"trip_id"`
	ClientID  string    `json:"client_id" bson:"client_id"`
	DayNumber int       `json:"day_number" bson:"day_number"`
	NoteText  string    `json:"note_text" bson:"note_text"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// ClientPhoto references an uploaded photo. The file itself lives in
// external storage.
type ClientPhoto struct {
	ID            string    `json:"id" bson:"id"`
	TripID        string    `json:"trip_id" bson:"trip_id"`
	ClientID      string    `json:"client_id" bson:"client_id"`
	URL           string    `json:"url" bson:"url"`
	Caption       string    `json:"caption" bson:"caption"`
	PhotoCategory string    `json:"photo_category" bson:"photo_category"`
	UploadedAt    time.Time `json:"uploaded_at" bson:"uploaded_at"`
}
