package location

import "time"

const (
	KindBuilding = "building"
	KindFloor    = "floor"
	KindRoom     = "room"
)

// Location is one node of the campus hierarchy. Buildings are roots, rooms
// are leaves; the hierarchy is at most three levels deep.
type Location struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Kind       string    `json:"kind"`
	ParentID   string    `json:"parent_id,omitempty"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	DistanceKm float64   `json:"distance_km,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
