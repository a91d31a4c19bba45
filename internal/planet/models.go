package planet

import (
	"time"

	"github.com/google/uuid"
)

// Position locates a planet in the storefront's 3D scene.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Planet is a catalog record. The commerce fields (Price, IsAvailable,
// OwnerID) are the only ones the purchase workflows ever mutate.
// IsAvailable is false exactly when OwnerID is set; the database
// enforces this.
type Planet struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Type          string     `json:"type"`
	Distance      string     `json:"distance"`
	Diameter      string     `json:"diameter"`
	Description   string     `json:"description"`
	Position      Position   `json:"position"`
	Color         string     `json:"color"`
	Size          float64    `json:"size"`
	Image         string     `json:"image"`
	DiscoveryDate *string    `json:"discoveryDate"`
	Moons         int        `json:"moons"`
	OrbitalPeriod *string    `json:"orbitalPeriod"`
	Temperature   *string    `json:"temperature"`
	Composition   *string    `json:"composition"`
	Price         float64    `json:"price"`
	IsAvailable   bool       `json:"isAvailable"`
	OwnerID       *uuid.UUID `json:"ownerId"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Summary is the joined shape embedded in purchase listings.
type Summary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Image string    `json:"image"`
}

// Stats is the catalog overview.
type Stats struct {
	Total       int            `json:"total"`
	Types       map[string]int `json:"types"`
	TotalMoons  int            `json:"totalMoons"`
	AverageSize float64        `json:"averageSize"`
}
