package purchase

import (
	"time"

	"spaceshop-server/internal/planet"

	"github.com/google/uuid"
)

// Purchase is an immutable ledger entry. Price is a snapshot of the
// planet's price at the moment of purchase; current ownership is read
// from the planet record, never derived from the ledger.
type Purchase struct {
	ID        uuid.UUID `json:"id"`
	PlanetID  uuid.UUID `json:"planet_id"`
	BuyerID   uuid.UUID `json:"buyer_id"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}

// Receipt is the result of a completed buy.
type Receipt struct {
	Purchase *Purchase      `json:"purchase"`
	Planet   *planet.Planet `json:"planet"`
}

// GiftReceipt is the result of a completed gift.
type GiftReceipt struct {
	Purchase    *Purchase      `json:"purchase"`
	Planet      *planet.Planet `json:"planet"`
	RecipientID uuid.UUID      `json:"recipientId"`
}

// Entry is one row of a buyer's purchase history, with the joined
// planet summary.
type Entry struct {
	ID        uuid.UUID      `json:"id"`
	Price     float64        `json:"price"`
	CreatedAt time.Time      `json:"created_at"`
	Planet    planet.Summary `json:"planet"`
}

// CheckoutOutcome classifies what happened to a single item of a
// checkout batch.
type CheckoutOutcome string

const (
	OutcomePurchased   CheckoutOutcome = "purchased"
	OutcomeAlreadySold CheckoutOutcome = "already_sold"
	OutcomeNotFound    CheckoutOutcome = "not_found"
	OutcomeFailed      CheckoutOutcome = "failed"
)

// CheckoutResult reports the outcome for one requested planet, so
// callers can react per item instead of guessing from a success count.
type CheckoutResult struct {
	PlanetID uuid.UUID       `json:"planetId"`
	Outcome  CheckoutOutcome `json:"outcome"`
	Purchase *Purchase       `json:"purchase,omitempty"`
	Planet   *planet.Planet  `json:"planet,omitempty"`
}

// CheckoutSummary aggregates a checkout batch.
type CheckoutSummary struct {
	Results   []CheckoutResult `json:"results"`
	Purchased int              `json:"purchased"`
}

// CertificateItem pairs a ledger entry with its planet for rendering.
type CertificateItem struct {
	Purchase Purchase
	Planet   planet.Planet
}

// ResetReport counts what the development reset touched.
type ResetReport struct {
	PurchasesDeleted int64 `json:"purchases_deleted"`
	PlanetsReleased  int64 `json:"planets_released"`
}
