package purchase

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"spaceshop-server/internal/planet"
	"spaceshop-server/internal/shared/database"

	"github.com/google/uuid"
)

// TxExchange runs an ownership transition and its ledger entry inside
// a single database transaction, so a claimed planet can never be
// missing its purchase record.
type TxExchange struct {
	db      *database.DB
	planets *planet.Repository
	ledger  *Repository
	logger  *slog.Logger
}

func NewTxExchange(db *database.DB, planets *planet.Repository, ledger *Repository, logger *slog.Logger) *TxExchange {
	logger.Debug("Initializing purchase exchange")

	return &TxExchange{
		db:      db,
		planets: planets,
		ledger:  ledger,
		logger:  logger,
	}
}

func (x *TxExchange) rollback(tx *database.Tx, logger *slog.Logger) {
	if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
		logger.Error("Failed to rollback transaction", "error", err)
	}
}

// ExecuteBuy claims the planet for the buyer and records the purchase
// at the planet's listed price. Returns nils without error when the
// claim matched no available planet.
func (x *TxExchange) ExecuteBuy(ctx context.Context, planetID, buyerID uuid.UUID) (*Purchase, *planet.Planet, error) {
	logger := x.logger.With(
		"component", "purchase_exchange",
		"operation", "buy",
		"planet_id", planetID,
		"buyer_id", buyerID,
	)

	tx, err := x.db.BeginTxContext(ctx)
	if err != nil {
		logger.Error("Failed to begin transaction", "error", err)
		return nil, nil, err
	}
	defer x.rollback(tx, logger)

	claimed, err := x.planets.ClaimPlanet(ctx, tx, planetID, buyerID)
	if err != nil {
		return nil, nil, err
	}
	if claimed == nil {
		return nil, nil, nil
	}

	created, err := x.ledger.CreatePurchase(ctx, tx, planetID, buyerID, claimed.Price)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		logger.Error("Failed to commit transaction", "error", err)
		return nil, nil, fmt.Errorf("failed to commit purchase: %w", err)
	}

	return created, claimed, nil
}

// ExecuteGift reassigns ownership to the recipient and records a
// zero-price ledger entry. Returns nils without error when the planet
// does not exist.
func (x *TxExchange) ExecuteGift(ctx context.Context, planetID, recipientID uuid.UUID) (*Purchase, *planet.Planet, error) {
	logger := x.logger.With(
		"component", "purchase_exchange",
		"operation", "gift",
		"planet_id", planetID,
		"recipient_id", recipientID,
	)

	tx, err := x.db.BeginTxContext(ctx)
	if err != nil {
		logger.Error("Failed to begin transaction", "error", err)
		return nil, nil, err
	}
	defer x.rollback(tx, logger)

	updated, err := x.planets.AssignOwner(ctx, tx, planetID, recipientID)
	if err != nil {
		return nil, nil, err
	}
	if updated == nil {
		return nil, nil, nil
	}

	created, err := x.ledger.CreatePurchase(ctx, tx, planetID, recipientID, 0)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		logger.Error("Failed to commit transaction", "error", err)
		return nil, nil, fmt.Errorf("failed to commit gift: %w", err)
	}

	return created, updated, nil
}
