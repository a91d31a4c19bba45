package purchase

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"spaceshop-server/internal/shared/database"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Repository is the Postgres-backed purchase ledger.
type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing purchase repository")

	return &Repository{
		db:     db,
		logger: logger,
	}
}

const purchaseColumns = "id, planet_id, buyer_id, price, created_at"

// CreatePurchase inserts a ledger entry. The executor lets callers
// record the entry inside the same transaction as the ownership change.
func (r *Repository) CreatePurchase(ctx context.Context, exec database.Executor, planetID, buyerID uuid.UUID, price float64) (*Purchase, error) {
	logger := r.logger.With(
		"component", "purchase_repository",
		"operation", "create",
		"planet_id", planetID,
		"buyer_id", buyerID,
	)
	logger.Info("Recording purchase")

	query := `
		INSERT INTO purchases (planet_id, buyer_id, price)
		VALUES ($1, $2, $3)
		RETURNING ` + purchaseColumns

	var p Purchase
	err := exec.QueryRowContext(ctx, query, planetID, buyerID, price).Scan(
		&p.ID,
		&p.PlanetID,
		&p.BuyerID,
		&p.Price,
		&p.CreatedAt,
	)
	if err != nil {
		logger.Error("Failed to record purchase", "error", err)
		return nil, fmt.Errorf("failed to record purchase: %w", err)
	}

	logger.Info("Purchase recorded", "purchase_id", p.ID, "price", p.Price)
	return &p, nil
}

// GetPurchase returns nil when no entry matches.
func (r *Repository) GetPurchase(ctx context.Context, id uuid.UUID) (*Purchase, error) {
	logger := r.logger.With("component", "purchase_repository", "operation", "get_by_id", "purchase_id", id)
	logger.Debug("Getting purchase by ID")

	query := `SELECT ` + purchaseColumns + ` FROM purchases WHERE id = $1`

	var p Purchase
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.PlanetID,
		&p.BuyerID,
		&p.Price,
		&p.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("No purchase found with ID")
			return nil, nil
		}
		logger.Error("Database error getting purchase", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &p, nil
}

// ListPurchasesByBuyer returns a buyer's history, newest first, with
// the joined planet summary.
func (r *Repository) ListPurchasesByBuyer(ctx context.Context, buyerID uuid.UUID) ([]Entry, error) {
	logger := r.logger.With("component", "purchase_repository", "operation", "list_by_buyer", "buyer_id", buyerID)
	logger.Debug("Listing purchases by buyer")

	query := `
		SELECT p.id, p.price, p.created_at, pl.id, pl.name, pl.image
		FROM purchases p
		JOIN planets pl ON pl.id = p.planet_id
		WHERE p.buyer_id = $1
		ORDER BY p.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, buyerID)
	if err != nil {
		logger.Error("Failed to query purchases", "error", err)
		return nil, fmt.Errorf("failed to query purchases: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var entries []Entry
	for rows.Next() {
		var e Entry
		err := rows.Scan(
			&e.ID,
			&e.Price,
			&e.CreatedAt,
			&e.Planet.ID,
			&e.Planet.Name,
			&e.Planet.Image,
		)
		if err != nil {
			logger.Error("Failed to scan purchase row", "error", err)
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating purchases: %w", err)
	}

	logger.Debug("Purchases retrieved", "count", len(entries))
	return entries, nil
}

// GetPurchasesForBuyer loads the given purchase ids, keeping only
// entries belonging to the buyer.
func (r *Repository) GetPurchasesForBuyer(ctx context.Context, ids []uuid.UUID, buyerID uuid.UUID) ([]Purchase, error) {
	logger := r.logger.With("component", "purchase_repository", "operation", "get_for_buyer", "buyer_id", buyerID, "count", len(ids))
	logger.Debug("Loading purchases for buyer")

	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	query := `
		SELECT ` + purchaseColumns + `
		FROM purchases
		WHERE id = ANY($1) AND buyer_id = $2
		ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(idStrings), buyerID)
	if err != nil {
		logger.Error("Failed to query purchases", "error", err)
		return nil, fmt.Errorf("failed to query purchases: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var purchases []Purchase
	for rows.Next() {
		var p Purchase
		err := rows.Scan(&p.ID, &p.PlanetID, &p.BuyerID, &p.Price, &p.CreatedAt)
		if err != nil {
			logger.Error("Failed to scan purchase row", "error", err)
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchases = append(purchases, p)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, fmt.Errorf("error iterating purchases: %w", err)
	}

	return purchases, nil
}

// DeleteAllPurchases purges the ledger. Development escape hatch behind
// the admin reset endpoint.
func (r *Repository) DeleteAllPurchases(ctx context.Context) (int64, error) {
	logger := r.logger.With("component", "purchase_repository", "operation", "delete_all")
	logger.Warn("Purging purchase ledger")

	result, err := r.db.ExecContext(ctx, "DELETE FROM purchases")
	if err != nil {
		logger.Error("Failed to purge purchases", "error", err)
		return 0, fmt.Errorf("failed to purge purchases: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged purchases: %w", err)
	}

	logger.Info("Purchases purged", "count", deleted)
	return deleted, nil
}
