package planet

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"spaceshop-server/internal/shared/database"

	"github.com/google/uuid"
)

type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing planet repository")

	return &Repository{
		db:     db,
		logger: logger,
	}
}

const planetColumns = `id, name, type, distance, diameter, description,
	position_x, position_y, position_z, color, size, image,
	discovery_date, moons, orbital_period, temperature, composition,
	price, is_available, owner_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlanet(row rowScanner) (*Planet, error) {
	var p Planet
	var owner uuid.NullUUID
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Type,
		&p.Distance,
		&p.Diameter,
		&p.Description,
		&p.Position.X,
		&p.Position.Y,
		&p.Position.Z,
		&p.Color,
		&p.Size,
		&p.Image,
		&p.DiscoveryDate,
		&p.Moons,
		&p.OrbitalPeriod,
		&p.Temperature,
		&p.Composition,
		&p.Price,
		&p.IsAvailable,
		&owner,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if owner.Valid {
		p.OwnerID = &owner.UUID
	}
	return &p, nil
}

func (r *Repository) collectPlanets(rows *sql.Rows) ([]Planet, error) {
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Error("Failed to close rows", "error", err)
		}
	}()

	var planets []Planet
	for rows.Next() {
		planet, err := scanPlanet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan planet: %w", err)
		}
		planets = append(planets, *planet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating planets: %w", err)
	}

	return planets, nil
}

func (r *Repository) GetAllPlanets(ctx context.Context) ([]Planet, error) {
	logger := r.logger.With("component", "planet_repository", "operation", "get_all")
	logger.Debug("Retrieving planet catalog")

	query := `SELECT ` + planetColumns + ` FROM planets ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logger.Error("Failed to query planets", "error", err)
		return nil, fmt.Errorf("failed to query planets: %w", err)
	}

	planets, err := r.collectPlanets(rows)
	if err != nil {
		logger.Error("Failed to collect planets", "error", err)
		return nil, err
	}

	logger.Debug("Planets retrieved", "count", len(planets))
	return planets, nil
}

// GetPlanetByID returns nil when no planet matches.
func (r *Repository) GetPlanetByID(ctx context.Context, id uuid.UUID) (*Planet, error) {
	logger := r.logger.With("component", "planet_repository", "operation", "get_by_id", "planet_id", id)
	logger.Debug("Getting planet by ID")

	query := `SELECT ` + planetColumns + ` FROM planets WHERE id = $1`

	planet, err := scanPlanet(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("No planet found with ID")
			return nil, nil
		}
		logger.Error("Database error getting planet by ID", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return planet, nil
}

// FindPlanetByName matches case-insensitively; returns nil when no
// planet matches.
func (r *Repository) FindPlanetByName(ctx context.Context, name string) (*Planet, error) {
	logger := r.logger.With("component", "planet_repository", "operation", "find_by_name", "name", name)
	logger.Debug("Finding planet by name")

	query := `SELECT ` + planetColumns + ` FROM planets WHERE LOWER(name) = LOWER($1)`

	planet, err := scanPlanet(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("Database error finding planet by name", "error", err)
		return nil, fmt.Errorf("database error: %w", err)
	}

	return planet, nil
}

func (r *Repository) CreatePlanet(ctx context.Context, p *Planet) (*Planet, error) {
	logger := r.logger.With("component", "planet_repository", "operation", "create", "name", p.Name)
	logger.Info("Creating planet")

	query := `
		INSERT INTO planets (name, type, distance, diameter, description,
			position_x, position_y, position_z, color, size, image,
			discovery_date, moons, orbital_period, temperature, composition,
			price, is_available, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, TRUE, NULL)
		RETURNING ` + planetColumns

	created, err := scanPlanet(r.db.QueryRowContext(ctx, query,
		p.Name, p.Type, p.Distance, p.Diameter, p.Description,
		p.Position.X, p.Position.Y, p.Position.Z, p.Color, p.Size, p.Image,
		p.DiscoveryDate, p.Moons, p.OrbitalPeriod, p.Temperature, p.Composition,
		p.Price,
	))
	if err != nil {
		logger.Error("Failed to create planet", "error", err)
		return nil, fmt.Errorf("failed to create planet: %w", err)
	}

	logger.Info("Planet created successfully", "planet_id", created.ID)
	return created, nil
}

// UpdatePlanet rewrites the descriptive attributes and price. Ownership
// transitions go through ClaimPlanet/AssignOwner only.
func (r *Repository) UpdatePlanet(ctx context.Context, id uuid.UUID, p *Planet) (*Planet, error) {
	logger := r.logger.With("component", "planet_repository", "operation", "update", "planet_id", id)
	logger.Info("Updating planet")

	query := `
		UPDATE planets
		SET name = $2, type = $3, distance = $4, diameter = $5, description = $6,
			position_x = $7, position_y = $8, position_z = $9, color = $10,
			size = $11, image = $12, discovery_date = $13, moons = $14,
			orbital_period = $15, temperature = $16, composition = $17,
			price = $18, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + planetColumns

	updated, err := scanPlanet(r.db.QueryRowContext(ctx, query, id,
		p.Name, p.Type, p.Distance, p.Diameter, p.Description,
		p.Position.X, p.Position.Y, p.Position.Z, p.Color, p.Size, p.Image,
		p.DiscoveryDate, p.Moons, p.OrbitalPeriod, p.Temperature, p.Composition,
		p.Price,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("Failed to update planet", "error", err)
		return nil, fmt.Errorf("failed to update planet: %w", err)
	}

	return updated, nil
}

// DeletePlanet returns the deleted record, or nil when no planet
// matches.
func (r *Repository) DeletePlanet(ctx context.Context, id uuid.UUID) (*Planet, error) {
	logger := r.logger.With("component", "planet_repository", "operation", "delete", "planet_id", id)
	logger.Info("Deleting planet")

	query := `DELETE FROM planets WHERE id = $1 RETURNING ` + planetColumns

	deleted, err := scanPlanet(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("Failed to delete planet", "error", err)
		return nil, fmt.Errorf("failed to delete planet: %w", err)
	}

	logger.Info("Planet deleted", "name", deleted.Name)
	return deleted, nil
}

func (r *Repository) SearchPlanets(ctx context.Context, search string) ([]Planet, error) {
	logger := r.logger.With("component", "planet_repository", "operation", "search", "search", search)
	logger.Debug("Searching planets")

	query := `
		SELECT ` + planetColumns + `
		FROM planets
		WHERE name ILIKE $1 OR type ILIKE $1
		ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, "%"+search+"%")
	if err != nil {
		logger.Error("Failed to search planets", "error", err)
		return nil, fmt.Errorf("failed to search planets: %w", err)
	}

	planets, err := r.collectPlanets(rows)
	if err != nil {
		logger.Error("Failed to collect planets", "error", err)
		return nil, err
	}

	logger.Debug("Planets found", "count", len(planets))
	return planets, nil
}

// ClaimPlanet atomically takes an available planet off the market for
// the given owner. The WHERE clause is the compare-and-swap: of any
// number of concurrent claims for the same planet, exactly one update
// matches a row. Returns nil when nothing was claimed, either because
// the planet does not exist or because it is no longer available.
// The executor lets callers run the claim inside their own transaction.
func (r *Repository) ClaimPlanet(ctx context.Context, exec database.Executor, planetID, ownerID uuid.UUID) (*Planet, error) {
	logger := r.logger.With("component", "planet_repository", "operation", "claim", "planet_id", planetID, "owner_id", ownerID)
	logger.Debug("Claiming planet")

	query := `
		UPDATE planets
		SET is_available = FALSE, owner_id = $2, updated_at = NOW()
		WHERE id = $1 AND is_available = TRUE
		RETURNING ` + planetColumns

	claimed, err := scanPlanet(exec.QueryRowContext(ctx, query, planetID, ownerID))
	if err != nil {
		if err == sql.ErrNoRows {
			logger.Debug("Planet not claimed, missing or already owned")
			return nil, nil
		}
		logger.Error("Failed to claim planet", "error", err)
		return nil, fmt.Errorf("failed to claim planet: %w", err)
	}

	logger.Info("Planet claimed", "name", claimed.Name)
	return claimed, nil
}

// AssignOwner reassigns ownership regardless of availability. This is
// the gift path; the owner/admin check happens upstream. Returns nil
// when no planet matches. The executor lets callers run the update
// inside their own transaction.
func (r *Repository) AssignOwner(ctx context.Context, exec database.Executor, planetID, ownerID uuid.UUID) (*Planet, error) {
	logger := r.logger.With("component", "planet_repository", "operation", "assign_owner", "planet_id", planetID, "owner_id", ownerID)
	logger.Debug("Assigning planet owner")

	query := `
		UPDATE planets
		SET is_available = FALSE, owner_id = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + planetColumns

	updated, err := scanPlanet(exec.QueryRowContext(ctx, query, planetID, ownerID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("Failed to assign owner", "error", err)
		return nil, fmt.Errorf("failed to assign owner: %w", err)
	}

	logger.Info("Planet owner assigned", "name", updated.Name)
	return updated, nil
}

// ReleaseAll puts every planet back on the market. Development escape
// hatch behind the admin reset endpoint.
func (r *Repository) ReleaseAll(ctx context.Context) (int64, error) {
	logger := r.logger.With("component", "planet_repository", "operation", "release_all")
	logger.Warn("Releasing all planets back to the market")

	result, err := r.db.ExecContext(ctx, `
		UPDATE planets
		SET is_available = TRUE, owner_id = NULL, updated_at = NOW()
		WHERE owner_id IS NOT NULL`)
	if err != nil {
		logger.Error("Failed to release planets", "error", err)
		return 0, fmt.Errorf("failed to release planets: %w", err)
	}

	released, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count released planets: %w", err)
	}

	logger.Info("Planets released", "count", released)
	return released, nil
}
