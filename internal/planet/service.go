package planet

import (
	"context"
	"log/slog"
	"strings"

	"spaceshop-server/internal/shared/errors"

	"github.com/google/uuid"
)

// Store is the persistence surface the planet service needs. The
// *Repository satisfies it; tests use in-memory fakes.
type Store interface {
	GetAllPlanets(ctx context.Context) ([]Planet, error)
	GetPlanetByID(ctx context.Context, id uuid.UUID) (*Planet, error)
	FindPlanetByName(ctx context.Context, name string) (*Planet, error)
	CreatePlanet(ctx context.Context, p *Planet) (*Planet, error)
	UpdatePlanet(ctx context.Context, id uuid.UUID, p *Planet) (*Planet, error)
	DeletePlanet(ctx context.Context, id uuid.UUID) (*Planet, error)
	SearchPlanets(ctx context.Context, search string) ([]Planet, error)
}

type Service struct {
	store  Store
	cache  *Cache
	logger *slog.Logger
}

func NewService(store Store, cache *Cache, logger *slog.Logger) *Service {
	logger.Debug("Initializing planet service")

	return &Service{
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

// GetAll serves the catalog, read-through cached.
func (s *Service) GetAll(ctx context.Context) ([]Planet, error) {
	if planets, ok := s.cache.GetCatalog(ctx); ok {
		return planets, nil
	}

	planets, err := s.store.GetAllPlanets(ctx)
	if err != nil {
		return nil, errors.WrapExternal("failed to load planet catalog", err)
	}

	s.cache.SetCatalog(ctx, planets)
	return planets, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Planet, error) {
	planet, err := s.store.GetPlanetByID(ctx, id)
	if err != nil {
		return nil, errors.WrapExternal("failed to load planet", err)
	}
	if planet == nil {
		return nil, errors.NotFoundf("planet %s not found", id)
	}
	return planet, nil
}

func (s *Service) Search(ctx context.Context, query string) ([]Planet, error) {
	planets, err := s.store.SearchPlanets(ctx, query)
	if err != nil {
		return nil, errors.WrapExternal("failed to search planets", err)
	}
	return planets, nil
}

func (s *Service) Create(ctx context.Context, p *Planet) (*Planet, error) {
	logger := s.logger.With("component", "planet_service", "operation", "create", "name", p.Name)

	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Type) == "" {
		return nil, errors.Validation("name and type are required")
	}
	if p.Price < 0 {
		return nil, errors.Validation("price must not be negative")
	}

	existing, err := s.store.FindPlanetByName(ctx, p.Name)
	if err != nil {
		return nil, errors.WrapExternal("failed to check planet name", err)
	}
	if existing != nil {
		return nil, errors.Conflictf("a planet named %q already exists", p.Name)
	}

	created, err := s.store.CreatePlanet(ctx, p)
	if err != nil {
		return nil, errors.WrapExternal("failed to create planet", err)
	}

	s.cache.Invalidate(ctx)
	logger.Info("Planet created", "planet_id", created.ID)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, p *Planet) (*Planet, error) {
	logger := s.logger.With("component", "planet_service", "operation", "update", "planet_id", id)

	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Type) == "" {
		return nil, errors.Validation("name and type are required")
	}
	if p.Price < 0 {
		return nil, errors.Validation("price must not be negative")
	}

	existing, err := s.store.FindPlanetByName(ctx, p.Name)
	if err != nil {
		return nil, errors.WrapExternal("failed to check planet name", err)
	}
	if existing != nil && existing.ID != id {
		return nil, errors.Conflictf("a planet named %q already exists", p.Name)
	}

	updated, err := s.store.UpdatePlanet(ctx, id, p)
	if err != nil {
		return nil, errors.WrapExternal("failed to update planet", err)
	}
	if updated == nil {
		return nil, errors.NotFoundf("planet %s not found", id)
	}

	s.cache.Invalidate(ctx)
	logger.Info("Planet updated")
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) (*Planet, error) {
	logger := s.logger.With("component", "planet_service", "operation", "delete", "planet_id", id)

	deleted, err := s.store.DeletePlanet(ctx, id)
	if err != nil {
		return nil, errors.WrapExternal("failed to delete planet", err)
	}
	if deleted == nil {
		return nil, errors.NotFoundf("planet %s not found", id)
	}

	s.cache.Invalidate(ctx)
	logger.Info("Planet deleted", "name", deleted.Name)
	return deleted, nil
}

// GetStats aggregates the catalog overview from the (cached) catalog.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	planets, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Types: make(map[string]int),
	}

	var sizeSum float64
	for _, p := range planets {
		stats.Types[p.Type]++
		stats.TotalMoons += p.Moons
		sizeSum += p.Size
	}

	stats.Total = len(planets)
	if stats.Total > 0 {
		stats.AverageSize = sizeSum / float64(stats.Total)
	}

	return stats, nil
}
