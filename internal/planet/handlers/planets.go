package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"spaceshop-server/internal/planet"
	"spaceshop-server/internal/shared/errors"
	"spaceshop-server/internal/shared/response"

	"github.com/google/uuid"
)

type PlanetHandler struct {
	service *planet.Service
	// purchaseOnly freezes the catalog shape: reads and purchases stay
	// open, create/update/delete are rejected.
	purchaseOnly bool
}

func NewPlanetHandler(service *planet.Service, purchaseOnly bool) *PlanetHandler {
	return &PlanetHandler{
		service:      service,
		purchaseOnly: purchaseOnly,
	}
}

func parsePlanetID(r *http.Request) (uuid.UUID, error) {
	idStr := r.PathValue("id")
	if idStr == "" {
		return uuid.Nil, errors.Validation("planet ID is required")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, errors.WrapValidation("invalid planet ID format", err)
	}
	return id, nil
}

func (h *PlanetHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "list_planets")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var planets []planet.Planet
	var err error

	if search := r.URL.Query().Get("search"); search != "" {
		planets, err = h.service.Search(ctx, search)
	} else {
		planets, err = h.service.GetAll(ctx)
	}
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	if planets == nil {
		planets = []planet.Planet{}
	}

	response.Success(w, http.StatusOK, planets)
}

func (h *PlanetHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "get_planet")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	id, err := parsePlanetID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	found, err := h.service.GetByID(ctx, id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, found)
}

func (h *PlanetHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "create_planet")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	if h.purchaseOnly {
		response.Error(w, r, logger, errors.Disabled("planet creation is disabled in purchase-only mode"))
		return
	}

	var body planet.Planet
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
		return
	}

	created, err := h.service.Create(ctx, &body)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, created)
}

func (h *PlanetHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "update_planet")

	if r.Method != http.MethodPut {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	if h.purchaseOnly {
		response.Error(w, r, logger, errors.Disabled("planet updates are disabled in purchase-only mode"))
		return
	}

	id, err := parsePlanetID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	var body planet.Planet
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid JSON in request body", err))
		return
	}

	updated, err := h.service.Update(ctx, id, &body)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, updated)
}

func (h *PlanetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "delete_planet")

	if r.Method != http.MethodDelete {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	if h.purchaseOnly {
		response.Error(w, r, logger, errors.Disabled("planet deletion is disabled in purchase-only mode"))
		return
	}

	id, err := parsePlanetID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	deleted, err := h.service.Delete(ctx, id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, deleted)
}

func (h *PlanetHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "planet_stats")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	stats, err := h.service.GetStats(ctx)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, stats)
}
