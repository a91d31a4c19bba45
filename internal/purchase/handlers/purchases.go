package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"spaceshop-server/internal/certificate"
	"spaceshop-server/internal/middleware"
	"spaceshop-server/internal/planet"
	"spaceshop-server/internal/purchase"
	"spaceshop-server/internal/shared/errors"
	"spaceshop-server/internal/shared/response"

	"github.com/google/uuid"
)

type PurchaseHandler struct {
	service      *purchase.Service
	certificates *certificate.Service
}

func NewPurchaseHandler(service *purchase.Service, certificates *certificate.Service) *PurchaseHandler {
	return &PurchaseHandler{
		service:      service,
		certificates: certificates,
	}
}

type buyRequest struct {
	PlanetID string `json:"planetId"`
}

type giftRequest struct {
	PlanetID string `json:"planetId"`
	Email    string `json:"email"`
}

type checkoutRequest struct {
	PlanetIDs []string `json:"planetIds"`
}

type buyResponse struct {
	Purchase       *purchase.Purchase `json:"purchase"`
	Planet         *planet.Planet     `json:"planet"`
	CertificateURL string             `json:"certificateUrl,omitempty"`
}

type checkoutResponse struct {
	*purchase.CheckoutSummary
	// CertificateURL points at the batch certificate covering every
	// purchased item.
	CertificateURL string `json:"certificateUrl,omitempty"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.WrapValidation("invalid JSON in request body", err)
	}
	return nil
}

func parseUUIDField(value, field string) (uuid.UUID, error) {
	if value == "" {
		return uuid.Nil, errors.Validationf("%s is required", field)
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, errors.Validationf("invalid %s format", field)
	}
	return id, nil
}

// Buy handles POST /api/purchases.
func (h *PurchaseHandler) Buy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "buy_planet")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	user := middleware.GetUserFromContext(r)
	if user == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return
	}

	var body buyRequest
	if err := decodeBody(w, r, &body); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	planetID, err := parseUUIDField(body.PlanetID, "planetId")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	receipt, err := h.service.Buy(ctx, planetID, user.ID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	resp := buyResponse{
		Purchase: receipt.Purchase,
		Planet:   receipt.Planet,
	}
	if h.certificates.Enabled() {
		resp.CertificateURL = fmt.Sprintf("/api/purchases/certificate/%s", receipt.Purchase.ID)
	}

	response.Success(w, http.StatusCreated, resp)
}

// Gift handles POST /api/purchases/gift.
func (h *PurchaseHandler) Gift(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "gift_planet")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	user := middleware.GetUserFromContext(r)
	if user == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return
	}

	var body giftRequest
	if err := decodeBody(w, r, &body); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	planetID, err := parseUUIDField(body.PlanetID, "planetId")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	email := strings.TrimSpace(body.Email)
	if email == "" || !strings.Contains(email, "@") {
		response.Error(w, r, logger, errors.Validation("a valid recipient email is required"))
		return
	}

	receipt, err := h.service.Gift(ctx, planetID, user, email)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, receipt)
}

// Checkout handles POST /api/purchases/checkout.
func (h *PurchaseHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "checkout")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	user := middleware.GetUserFromContext(r)
	if user == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return
	}

	var body checkoutRequest
	if err := decodeBody(w, r, &body); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	planetIDs := make([]uuid.UUID, 0, len(body.PlanetIDs))
	for _, raw := range body.PlanetIDs {
		id, err := parseUUIDField(raw, "planetIds entry")
		if err != nil {
			response.Error(w, r, logger, err)
			return
		}
		planetIDs = append(planetIDs, id)
	}

	summary, err := h.service.Checkout(ctx, planetIDs, user.ID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	resp := checkoutResponse{CheckoutSummary: summary}
	if h.certificates.Enabled() {
		ids := make([]string, 0, summary.Purchased)
		for _, result := range summary.Results {
			if result.Outcome == purchase.OutcomePurchased {
				ids = append(ids, result.Purchase.ID.String())
			}
		}
		resp.CertificateURL = "/api/purchases/certificate?ids=" + strings.Join(ids, ",")
	}

	response.Success(w, http.StatusOK, resp)
}

// ListMine handles GET /api/purchases/my.
func (h *PurchaseHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "list_my_purchases")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	user := middleware.GetUserFromContext(r)
	if user == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return
	}

	entries, err := h.service.ListMine(ctx, user.ID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	if entries == nil {
		entries = []purchase.Entry{}
	}

	response.Success(w, http.StatusOK, entries)
}

// Certificate handles GET /api/purchases/certificate/{purchaseId},
// streaming the rendered PDF.
func (h *PurchaseHandler) Certificate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "purchase_certificate")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	user := middleware.GetUserFromContext(r)
	if user == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return
	}

	purchaseID, err := parseUUIDField(r.PathValue("purchaseId"), "purchaseId")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	item, err := h.service.GetCertificateItem(ctx, purchaseID, user.ID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	// Render into memory first so errors can still produce a JSON
	// response instead of a truncated PDF.
	var buf bytes.Buffer
	if err := h.certificates.RenderPurchase(&buf, *item); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	writePDF(w, &buf, fmt.Sprintf("certificate-%s.pdf", item.Planet.Name))
}

// CertificateBatch handles GET /api/purchases/certificate?ids=a,b,c,
// rendering one document covering several purchases.
func (h *PurchaseHandler) CertificateBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "purchase_certificate_batch")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	user := middleware.GetUserFromContext(r)
	if user == nil {
		response.Error(w, r, logger, errors.Unauthorized("authentication required"))
		return
	}

	raw := r.URL.Query().Get("ids")
	if raw == "" {
		response.Error(w, r, logger, errors.Validation("ids parameter is required"))
		return
	}

	var ids []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		id, err := parseUUIDField(strings.TrimSpace(part), "ids entry")
		if err != nil {
			response.Error(w, r, logger, err)
			return
		}
		ids = append(ids, id)
	}

	items, err := h.service.GetCertificateItems(ctx, ids, user.ID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	var buf bytes.Buffer
	if err := h.certificates.RenderBatch(&buf, items); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	writePDF(w, &buf, "certificates.pdf")
}

// Reset handles POST /api/admin/reset. Admin gating happens in
// middleware.
func (h *PurchaseHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "admin_reset")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	report, err := h.service.Reset(ctx)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, report)
}

func writePDF(w http.ResponseWriter, buf *bytes.Buffer, filename string) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
