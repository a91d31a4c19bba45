package purchase

import (
	"context"
	"log/slog"
	"strings"

	"spaceshop-server/internal/auth"
	"spaceshop-server/internal/planet"
	"spaceshop-server/internal/shared/errors"

	"github.com/google/uuid"
)

// PlanetStore is the slice of the planet record store the workflows
// read from. Ownership transitions go through the Exchange, never
// through this interface.
type PlanetStore interface {
	GetPlanetByID(ctx context.Context, id uuid.UUID) (*planet.Planet, error)
	ReleaseAll(ctx context.Context) (int64, error)
}

// Ledger is the purchase history store. Entries are written by the
// Exchange together with the ownership change; this interface only
// reads and purges.
type Ledger interface {
	GetPurchase(ctx context.Context, id uuid.UUID) (*Purchase, error)
	ListPurchasesByBuyer(ctx context.Context, buyerID uuid.UUID) ([]Entry, error)
	GetPurchasesForBuyer(ctx context.Context, ids []uuid.UUID, buyerID uuid.UUID) ([]Purchase, error)
	DeleteAllPurchases(ctx context.Context) (int64, error)
}

// Exchange executes an ownership transition and its ledger entry as
// one atomic unit. ExecuteBuy claims only an available planet and
// returns nils without error when a concurrent buyer got there first;
// ExecuteGift reassigns ownership unconditionally and returns nils
// when the planet does not exist.
type Exchange interface {
	ExecuteBuy(ctx context.Context, planetID, buyerID uuid.UUID) (*Purchase, *planet.Planet, error)
	ExecuteGift(ctx context.Context, planetID, recipientID uuid.UUID) (*Purchase, *planet.Planet, error)
}

// UserDirectory resolves and provisions gift recipients. The directory
// operations need an elevated credential; GiftAvailable reports whether
// it is configured, and the whole gift workflow is refused without it.
type UserDirectory interface {
	GiftAvailable() bool
	FindUserByEmail(ctx context.Context, email string) (*auth.User, error)
	InviteUserByEmail(ctx context.Context, email string) (*auth.User, error)
}

// CatalogInvalidator drops any cached catalog view after ownership
// changes.
type CatalogInvalidator interface {
	Invalidate(ctx context.Context)
}

type Service struct {
	planets    PlanetStore
	ledger     Ledger
	exchange   Exchange
	users      UserDirectory
	catalog    CatalogInvalidator
	adminEmail string
	logger     *slog.Logger
}

func NewService(planets PlanetStore, ledger Ledger, exchange Exchange, users UserDirectory, catalog CatalogInvalidator, adminEmail string, logger *slog.Logger) *Service {
	logger.Debug("Initializing purchase service")

	return &Service{
		planets:    planets,
		ledger:     ledger,
		exchange:   exchange,
		users:      users,
		catalog:    catalog,
		adminEmail: adminEmail,
		logger:     logger,
	}
}

// Buy transitions an available planet to the buyer and records the
// ledger entry in the same transaction. The claim is conditional on
// availability, so of two concurrent buyers exactly one succeeds; the
// loser gets a conflict.
func (s *Service) Buy(ctx context.Context, planetID, buyerID uuid.UUID) (*Receipt, error) {
	logger := s.logger.With(
		"component", "purchase_service",
		"operation", "buy",
		"planet_id", planetID,
		"buyer_id", buyerID,
	)

	p, err := s.planets.GetPlanetByID(ctx, planetID)
	if err != nil {
		return nil, errors.WrapExternal("failed to load planet", err)
	}
	if p == nil {
		return nil, errors.NotFoundf("planet %s not found", planetID)
	}
	if !p.IsAvailable {
		return nil, errors.Conflictf("planet %q is already sold", p.Name)
	}

	created, claimed, err := s.exchange.ExecuteBuy(ctx, planetID, buyerID)
	if err != nil {
		return nil, errors.WrapExternal("failed to complete purchase", err)
	}
	if claimed == nil {
		// A concurrent buyer won the claim between our read and the swap.
		return nil, errors.Conflictf("planet %q is already sold", p.Name)
	}

	s.catalog.Invalidate(ctx)
	logger.Info("Planet purchased", "purchase_id", created.ID, "price", created.Price)

	return &Receipt{Purchase: created, Planet: claimed}, nil
}

// Gift transfers an owned planet to the account behind recipientEmail,
// provisioning an invited account if none exists. The directory
// credential is a hard dependency of the whole workflow, not just of
// provisioning; without it the gift is refused before anything is
// looked up. Only the current owner or the configured administrator
// may gift; availability checks do not apply.
func (s *Service) Gift(ctx context.Context, planetID uuid.UUID, from *auth.User, recipientEmail string) (*GiftReceipt, error) {
	logger := s.logger.With(
		"component", "purchase_service",
		"operation", "gift",
		"planet_id", planetID,
		"from_user_id", from.ID,
	)

	if !s.users.GiftAvailable() {
		return nil, errors.Unavailable("gifting requires the admin service credential")
	}

	p, err := s.planets.GetPlanetByID(ctx, planetID)
	if err != nil {
		return nil, errors.WrapExternal("failed to load planet", err)
	}
	if p == nil {
		return nil, errors.NotFoundf("planet %s not found", planetID)
	}

	isOwner := p.OwnerID != nil && *p.OwnerID == from.ID
	isAdmin := s.adminEmail != "" && strings.EqualFold(from.Email, s.adminEmail)
	if !isOwner && !isAdmin {
		return nil, errors.Forbidden("only the current owner can gift this planet")
	}

	recipient, err := s.users.FindUserByEmail(ctx, recipientEmail)
	if err != nil {
		return nil, err
	}
	if recipient == nil {
		recipient, err = s.users.InviteUserByEmail(ctx, recipientEmail)
		if err != nil {
			return nil, err
		}
		logger.Info("Recipient account provisioned", "recipient_id", recipient.ID)
	}

	created, updated, err := s.exchange.ExecuteGift(ctx, planetID, recipient.ID)
	if err != nil {
		return nil, errors.WrapExternal("failed to transfer planet", err)
	}
	if updated == nil {
		return nil, errors.NotFoundf("planet %s not found", planetID)
	}

	s.catalog.Invalidate(ctx)
	logger.Info("Planet gifted", "purchase_id", created.ID, "recipient_id", recipient.ID)

	return &GiftReceipt{Purchase: created, Planet: updated, RecipientID: recipient.ID}, nil
}

// Checkout applies Buy to each planet independently and reports a
// per-item outcome. It fails only when not a single item succeeds.
func (s *Service) Checkout(ctx context.Context, planetIDs []uuid.UUID, buyerID uuid.UUID) (*CheckoutSummary, error) {
	logger := s.logger.With(
		"component", "purchase_service",
		"operation", "checkout",
		"buyer_id", buyerID,
		"count", len(planetIDs),
	)

	if len(planetIDs) == 0 {
		return nil, errors.Validation("planetIds must be a non-empty list")
	}

	summary := &CheckoutSummary{
		Results: make([]CheckoutResult, 0, len(planetIDs)),
	}

	for _, planetID := range planetIDs {
		receipt, err := s.Buy(ctx, planetID, buyerID)
		if err != nil {
			result := CheckoutResult{PlanetID: planetID}
			switch errors.GetType(err) {
			case errors.ErrorTypeNotFound:
				result.Outcome = OutcomeNotFound
			case errors.ErrorTypeConflict:
				result.Outcome = OutcomeAlreadySold
			default:
				logger.Error("Checkout item failed", "planet_id", planetID, "error", err)
				result.Outcome = OutcomeFailed
			}
			summary.Results = append(summary.Results, result)
			continue
		}

		summary.Results = append(summary.Results, CheckoutResult{
			PlanetID: planetID,
			Outcome:  OutcomePurchased,
			Purchase: receipt.Purchase,
			Planet:   receipt.Planet,
		})
		summary.Purchased++
	}

	if summary.Purchased == 0 {
		return nil, errors.Conflict("no purchases completed")
	}

	logger.Info("Checkout completed", "purchased", summary.Purchased, "requested", len(planetIDs))
	return summary, nil
}

// ListMine returns the buyer's purchase history with planet summaries.
func (s *Service) ListMine(ctx context.Context, buyerID uuid.UUID) ([]Entry, error) {
	entries, err := s.ledger.ListPurchasesByBuyer(ctx, buyerID)
	if err != nil {
		return nil, errors.WrapExternal("failed to load purchases", err)
	}
	return entries, nil
}

// GetCertificateItem loads one purchase with its planet for rendering,
// enforcing buyer-only access.
func (s *Service) GetCertificateItem(ctx context.Context, purchaseID, requesterID uuid.UUID) (*CertificateItem, error) {
	p, err := s.ledger.GetPurchase(ctx, purchaseID)
	if err != nil {
		return nil, errors.WrapExternal("failed to load purchase", err)
	}
	if p == nil {
		return nil, errors.NotFoundf("purchase %s not found", purchaseID)
	}
	if p.BuyerID != requesterID {
		return nil, errors.Forbidden("access denied")
	}

	pl, err := s.planets.GetPlanetByID(ctx, p.PlanetID)
	if err != nil {
		return nil, errors.WrapExternal("failed to load planet", err)
	}
	if pl == nil {
		return nil, errors.NotFoundf("planet %s not found", p.PlanetID)
	}

	return &CertificateItem{Purchase: *p, Planet: *pl}, nil
}

// GetCertificateItems loads a batch of the requester's purchases with
// their planets. Purchases belonging to other buyers are silently
// filtered by the ledger query.
func (s *Service) GetCertificateItems(ctx context.Context, purchaseIDs []uuid.UUID, requesterID uuid.UUID) ([]CertificateItem, error) {
	if len(purchaseIDs) == 0 {
		return nil, errors.Validation("ids parameter is required")
	}

	purchases, err := s.ledger.GetPurchasesForBuyer(ctx, purchaseIDs, requesterID)
	if err != nil {
		return nil, errors.WrapExternal("failed to load purchases", err)
	}
	if len(purchases) == 0 {
		return nil, errors.NotFoundf("no purchases found")
	}

	items := make([]CertificateItem, 0, len(purchases))
	for _, p := range purchases {
		pl, err := s.planets.GetPlanetByID(ctx, p.PlanetID)
		if err != nil {
			return nil, errors.WrapExternal("failed to load planet", err)
		}
		if pl == nil {
			s.logger.Warn("Purchase references a missing planet, skipping", "purchase_id", p.ID, "planet_id", p.PlanetID)
			continue
		}
		items = append(items, CertificateItem{Purchase: p, Planet: *pl})
	}

	if len(items) == 0 {
		return nil, errors.NotFoundf("no purchases found")
	}

	return items, nil
}

// Reset purges the ledger and puts every planet back on the market.
// Development escape hatch, admin only.
func (s *Service) Reset(ctx context.Context) (*ResetReport, error) {
	logger := s.logger.With("component", "purchase_service", "operation", "reset")
	logger.Warn("Resetting commerce state")

	deleted, err := s.ledger.DeleteAllPurchases(ctx)
	if err != nil {
		return nil, errors.WrapExternal("failed to purge purchases", err)
	}

	released, err := s.planets.ReleaseAll(ctx)
	if err != nil {
		return nil, errors.WrapExternal("failed to release planets", err)
	}

	s.catalog.Invalidate(ctx)
	logger.Info("Commerce state reset", "purchases_deleted", deleted, "planets_released", released)

	return &ResetReport{PurchasesDeleted: deleted, PlanetsReleased: released}, nil
}
