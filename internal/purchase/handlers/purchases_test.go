package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"spaceshop-server/internal/auth"
	"spaceshop-server/internal/certificate"
	"spaceshop-server/internal/middleware"
	"spaceshop-server/internal/planet"
	"spaceshop-server/internal/purchase"

	"github.com/google/uuid"
)

type stubPlanetStore struct {
	planets map[uuid.UUID]*planet.Planet
}

func (s *stubPlanetStore) GetPlanetByID(ctx context.Context, id uuid.UUID) (*planet.Planet, error) {
	p, ok := s.planets[id]
	if !ok {
		return nil, nil
	}
	clone := *p
	return &clone, nil
}

func (s *stubPlanetStore) ReleaseAll(ctx context.Context) (int64, error) {
	var n int64
	for _, p := range s.planets {
		if !p.IsAvailable {
			p.IsAvailable = true
			p.OwnerID = nil
			n++
		}
	}
	return n, nil
}

type stubLedger struct {
	entries []purchase.Purchase
}

func (s *stubLedger) record(planetID, buyerID uuid.UUID, price float64) *purchase.Purchase {
	p := purchase.Purchase{ID: uuid.New(), PlanetID: planetID, BuyerID: buyerID, Price: price, CreatedAt: time.Now()}
	s.entries = append(s.entries, p)
	return &p
}

func (s *stubLedger) GetPurchase(ctx context.Context, id uuid.UUID) (*purchase.Purchase, error) {
	for _, p := range s.entries {
		if p.ID == id {
			clone := p
			return &clone, nil
		}
	}
	return nil, nil
}

func (s *stubLedger) ListPurchasesByBuyer(ctx context.Context, buyerID uuid.UUID) ([]purchase.Entry, error) {
	var out []purchase.Entry
	for _, p := range s.entries {
		if p.BuyerID == buyerID {
			out = append(out, purchase.Entry{ID: p.ID, Price: p.Price, CreatedAt: p.CreatedAt})
		}
	}
	return out, nil
}

func (s *stubLedger) GetPurchasesForBuyer(ctx context.Context, ids []uuid.UUID, buyerID uuid.UUID) ([]purchase.Purchase, error) {
	var out []purchase.Purchase
	for _, id := range ids {
		for _, p := range s.entries {
			if p.ID == id && p.BuyerID == buyerID {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (s *stubLedger) DeleteAllPurchases(ctx context.Context) (int64, error) {
	n := int64(len(s.entries))
	s.entries = nil
	return n, nil
}

type stubExchange struct {
	planets *stubPlanetStore
	ledger  *stubLedger
}

func (s *stubExchange) ExecuteBuy(ctx context.Context, planetID, buyerID uuid.UUID) (*purchase.Purchase, *planet.Planet, error) {
	p, ok := s.planets.planets[planetID]
	if !ok || !p.IsAvailable {
		return nil, nil, nil
	}
	p.IsAvailable = false
	p.OwnerID = &buyerID
	clone := *p
	created := s.ledger.record(planetID, buyerID, p.Price)
	return created, &clone, nil
}

func (s *stubExchange) ExecuteGift(ctx context.Context, planetID, recipientID uuid.UUID) (*purchase.Purchase, *planet.Planet, error) {
	p, ok := s.planets.planets[planetID]
	if !ok {
		return nil, nil, nil
	}
	p.IsAvailable = false
	p.OwnerID = &recipientID
	clone := *p
	created := s.ledger.record(planetID, recipientID, 0)
	return created, &clone, nil
}

type stubDirectory struct{}

func (stubDirectory) GiftAvailable() bool {
	return true
}

func (stubDirectory) FindUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return &auth.User{ID: uuid.New(), Email: email}, nil
}

func (stubDirectory) InviteUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return &auth.User{ID: uuid.New(), Email: email}, nil
}

type stubCatalog struct{}

func (stubCatalog) Invalidate(ctx context.Context) {}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	handler *PurchaseHandler
	planets *stubPlanetStore
	ledger  *stubLedger
}

func newFixture(certs *certificate.Service) *fixture {
	planets := &stubPlanetStore{planets: map[uuid.UUID]*planet.Planet{}}
	ledger := &stubLedger{}
	exchange := &stubExchange{planets: planets, ledger: ledger}
	service := purchase.NewService(planets, ledger, exchange, stubDirectory{}, stubCatalog{}, "", testLogger())
	return &fixture{
		handler: NewPurchaseHandler(service, certs),
		planets: planets,
		ledger:  ledger,
	}
}

func (f *fixture) addPlanet(name string, price float64) *planet.Planet {
	p := &planet.Planet{ID: uuid.New(), Name: name, Type: "terrestrial", Price: price, IsAvailable: true}
	f.planets.planets[p.ID] = p
	return p
}

func asUser(r *http.Request, user *auth.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.UserContextKey, user))
}

func TestBuyHandlerSuccess(t *testing.T) {
	f := newFixture(certificate.NewService(certificate.NewPDFRenderer("SpaceShop"), testLogger()))
	mars := f.addPlanet("Mars", 2500)
	buyer := &auth.User{ID: uuid.New(), Email: "alice@example.com"}

	body := fmt.Sprintf(`{"planetId":%q}`, mars.ID)
	r := asUser(httptest.NewRequest(http.MethodPost, "/api/purchases", strings.NewReader(body)), buyer)
	w := httptest.NewRecorder()
	f.handler.Buy(w, r)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Purchase       purchase.Purchase `json:"purchase"`
			CertificateURL string            `json:"certificateUrl"`
		} `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success {
		t.Fatal("expected success envelope")
	}
	if resp.Data.Purchase.Price != 2500 {
		t.Fatalf("expected price 2500, got %v", resp.Data.Purchase.Price)
	}
	want := fmt.Sprintf("/api/purchases/certificate/%s", resp.Data.Purchase.ID)
	if resp.Data.CertificateURL != want {
		t.Fatalf("expected certificate url %q, got %q", want, resp.Data.CertificateURL)
	}
}

func TestBuyHandlerOmitsCertificateURLWhenDisabled(t *testing.T) {
	f := newFixture(certificate.NewService(nil, testLogger()))
	mars := f.addPlanet("Mars", 2500)
	buyer := &auth.User{ID: uuid.New(), Email: "alice@example.com"}

	body := fmt.Sprintf(`{"planetId":%q}`, mars.ID)
	r := asUser(httptest.NewRequest(http.MethodPost, "/api/purchases", strings.NewReader(body)), buyer)
	w := httptest.NewRecorder()
	f.handler.Buy(w, r)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "certificateUrl") {
		t.Fatal("expected no certificate url when rendering is disabled")
	}
}

func TestBuyHandlerRejectsBadInput(t *testing.T) {
	f := newFixture(certificate.NewService(nil, testLogger()))
	buyer := &auth.User{ID: uuid.New(), Email: "alice@example.com"}

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{planetId}`},
		{"missing planet id", `{}`},
		{"malformed uuid", `{"planetId":"not-a-uuid"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := asUser(httptest.NewRequest(http.MethodPost, "/api/purchases", strings.NewReader(tt.body)), buyer)
			w := httptest.NewRecorder()
			f.handler.Buy(w, r)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestBuyHandlerRequiresUser(t *testing.T) {
	f := newFixture(certificate.NewService(nil, testLogger()))
	mars := f.addPlanet("Mars", 2500)

	body := fmt.Sprintf(`{"planetId":%q}`, mars.ID)
	r := httptest.NewRequest(http.MethodPost, "/api/purchases", strings.NewReader(body))
	w := httptest.NewRecorder()
	f.handler.Buy(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestBuyHandlerSoldPlanetConflicts(t *testing.T) {
	f := newFixture(certificate.NewService(nil, testLogger()))
	mars := f.addPlanet("Mars", 2500)
	owner := uuid.New()
	mars.IsAvailable = false
	mars.OwnerID = &owner
	buyer := &auth.User{ID: uuid.New(), Email: "alice@example.com"}

	body := fmt.Sprintf(`{"planetId":%q}`, mars.ID)
	r := asUser(httptest.NewRequest(http.MethodPost, "/api/purchases", strings.NewReader(body)), buyer)
	w := httptest.NewRecorder()
	f.handler.Buy(w, r)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestCheckoutHandlerMixedBatch(t *testing.T) {
	f := newFixture(certificate.NewService(nil, testLogger()))
	mars := f.addPlanet("Mars", 2500)
	venus := f.addPlanet("Venus", 1800)
	owner := uuid.New()
	venus.IsAvailable = false
	venus.OwnerID = &owner
	buyer := &auth.User{ID: uuid.New(), Email: "alice@example.com"}

	body := fmt.Sprintf(`{"planetIds":[%q,%q]}`, mars.ID, venus.ID)
	r := asUser(httptest.NewRequest(http.MethodPost, "/api/purchases/checkout", strings.NewReader(body)), buyer)
	w := httptest.NewRecorder()
	f.handler.Checkout(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data purchase.CheckoutSummary `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.Purchased != 1 {
		t.Fatalf("expected 1 purchased, got %d", resp.Data.Purchased)
	}
	if len(resp.Data.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Data.Results))
	}
	if strings.Contains(w.Body.String(), "certificateUrl") {
		t.Fatal("expected no certificate url when rendering is disabled")
	}
}

func TestCheckoutHandlerIncludesBatchCertificateURL(t *testing.T) {
	f := newFixture(certificate.NewService(certificate.NewPDFRenderer("SpaceShop"), testLogger()))
	mars := f.addPlanet("Mars", 2500)
	venus := f.addPlanet("Venus", 1800)
	owner := uuid.New()
	venus.IsAvailable = false
	venus.OwnerID = &owner
	buyer := &auth.User{ID: uuid.New(), Email: "alice@example.com"}

	body := fmt.Sprintf(`{"planetIds":[%q,%q]}`, mars.ID, venus.ID)
	r := asUser(httptest.NewRequest(http.MethodPost, "/api/purchases/checkout", strings.NewReader(body)), buyer)
	w := httptest.NewRecorder()
	f.handler.Checkout(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			Purchased      int    `json:"purchased"`
			CertificateURL string `json:"certificateUrl"`
		} `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.Purchased != 1 {
		t.Fatalf("expected 1 purchased, got %d", resp.Data.Purchased)
	}

	// Only the purchased item's ledger entry belongs in the batch link.
	want := "/api/purchases/certificate?ids=" + f.ledger.entries[0].ID.String()
	if resp.Data.CertificateURL != want {
		t.Fatalf("expected certificate url %q, got %q", want, resp.Data.CertificateURL)
	}
}

func TestCheckoutHandlerNothingPurchasedIs409(t *testing.T) {
	f := newFixture(certificate.NewService(nil, testLogger()))
	venus := f.addPlanet("Venus", 1800)
	owner := uuid.New()
	venus.IsAvailable = false
	venus.OwnerID = &owner
	buyer := &auth.User{ID: uuid.New(), Email: "alice@example.com"}

	body := fmt.Sprintf(`{"planetIds":[%q]}`, venus.ID)
	r := asUser(httptest.NewRequest(http.MethodPost, "/api/purchases/checkout", strings.NewReader(body)), buyer)
	w := httptest.NewRecorder()
	f.handler.Checkout(w, r)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestCertificateHandlerStreamsPDF(t *testing.T) {
	f := newFixture(certificate.NewService(certificate.NewPDFRenderer("SpaceShop"), testLogger()))
	mars := f.addPlanet("Mars", 2500)
	buyer := &auth.User{ID: uuid.New(), Email: "alice@example.com"}

	body := fmt.Sprintf(`{"planetId":%q}`, mars.ID)
	buyReq := asUser(httptest.NewRequest(http.MethodPost, "/api/purchases", strings.NewReader(body)), buyer)
	buyRec := httptest.NewRecorder()
	f.handler.Buy(buyRec, buyReq)
	if buyRec.Code != http.StatusCreated {
		t.Fatalf("buy failed: %d", buyRec.Code)
	}

	purchaseID := f.ledger.entries[0].ID

	r := asUser(httptest.NewRequest(http.MethodGet, "/api/purchases/certificate/"+purchaseID.String(), nil), buyer)
	r.SetPathValue("purchaseId", purchaseID.String())
	w := httptest.NewRecorder()
	f.handler.Certificate(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("expected application/pdf, got %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "certificate-Mars.pdf") {
		t.Fatalf("unexpected content disposition %q", cd)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")) {
		t.Fatal("expected a PDF body")
	}
}

func TestCertificateHandlerWithoutRendererIs501(t *testing.T) {
	f := newFixture(certificate.NewService(nil, testLogger()))
	mars := f.addPlanet("Mars", 2500)
	buyer := &auth.User{ID: uuid.New(), Email: "alice@example.com"}

	body := fmt.Sprintf(`{"planetId":%q}`, mars.ID)
	buyReq := asUser(httptest.NewRequest(http.MethodPost, "/api/purchases", strings.NewReader(body)), buyer)
	buyRec := httptest.NewRecorder()
	f.handler.Buy(buyRec, buyReq)

	purchaseID := f.ledger.entries[0].ID

	r := asUser(httptest.NewRequest(http.MethodGet, "/api/purchases/certificate/"+purchaseID.String(), nil), buyer)
	r.SetPathValue("purchaseId", purchaseID.String())
	w := httptest.NewRecorder()
	f.handler.Certificate(w, r)

	if w.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", w.Code)
	}
}

func TestCertificateBatchHandler(t *testing.T) {
	f := newFixture(certificate.NewService(certificate.NewPDFRenderer("SpaceShop"), testLogger()))
	mars := f.addPlanet("Mars", 2500)
	venus := f.addPlanet("Venus", 1800)
	buyer := &auth.User{ID: uuid.New(), Email: "alice@example.com"}

	for _, p := range []*planet.Planet{mars, venus} {
		body := fmt.Sprintf(`{"planetId":%q}`, p.ID)
		rec := httptest.NewRecorder()
		f.handler.Buy(rec, asUser(httptest.NewRequest(http.MethodPost, "/api/purchases", strings.NewReader(body)), buyer))
		if rec.Code != http.StatusCreated {
			t.Fatalf("buy %s failed: %d", p.Name, rec.Code)
		}
	}

	ids := fmt.Sprintf("%s,%s", f.ledger.entries[0].ID, f.ledger.entries[1].ID)
	r := asUser(httptest.NewRequest(http.MethodGet, "/api/purchases/certificate?ids="+ids, nil), buyer)
	w := httptest.NewRecorder()
	f.handler.CertificateBatch(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")) {
		t.Fatal("expected a PDF body")
	}
}

func TestCertificateBatchHandlerRequiresIDs(t *testing.T) {
	f := newFixture(certificate.NewService(certificate.NewPDFRenderer("SpaceShop"), testLogger()))
	buyer := &auth.User{ID: uuid.New(), Email: "alice@example.com"}

	r := asUser(httptest.NewRequest(http.MethodGet, "/api/purchases/certificate", nil), buyer)
	w := httptest.NewRecorder()
	f.handler.CertificateBatch(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestListMineHandler(t *testing.T) {
	f := newFixture(certificate.NewService(nil, testLogger()))
	mars := f.addPlanet("Mars", 2500)
	buyer := &auth.User{ID: uuid.New(), Email: "alice@example.com"}

	body := fmt.Sprintf(`{"planetId":%q}`, mars.ID)
	rec := httptest.NewRecorder()
	f.handler.Buy(rec, asUser(httptest.NewRequest(http.MethodPost, "/api/purchases", strings.NewReader(body)), buyer))

	r := asUser(httptest.NewRequest(http.MethodGet, "/api/purchases/my", nil), buyer)
	w := httptest.NewRecorder()
	f.handler.ListMine(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Data []purchase.Entry `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(resp.Data))
	}
}

func TestGiftHandlerValidation(t *testing.T) {
	f := newFixture(certificate.NewService(nil, testLogger()))
	buyer := &auth.User{ID: uuid.New(), Email: "alice@example.com"}

	body := fmt.Sprintf(`{"planetId":%q,"email":"not-an-email"}`, uuid.New())
	r := asUser(httptest.NewRequest(http.MethodPost, "/api/purchases/gift", strings.NewReader(body)), buyer)
	w := httptest.NewRecorder()
	f.handler.Gift(w, r)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestResetHandler(t *testing.T) {
	f := newFixture(certificate.NewService(nil, testLogger()))
	mars := f.addPlanet("Mars", 2500)
	buyer := &auth.User{ID: uuid.New(), Email: "alice@example.com"}

	body := fmt.Sprintf(`{"planetId":%q}`, mars.ID)
	rec := httptest.NewRecorder()
	f.handler.Buy(rec, asUser(httptest.NewRequest(http.MethodPost, "/api/purchases", strings.NewReader(body)), buyer))

	r := httptest.NewRequest(http.MethodPost, "/api/admin/reset", nil)
	w := httptest.NewRecorder()
	f.handler.Reset(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Data purchase.ResetReport `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.PurchasesDeleted != 1 || resp.Data.PlanetsReleased != 1 {
		t.Fatalf("unexpected reset report: %+v", resp.Data)
	}
	if !mars.IsAvailable {
		t.Fatal("expected mars back on the market")
	}
}
