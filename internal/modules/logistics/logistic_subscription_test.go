package logistics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"cold-storage-marketplace/internal/models"
	"cold-storage-marketplace/pkg/inflight"
	"cold-storage-marketplace/pkg/payment"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	mu   sync.Mutex
	subs []models.LogisticsSubscription
}

func (r *memoryRepo) Create(_ context.Context, sub *models.LogisticsSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if s.PaymentReference == sub.PaymentReference {
			return models.ErrConflict
		}
	}
	sub.CreatedAt = time.Now()
	r.subs = append(r.subs, *sub)
	return nil
}

func (r *memoryRepo) FindByPaymentReference(_ context.Context, reference string) (*models.LogisticsSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if s.PaymentReference == reference {
			s := s
			return &s, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *memoryRepo) ListByUser(_ context.Context, userID string, _, _ int) ([]models.LogisticsSubscription, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.LogisticsSubscription{}
	for _, s := range r.subs {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, len(out), nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	return nil
}

var fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func newTestService() (*Service, *memoryRepo, *MemorySelectionStore, *recordingPublisher) {
	repo := &memoryRepo{}
	selections := NewMemorySelectionStore()
	publisher := &recordingPublisher{}
	svc := NewService(repo, selections, payment.NewSimulatedGateway(payment.NewMemoryStore(), 0, "0002"),
		inflight.NewMemoryGuard(), publisher, time.UTC)
	svc.now = func() time.Time { return fixedNow }
	return svc, repo, selections, publisher
}

func farmer() *models.Session {
	return &models.Session{UserID: "user-1", Email: "ravi@example.com", FirstName: "Ravi", LastName: "Kumar", Phone: "+919800000000"}
}

func validSubscribe(attemptKey string) models.SubscribeRequest {
	return models.SubscribeRequest{
		AttemptKey:      attemptKey,
		FarmAddress:     "Survey 42, Hoskote",
		PickupDate:      "2026-03-01",
		CropType:        "Potato",
		EstimatedWeight: decimal.NewFromInt(12),
		Payment:         models.PaymentDetails{Method: "upi", UPIID: "ravi@okbank"},
	}
}

func TestPlansAreFixed(t *testing.T) {
	plans := Plans()
	require.Len(t, plans, 3)
	assert.Equal(t, "basic-logistics", plans[0].ID)
	assert.True(t, plans[1].MonthlyPrice.Equal(decimal.NewFromInt(2999)))

	plans[0].Features[0] = "changed"
	again, ok := FindPlan("basic-logistics")
	require.True(t, ok)
	assert.Equal(t, "Pickup within 20km", again.Features[0])

	_, ok = FindPlan("premium-logistics")
	assert.False(t, ok)
}

func TestSelectStoresSelection(t *testing.T) {
	svc, _, selections, _ := newTestService()

	sel, err := svc.Select(context.Background(), "advanced-logistics")
	require.NoError(t, err)
	assert.True(t, sel.Price.Equal(decimal.NewFromInt(5999)))

	stored, err := selections.Get(context.Background(), sel.SelectionID)
	require.NoError(t, err)
	assert.Equal(t, "advanced-logistics", stored.PlanID)

	_, err = svc.Select(context.Background(), "unknown")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSubscribeRequiresSession(t *testing.T) {
	svc, repo, _, _ := newTestService()

	_, err := svc.Subscribe(context.Background(), nil, "standard-logistics", validSubscribe("attempt-0001"))

	var authErr *models.AuthRequiredError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "/payment/logistics/standard-logistics", authErr.ReturnPath)
	assert.Empty(t, repo.subs)
}

func TestSubscribeUnknownPlanIsTerminal(t *testing.T) {
	svc, repo, _, _ := newTestService()

	_, err := svc.Subscribe(context.Background(), farmer(), "premium-logistics", validSubscribe("attempt-0001"))

	assert.ErrorIs(t, err, models.ErrPlanNotFound)
	assert.Equal(t, models.StateFailed, models.StateAfter(err))
	assert.Empty(t, repo.subs)
}

func TestSubscribeActivatesPlan(t *testing.T) {
	svc, repo, _, publisher := newTestService()

	out, err := svc.Subscribe(context.Background(), farmer(), "standard-logistics", validSubscribe("attempt-0001"))
	require.NoError(t, err)

	assert.False(t, out.Replayed)
	assert.Equal(t, models.SubscriptionActive, out.Subscription.Status)
	assert.True(t, out.Subscription.MonthlyAmount.Equal(decimal.NewFromInt(2999)))
	assert.Equal(t, "logistics", out.Receipt.Kind)
	assert.Equal(t, "Ravi Kumar", out.Receipt.CustomerName)
	assert.Equal(t, "UPI ravi@okbank", out.Receipt.PaymentMethod)
	assert.Contains(t, out.Receipt.Details, models.ReceiptLine{Label: "Estimated weight", Value: "12 MT"})
	assert.Equal(t, []string{"logistics.activated"}, publisher.keys)
	assert.Len(t, repo.subs, 1)

	replay, err := svc.Subscribe(context.Background(), farmer(), "standard-logistics", validSubscribe("attempt-0001"))
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.Equal(t, out.Subscription.ID, replay.Subscription.ID)
	assert.Len(t, repo.subs, 1)
}

func TestSubscribeUsesMatchingSelection(t *testing.T) {
	svc, _, selections, _ := newTestService()
	require.NoError(t, selections.Save(context.Background(), models.LogisticsSelection{
		SelectionID: "8d7f8f36-8d0b-4c4e-9a67-5d1f0c2a4b11",
		PlanID:      "basic-logistics",
		PlanName:    "Basic Logistics",
		Price:       decimal.NewFromInt(1299),
	}))

	req := validSubscribe("attempt-0002")
	req.SelectionID = "8d7f8f36-8d0b-4c4e-9a67-5d1f0c2a4b11"
	out, err := svc.Subscribe(context.Background(), farmer(), "basic-logistics", req)
	require.NoError(t, err)
	assert.True(t, out.Subscription.MonthlyAmount.Equal(decimal.NewFromInt(1299)))

	// A selection for another plan is ignored in favour of the catalog.
	req = validSubscribe("attempt-0003")
	req.SelectionID = "8d7f8f36-8d0b-4c4e-9a67-5d1f0c2a4b11"
	out, err = svc.Subscribe(context.Background(), farmer(), "advanced-logistics", req)
	require.NoError(t, err)
	assert.True(t, out.Subscription.MonthlyAmount.Equal(decimal.NewFromInt(5999)))
}

func TestSubscribeValidatesForm(t *testing.T) {
	svc, repo, _, _ := newTestService()
	req := validSubscribe("attempt-0004")
	req.EstimatedWeight = decimal.Zero
	req.PickupDate = "2026-02-28"
	req.FarmAddress = ""

	_, err := svc.Subscribe(context.Background(), farmer(), "basic-logistics", req)

	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must be greater than 0", verr.Fields["estimated_weight"])
	assert.Equal(t, "cannot be in the past", verr.Fields["pickup_date"])
	assert.Equal(t, "is required", verr.Fields["farm_address"])
	assert.Empty(t, repo.subs)
}

func TestSubscribeDeclinedCardStaysEditable(t *testing.T) {
	svc, repo, _, _ := newTestService()
	req := validSubscribe("attempt-0005")
	req.Payment = models.PaymentDetails{Method: "card", CardNumber: "4000000000000002", CardName: "Ravi", Expiry: "10/28", CVV: "123"}

	_, err := svc.Subscribe(context.Background(), farmer(), "basic-logistics", req)

	assert.ErrorIs(t, err, models.ErrPaymentFailed)
	assert.Equal(t, models.StateFormEditing, models.StateAfter(err))
	assert.Empty(t, repo.subs)
}

func TestSubscribeRejectsUnstorableWeight(t *testing.T) {
	svc, repo, _, _ := newTestService()

	for weight, message := range map[string]string{
		"0.0004":       "must have at most 3 decimal places",
		"100000000000": "must be at most 100000",
	} {
		req := validSubscribe("attempt-0006")
		req.EstimatedWeight = decimal.RequireFromString(weight)

		_, err := svc.Subscribe(context.Background(), farmer(), "basic-logistics", req)

		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr, weight)
		assert.Equal(t, message, verr.Fields["estimated_weight"], weight)
	}
	assert.Empty(t, repo.subs)
}

type unreachableGateway struct{}

func (unreachableGateway) Charge(context.Context, payment.ChargeRequest) (*payment.Charge, error) {
	return nil, errors.New("payment.Charge: lookup: dial tcp redis:6379: connection refused")
}

func TestSubscribeGatewayOutageIsBackendError(t *testing.T) {
	svc, repo, _, _ := newTestService()
	svc.gateway = unreachableGateway{}

	_, err := svc.Subscribe(context.Background(), farmer(), "basic-logistics", validSubscribe("attempt-0007"))

	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrPaymentFailed)
	assert.Equal(t, models.StateFailed, models.StateAfter(err))
	assert.Empty(t, repo.subs)
}

func TestSubscribeHandlerAnonymous(t *testing.T) {
	svc, _, _, _ := newTestService()
	h := NewHandler(svc)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/logistics/plans/basic-logistics/subscribe", strings.NewReader(`{"attempt_key":"attempt-0006"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("planId")
	c.SetParamValues("basic-logistics")

	require.NoError(t, h.Subscribe(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", rec.Header().Get(StateHeader))

	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "/payment/logistics/basic-logistics", body.ReturnPath)
}
