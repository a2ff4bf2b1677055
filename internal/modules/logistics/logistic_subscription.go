package logistics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cold-storage-marketplace/internal/database"
	"cold-storage-marketplace/internal/models"
	"cold-storage-marketplace/internal/modules/pricing"
	"cold-storage-marketplace/pkg/events"
	"cold-storage-marketplace/pkg/inflight"
	"cold-storage-marketplace/pkg/payment"
	"cold-storage-marketplace/pkg/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ------------------- Repository Layer -------------------

type RepositoryInterface interface {
	Create(ctx context.Context, sub *models.LogisticsSubscription) error
	FindByPaymentReference(ctx context.Context, reference string) (*models.LogisticsSubscription, error)
	ListByUser(ctx context.Context, userID string, page, limit int) ([]models.LogisticsSubscription, int, error)
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

const subscriptionColumns = `
	id, user_id, plan_id, plan_name, monthly_amount, farm_address, crop_type, estimated_weight,
	pickup_date, payment_method, payment_reference, status, created_at`

func scanSubscription(row pgx.Row) (*models.LogisticsSubscription, error) {
	var s models.LogisticsSubscription
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.PlanID,
		&s.PlanName,
		&s.MonthlyAmount,
		&s.FarmAddress,
		&s.CropType,
		&s.EstimatedWeight,
		&s.PickupDate,
		&s.PaymentMethod,
		&s.PaymentReference,
		&s.Status,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, database.MapError(err)
	}
	return &s, nil
}

func (r *Repository) Create(ctx context.Context, sub *models.LogisticsSubscription) error {
	query := `
		INSERT INTO logistics_subscriptions (id, user_id, plan_id, plan_name, monthly_amount, farm_address,
		                                     crop_type, estimated_weight, pickup_date, payment_method,
		                                     payment_reference, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		sub.ID, sub.UserID, sub.PlanID, sub.PlanName, sub.MonthlyAmount, sub.FarmAddress,
		sub.CropType, sub.EstimatedWeight, sub.PickupDate, sub.PaymentMethod,
		sub.PaymentReference, sub.Status,
	).Scan(&sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("repository.Create: %w", database.MapError(err))
	}
	return nil
}

func (r *Repository) FindByPaymentReference(ctx context.Context, reference string) (*models.LogisticsSubscription, error) {
	query := `SELECT` + subscriptionColumns + ` FROM logistics_subscriptions WHERE payment_reference = $1`
	s, err := scanSubscription(r.db.QueryRow(ctx, query, reference))
	if err != nil {
		return nil, fmt.Errorf("repository.FindByPaymentReference: %w", err)
	}
	return s, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID string, page, limit int) ([]models.LogisticsSubscription, int, error) {
	query := `SELECT` + subscriptionColumns + `
		FROM logistics_subscriptions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.ListByUser.Query: %w", err)
	}
	defer rows.Close()

	subs := []models.LogisticsSubscription{}
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repository.ListByUser.Scan: %w", err)
		}
		subs = append(subs, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repository.ListByUser.Rows: %w", err)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM logistics_subscriptions WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository.ListByUser.Count: %w", err)
	}
	return subs, total, nil
}

// ------------------- Service Layer -------------------

type ServiceInterface interface {
	ListPlans() []models.LogisticsPlan
	Select(ctx context.Context, planID string) (*models.LogisticsSelection, error)
	Subscribe(ctx context.Context, session *models.Session, planID string, req models.SubscribeRequest) (*Outcome, error)
	ListMine(ctx context.Context, userID string, page, limit int) ([]models.LogisticsSubscription, int, error)
}

// Outcome mirrors the booking outcome: Replayed is set when the attempt had
// already been charged and the stored subscription is returned.
type Outcome struct {
	State        string                        `json:"state"`
	Subscription *models.LogisticsSubscription `json:"subscription"`
	Receipt      models.Receipt                `json:"receipt"`
	Replayed     bool                          `json:"replayed"`
}

type Service struct {
	repo       RepositoryInterface
	selections SelectionStore
	gateway    payment.Gateway
	guard      inflight.Guard
	publisher  events.Publisher
	location   *time.Location
	now        func() time.Time
}

func NewService(
	repo RepositoryInterface,
	selections SelectionStore,
	gateway payment.Gateway,
	guard inflight.Guard,
	publisher events.Publisher,
	location *time.Location,
) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{
		repo:       repo,
		selections: selections,
		gateway:    gateway,
		guard:      guard,
		publisher:  publisher,
		location:   location,
		now:        time.Now,
	}
}

// IdempotencyKey scopes a payment to one user's subscription attempt.
func IdempotencyKey(userID, attemptKey string) string {
	return "logistics:" + userID + ":" + attemptKey
}

func (s *Service) ListPlans() []models.LogisticsPlan {
	return Plans()
}

// Select remembers the picked plan for SelectionTTL. The returned id is passed
// back as selection_id when the form is submitted.
func (s *Service) Select(ctx context.Context, planID string) (*models.LogisticsSelection, error) {
	plan, ok := FindPlan(planID)
	if !ok {
		return nil, models.ErrNotFound
	}
	sel := models.LogisticsSelection{
		SelectionID: uuid.NewString(),
		PlanID:      plan.ID,
		PlanName:    plan.Name,
		Price:       plan.MonthlyPrice,
		SelectedAt:  s.now(),
	}
	if err := s.selections.Save(ctx, sel); err != nil {
		return nil, fmt.Errorf("service.Select: %w", err)
	}
	return &sel, nil
}

// Subscribe runs one subscription attempt. It follows the booking workflow:
// no subscription is stored unless the charge succeeded, and one charge never
// yields two subscriptions.
func (s *Service) Subscribe(ctx context.Context, session *models.Session, planID string, req models.SubscribeRequest) (*Outcome, error) {
	if session == nil {
		return nil, &models.AuthRequiredError{ReturnPath: "/payment/logistics/" + planID}
	}

	plan, err := s.resolvePlan(ctx, planID, req.SelectionID)
	if err != nil {
		return nil, err
	}

	pickupDate, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	key := IdempotencyKey(session.UserID, req.AttemptKey)
	release, err := s.guard.Acquire(ctx, key)
	if err != nil {
		if errors.Is(err, inflight.ErrBusy) {
			return nil, models.ErrSubmissionInFlight
		}
		return nil, fmt.Errorf("service.Subscribe.Acquire: %w", err)
	}
	defer release()

	amount := pricing.ComputeLogisticsMonthlyTotal(plan.MonthlyPrice)
	charge, err := s.gateway.Charge(ctx, payment.NewChargeRequest(key, amount, plan.Name+" (monthly)", req.Payment))
	if err != nil {
		if !payment.IsRefused(err) {
			return nil, fmt.Errorf("service.Subscribe.Charge: %w", err)
		}
		zap.L().Info("logistics payment failed",
			zap.String("user_id", session.UserID),
			zap.String("plan_id", plan.ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", models.ErrPaymentFailed, err)
	}

	if existing, err := s.repo.FindByPaymentReference(ctx, charge.Reference); err == nil {
		return s.replayed(existing, session), nil
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("service.Subscribe.FindByPaymentReference: %w", err)
	}

	if !charge.Amount.Equal(amount) {
		return nil, fmt.Errorf("%w: attempt key already used for a different amount", models.ErrConflict)
	}

	sub := &models.LogisticsSubscription{
		ID:               uuid.NewString(),
		UserID:           session.UserID,
		PlanID:           plan.ID,
		PlanName:         plan.Name,
		MonthlyAmount:    amount,
		FarmAddress:      req.FarmAddress,
		CropType:         req.CropType,
		EstimatedWeight:  req.EstimatedWeight,
		PickupDate:       pickupDate,
		PaymentMethod:    req.Payment.Method,
		PaymentReference: charge.Reference,
		Status:           models.SubscriptionActive,
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		if errors.Is(err, models.ErrConflict) {
			if existing, findErr := s.repo.FindByPaymentReference(ctx, charge.Reference); findErr == nil {
				return s.replayed(existing, session), nil
			}
		}
		zap.L().Error("charged subscription could not be stored",
			zap.String("payment_reference", charge.Reference),
			zap.String("idempotency_key", key),
			zap.Error(err),
		)
		return nil, fmt.Errorf("service.Subscribe.Create: %w", err)
	}

	receipt := buildReceipt(sub, session, payment.MaskedInstrument(req.Payment), s.now())
	s.publish(ctx, session.UserID, receipt)

	zap.L().Info("logistics subscription activated",
		zap.String("subscription_id", sub.ID),
		zap.String("user_id", sub.UserID),
		zap.String("plan_id", sub.PlanID),
	)
	return &Outcome{State: models.StateConfirmed.String(), Subscription: sub, Receipt: receipt}, nil
}

// resolvePlan prefers the stored selection when it still exists and names the
// same plan; otherwise the catalog decides.
func (s *Service) resolvePlan(ctx context.Context, planID, selectionID string) (models.LogisticsPlan, error) {
	if selectionID != "" {
		sel, err := s.selections.Get(ctx, selectionID)
		switch {
		case err == nil && sel.PlanID == planID:
			plan, _ := FindPlan(planID)
			plan.ID, plan.Name, plan.MonthlyPrice = sel.PlanID, sel.PlanName, sel.Price
			return plan, nil
		case err != nil && !errors.Is(err, models.ErrNotFound):
			zap.L().Warn("logistics selection lookup failed", zap.String("selection_id", selectionID), zap.Error(err))
		}
	}

	plan, ok := FindPlan(planID)
	if !ok {
		return models.LogisticsPlan{}, models.ErrPlanNotFound
	}
	return plan, nil
}

func (s *Service) validate(req models.SubscribeRequest) (time.Time, error) {
	verr := utils.GetValidator().Fields(req)
	if verr == nil {
		verr = models.NewValidationError()
	}

	if problem := models.QuantityProblem(req.EstimatedWeight); problem != "" {
		verr.Add("estimated_weight", problem)
	}

	var pickup time.Time
	if _, failed := verr.Fields["pickup_date"]; !failed {
		parsed, err := time.ParseInLocation(models.DateLayout, req.PickupDate, s.location)
		if err != nil {
			verr.Add("pickup_date", "must be a date formatted as YYYY-MM-DD")
		} else {
			now := s.now().In(s.location)
			today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
			if parsed.Before(today) {
				verr.Add("pickup_date", "cannot be in the past")
			}
			pickup = parsed
		}
	}

	return pickup, verr.OrNil()
}

func (s *Service) replayed(existing *models.LogisticsSubscription, session *models.Session) *Outcome {
	return &Outcome{
		State:        models.StateConfirmed.String(),
		Subscription: existing,
		Receipt:      buildReceipt(existing, session, payment.MethodLabel(existing.PaymentMethod), existing.CreatedAt),
		Replayed:     true,
	}
}

func (s *Service) publish(ctx context.Context, userID string, receipt models.Receipt) {
	if s.publisher == nil {
		return
	}
	event := events.Confirmation{Type: events.LogisticsActivated, UserID: userID, Receipt: receipt, OccurredAt: s.now()}
	if err := s.publisher.Publish(ctx, events.LogisticsActivated, event); err != nil {
		zap.L().Warn("failed to publish confirmation event", zap.String("routing_key", events.LogisticsActivated), zap.Error(err))
	}
}

func (s *Service) ListMine(ctx context.Context, userID string, page, limit int) ([]models.LogisticsSubscription, int, error) {
	subs, total, err := s.repo.ListByUser(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("service.ListMine: %w", err)
	}
	return subs, total, nil
}

func buildReceipt(sub *models.LogisticsSubscription, customer *models.Session, paymentLabel string, issuedAt time.Time) models.Receipt {
	return models.Receipt{
		Kind:          "logistics",
		Reference:     sub.ID,
		CustomerName:  customer.DisplayName(),
		CustomerEmail: customer.Email,
		CustomerPhone: customer.Phone,
		Item:          sub.PlanName,
		Details: []models.ReceiptLine{
			{Label: "Farm address", Value: sub.FarmAddress},
			{Label: "Crop", Value: sub.CropType},
			{Label: "Estimated weight", Value: sub.EstimatedWeight.String() + " MT"},
			{Label: "First pickup", Value: sub.PickupDate.Format(models.DateLayout)},
			{Label: "Billing", Value: "Monthly"},
			{Label: "Payment reference", Value: sub.PaymentReference},
		},
		Discount:      decimal.Zero,
		TotalAmount:   sub.MonthlyAmount,
		PaymentMethod: paymentLabel,
		IssuedAt:      issuedAt,
	}
}

// ------------------- HTTP Handler -------------------

// StateHeader carries the workflow state on every subscribe answer.
const StateHeader = "X-Subscription-State"

type Handler struct {
	svc ServiceInterface
}

func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

// ListPlans handles GET /logistics/plans.
func (h *Handler) ListPlans(c echo.Context) error {
	return utils.RespondWithJSON(c, http.StatusOK, map[string]interface{}{"plans": h.svc.ListPlans()})
}

// SelectPlan handles POST /logistics/plans/:planId/select.
func (h *Handler) SelectPlan(c echo.Context) error {
	sel, err := h.svc.Select(c.Request().Context(), c.Param("planId"))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusCreated, sel)
}

// Subscribe handles POST /logistics/plans/:planId/subscribe. Anonymous requests
// reach the service so it can answer with the sign-in return path.
func (h *Handler) Subscribe(c echo.Context) error {
	var req models.SubscribeRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}

	outcome, err := h.svc.Subscribe(c.Request().Context(), utils.SessionFromContext(c), c.Param("planId"), req)
	c.Response().Header().Set(StateHeader, models.StateAfter(err).String())
	if err != nil {
		return utils.HandleServiceError(c, err)
	}

	status := http.StatusCreated
	if outcome.Replayed {
		status = http.StatusOK
	}
	return utils.RespondWithJSON(c, status, outcome)
}

// ListMySubscriptions handles GET /logistics/subscriptions.
func (h *Handler) ListMySubscriptions(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	page, limit := utils.GetPageLimit(c)
	subs, total, err := h.svc.ListMine(c.Request().Context(), userID, page, limit)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]interface{}{"subscriptions": subs, "total": total})
}
