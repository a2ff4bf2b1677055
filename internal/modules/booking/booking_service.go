package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cold-storage-marketplace/internal/models"
	"cold-storage-marketplace/internal/modules/pricing"
	"cold-storage-marketplace/pkg/email"
	"cold-storage-marketplace/pkg/events"
	"cold-storage-marketplace/pkg/inflight"
	"cold-storage-marketplace/pkg/payment"
	"cold-storage-marketplace/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WarehouseReader is the slice of the catalog the workflow needs.
type WarehouseReader interface {
	FindByID(ctx context.Context, id int64) (*models.Warehouse, error)
}

type ServiceInterface interface {
	Submit(ctx context.Context, session *models.Session, warehouseID int64, req models.CreateBookingRequest) (*Outcome, error)
	ListMine(ctx context.Context, userID string, query models.BookingQuery, page, limit int) ([]models.Booking, int, error)
	Get(ctx context.Context, session *models.Session, id string) (*models.Booking, error)
	ReceiptHTML(ctx context.Context, session *models.Session, id string) (string, error)
	Cancel(ctx context.Context, session *models.Session, id string) (*models.Booking, error)
	ChangeStatus(ctx context.Context, id string, to models.BookingStatus) (*models.Booking, error)
}

// Outcome is the result of a successful submission. Replayed is set when the
// attempt had already been charged and the stored booking is returned.
type Outcome struct {
	State    string          `json:"state"`
	Booking  *models.Booking `json:"booking"`
	Receipt  models.Receipt  `json:"receipt"`
	Replayed bool            `json:"replayed"`
}

type Service struct {
	repo       RepositoryInterface
	warehouses WarehouseReader
	calculator *pricing.Calculator
	gateway    payment.Gateway
	guard      inflight.Guard
	publisher  events.Publisher
	templates  *email.TemplateManager
	location   *time.Location
	now        func() time.Time
}

func NewService(
	repo RepositoryInterface,
	warehouses WarehouseReader,
	calculator *pricing.Calculator,
	gateway payment.Gateway,
	guard inflight.Guard,
	publisher events.Publisher,
	templates *email.TemplateManager,
	location *time.Location,
) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{
		repo:       repo,
		warehouses: warehouses,
		calculator: calculator,
		gateway:    gateway,
		guard:      guard,
		publisher:  publisher,
		templates:  templates,
		location:   location,
		now:        time.Now,
	}
}

// IdempotencyKey scopes a payment to one user's booking attempt.
func IdempotencyKey(userID, attemptKey string) string {
	return "booking:" + userID + ":" + attemptKey
}

// Submit runs one booking attempt: validate the form, check the warehouse, take
// the in-flight hold, charge, then store the booking. No booking is stored
// unless the charge succeeded, and one charge never yields two bookings.
func (s *Service) Submit(ctx context.Context, session *models.Session, warehouseID int64, req models.CreateBookingRequest) (*Outcome, error) {
	if session == nil {
		return nil, &models.AuthRequiredError{ReturnPath: fmt.Sprintf("/warehouse/%d", warehouseID)}
	}

	startDate, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	warehouse, err := s.warehouses.FindByID(ctx, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("service.Submit.FindWarehouse: %w", err)
	}
	if !warehouse.Available {
		return nil, models.ErrWarehouseUnavailable
	}

	quote, err := s.calculator.Quote(warehouse.Price, req.Quantity, req.Duration)
	if err != nil {
		return nil, fmt.Errorf("service.Submit.Quote: %w", err)
	}
	if quote.Base.GreaterThan(models.MaxAmount) {
		verr := models.NewValidationError()
		verr.Add("quantity", "booking total is too large, reduce quantity or duration")
		return nil, verr
	}

	key := IdempotencyKey(session.UserID, req.AttemptKey)
	release, err := s.guard.Acquire(ctx, key)
	if err != nil {
		if errors.Is(err, inflight.ErrBusy) {
			return nil, models.ErrSubmissionInFlight
		}
		return nil, fmt.Errorf("service.Submit.Acquire: %w", err)
	}
	defer release()

	chargeReq := payment.NewChargeRequest(key, quote.Total, "Storage at "+warehouse.Name, req.Payment)
	charge, err := s.gateway.Charge(ctx, chargeReq)
	if err != nil {
		if !payment.IsRefused(err) {
			return nil, fmt.Errorf("service.Submit.Charge: %w", err)
		}
		zap.L().Info("booking payment failed",
			zap.String("user_id", session.UserID),
			zap.Int64("warehouse_id", warehouseID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", models.ErrPaymentFailed, err)
	}

	if existing, err := s.repo.FindByPaymentReference(ctx, charge.Reference); err == nil {
		if existing.WarehouseID != warehouseID {
			return nil, fmt.Errorf("%w: attempt key already used for another warehouse", models.ErrConflict)
		}
		return s.replayed(existing, session), nil
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("service.Submit.FindByPaymentReference: %w", err)
	}

	if !charge.Amount.Equal(quote.Total) {
		// The key was charged for a different form before the booking could be stored.
		return nil, fmt.Errorf("%w: attempt key already used for a different amount", models.ErrConflict)
	}

	b := &models.Booking{
		ID:                uuid.NewString(),
		UserID:            session.UserID,
		WarehouseID:       warehouse.ID,
		StartDate:         startDate,
		EndDate:           startDate.AddDate(0, 0, req.Duration),
		Quantity:          req.Quantity,
		Duration:          req.Duration,
		TotalAmount:       quote.Total,
		DiscountAmount:    quote.Discount,
		PaymentMethod:     req.Payment.Method,
		PaymentReference:  charge.Reference,
		Status:            models.BookingConfirmed,
		WarehouseName:     warehouse.Name,
		WarehouseLocation: warehouse.Location,
		UserEmail:         session.Email,
	}
	if err := s.repo.Create(ctx, b); err != nil {
		if errors.Is(err, models.ErrConflict) {
			if existing, findErr := s.repo.FindByPaymentReference(ctx, charge.Reference); findErr == nil {
				return s.replayed(existing, session), nil
			}
		}
		// The charge is remembered under key, so retrying the same attempt stores the booking.
		zap.L().Error("charged booking could not be stored",
			zap.String("payment_reference", charge.Reference),
			zap.String("idempotency_key", key),
			zap.Error(err),
		)
		return nil, fmt.Errorf("service.Submit.Create: %w", err)
	}

	receipt := buildReceipt(b, session, payment.MaskedInstrument(req.Payment), s.now())
	s.publish(ctx, events.BookingConfirmed, session.UserID, receipt)

	zap.L().Info("booking confirmed",
		zap.String("booking_id", b.ID),
		zap.String("user_id", b.UserID),
		zap.Int64("warehouse_id", b.WarehouseID),
		zap.String("total", b.TotalAmount.StringFixed(2)),
	)
	return &Outcome{State: models.StateConfirmed.String(), Booking: b, Receipt: receipt}, nil
}

// validate checks the form and returns the parsed start date. Every problem is
// reported at once, keyed by field.
func (s *Service) validate(req models.CreateBookingRequest) (time.Time, error) {
	verr := utils.GetValidator().Fields(req)
	if verr == nil {
		verr = models.NewValidationError()
	}

	if problem := models.QuantityProblem(req.Quantity); problem != "" {
		verr.Add("quantity", problem)
	}
	switch {
	case req.Duration <= 0:
		verr.Add("duration", "must be at least 1 day")
	case req.Duration > models.MaxDurationDays:
		verr.Add("duration", fmt.Sprintf("must be at most %d days", models.MaxDurationDays))
	}

	var startDate time.Time
	if _, failed := verr.Fields["start_date"]; !failed {
		parsed, err := time.ParseInLocation(models.DateLayout, req.StartDate, s.location)
		if err != nil {
			verr.Add("start_date", "must be a date formatted as YYYY-MM-DD")
		} else {
			now := s.now().In(s.location)
			today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
			if parsed.Before(today) {
				verr.Add("start_date", "cannot be in the past")
			}
			startDate = parsed
		}
	}

	return startDate, verr.OrNil()
}

func (s *Service) replayed(existing *models.Booking, session *models.Session) *Outcome {
	return &Outcome{
		State:    models.StateConfirmed.String(),
		Booking:  existing,
		Receipt:  buildReceipt(existing, session, payment.MethodLabel(existing.PaymentMethod), existing.BookingDate),
		Replayed: true,
	}
}

func (s *Service) publish(ctx context.Context, routingKey, userID string, receipt models.Receipt) {
	if s.publisher == nil {
		return
	}
	event := events.Confirmation{Type: routingKey, UserID: userID, Receipt: receipt, OccurredAt: s.now()}
	if err := s.publisher.Publish(ctx, routingKey, event); err != nil {
		zap.L().Warn("failed to publish confirmation event", zap.String("routing_key", routingKey), zap.Error(err))
	}
}

// ListMine lists the user's own bookings. A user_id in query is ignored.
func (s *Service) ListMine(ctx context.Context, userID string, query models.BookingQuery, page, limit int) ([]models.Booking, int, error) {
	filter, err := query.Filter()
	if err != nil {
		return nil, 0, err
	}
	filter.UserID = userID
	bookings, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("service.ListMine: %w", err)
	}
	return bookings, total, nil
}

// Get returns a booking visible to session: its owner or an admin.
func (s *Service) Get(ctx context.Context, session *models.Session, id string) (*models.Booking, error) {
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service.Get: %w", err)
	}
	if b.UserID != session.UserID && !session.IsAdmin() {
		return nil, models.ErrNotFound
	}
	return b, nil
}

func (s *Service) ReceiptHTML(ctx context.Context, session *models.Session, id string) (string, error) {
	b, err := s.Get(ctx, session, id)
	if err != nil {
		return "", err
	}

	customer := session
	if b.UserID != session.UserID {
		customer = nil
	}
	html, err := s.templates.GenerateReceiptHTML(buildReceipt(b, customer, payment.MethodLabel(b.PaymentMethod), b.BookingDate))
	if err != nil {
		return "", fmt.Errorf("service.ReceiptHTML: %w", err)
	}
	return html, nil
}

// Cancel lets the owner cancel a pending or confirmed booking.
func (s *Service) Cancel(ctx context.Context, session *models.Session, id string) (*models.Booking, error) {
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service.Cancel: %w", err)
	}
	if b.UserID != session.UserID {
		return nil, models.ErrNotFound
	}
	return s.transition(ctx, b, models.BookingCancelled)
}

// ChangeStatus moves any booking along an allowed edge. Callers enforce who may do so.
func (s *Service) ChangeStatus(ctx context.Context, id string, to models.BookingStatus) (*models.Booking, error) {
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service.ChangeStatus: %w", err)
	}
	return s.transition(ctx, b, to)
}

func (s *Service) transition(ctx context.Context, b *models.Booking, to models.BookingStatus) (*models.Booking, error) {
	if !b.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s to %s", models.ErrInvalidStatusTransition, b.Status, to)
	}
	updated, err := s.repo.UpdateStatus(ctx, b.ID, b.Status, to)
	if err != nil {
		return nil, fmt.Errorf("service.transition: %w", err)
	}
	zap.L().Info("booking status changed",
		zap.String("booking_id", b.ID),
		zap.String("from", string(b.Status)),
		zap.String("to", string(to)),
	)
	return updated, nil
}
