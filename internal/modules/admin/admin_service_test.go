package admin

import (
	"context"
	"encoding/csv"
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
	"cold-storage-marketplace/pkg/utils"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// fakeStore backs every collaborator of the service with in-memory slices.
type fakeStore struct {
	mu         sync.Mutex
	users      int
	warehouses []models.Warehouse
	bookings   []models.Booking
	ratings    []float64
	failing    map[string]bool
	deleted    []string
	reviews    []models.Review
}

func (f *fakeStore) fail(op string) error {
	if f.failing[op] {
		return errors.New(op + " unavailable")
	}
	return nil
}

// Stats repository.

func (f *fakeStore) CountUsers(context.Context) (int, error) {
	return f.users, f.fail("users")
}

func (f *fakeStore) CountWarehouses(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.warehouses), f.fail("warehouses")
}

func (f *fakeStore) CountBookings(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("bookings"); err != nil {
		return 0, err
	}
	return len(f.bookings), nil
}

func (f *fakeStore) CountReviews(context.Context) (int, error) {
	return len(f.ratings), f.fail("reviews")
}

func (f *fakeStore) ListRatings(context.Context) ([]float64, error) {
	if err := f.fail("ratings"); err != nil {
		return nil, err
	}
	return f.ratings, nil
}

func (f *fakeStore) CountBookingsSince(_ context.Context, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("recent"); err != nil {
		return 0, err
	}
	n := 0
	for _, b := range f.bookings {
		if !b.BookingDate.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CountOpenBookingsForWarehouse(_ context.Context, id int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.bookings {
		if b.WarehouseID == id && b.Status.IsOpen() {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CountOpenBookingsForUser(_ context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.bookings {
		if b.UserID == userID && b.Status.IsOpen() {
			n++
		}
	}
	return n, nil
}

// Warehouse store.

func (f *fakeStore) ListAll(context.Context) ([]models.Warehouse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Warehouse{}, f.warehouses...), nil
}

func (f *fakeStore) FindByID(_ context.Context, id int64) (*models.Warehouse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.warehouses {
		if w.ID == id {
			w := w
			return &w, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeStore) Create(_ context.Context, req models.CreateWarehouseRequest) (*models.Warehouse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := models.Warehouse{ID: int64(len(f.warehouses) + 1), Name: req.Name, Location: req.Location, Price: req.Price, Available: true}
	f.warehouses = append(f.warehouses, w)
	return &w, nil
}

func (f *fakeStore) Update(_ context.Context, id int64, req models.UpdateWarehouseRequest) (*models.Warehouse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.warehouses {
		if f.warehouses[i].ID == id {
			if req.Price != nil {
				f.warehouses[i].Price = *req.Price
			}
			w := f.warehouses[i]
			return &w, nil
		}
	}
	return nil, models.ErrNotFound
}

// Delete serves both the warehouse store (numeric id) and the booking store.
func (f *fakeStore) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, w := range f.warehouses {
		if w.ID == id {
			f.warehouses = append(f.warehouses[:i], f.warehouses[i+1:]...)
			return nil
		}
	}
	return models.ErrNotFound
}

type bookingStore struct{ *fakeStore }

func (b bookingStore) List(_ context.Context, filter models.BookingListFilter, page, limit int) ([]models.Booking, int, error) {
	if err := b.fail("list"); err != nil {
		return nil, 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	matched := []models.Booking{}
	for _, bk := range b.bookings {
		search := strings.ToLower(filter.Search)
		if (filter.UserID == "" || bk.UserID == filter.UserID) &&
			(filter.Status == "" || bk.Status == filter.Status) &&
			(search == "" || strings.Contains(strings.ToLower(bk.ID+" "+bk.UserEmail+" "+bk.WarehouseName), search)) {
			matched = append(matched, bk)
		}
	}
	start := (page - 1) * limit
	if start >= len(matched) {
		return []models.Booking{}, len(matched), nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], len(matched), nil
}

func (b bookingStore) Delete(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, bk := range b.bookings {
		if bk.ID == id {
			b.bookings = append(b.bookings[:i], b.bookings[i+1:]...)
			return nil
		}
	}
	return models.ErrNotFound
}

func (b bookingStore) ChangeStatus(_ context.Context, id string, to models.BookingStatus) (*models.Booking, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.bookings {
		if b.bookings[i].ID == id {
			if !b.bookings[i].Status.CanTransitionTo(to) {
				return nil, models.ErrInvalidStatusTransition
			}
			b.bookings[i].Status = to
			bk := b.bookings[i]
			return &bk, nil
		}
	}
	return nil, models.ErrNotFound
}

type userManager struct{ *fakeStore }

func (u userManager) AdminListUsers(context.Context, int, int) ([]models.UserProfile, int, error) {
	return []models.UserProfile{}, u.users, nil
}

func (u userManager) AdminUpdateUserRole(_ context.Context, id, role string) (*models.UserProfile, error) {
	return &models.UserProfile{ID: id, Role: role}, nil
}

func (u userManager) AdminDeleteUser(_ context.Context, id string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.deleted = append(u.deleted, id)
	return nil
}

type reviewManager struct{ *fakeStore }

func (r reviewManager) ListAll(_ context.Context, search string, _, _ int) ([]models.Review, int, error) {
	search = strings.ToLower(search)
	matched := []models.Review{}
	for _, rv := range r.reviews {
		if search == "" || strings.Contains(strings.ToLower(rv.Comment+" "+rv.WarehouseName), search) {
			matched = append(matched, rv)
		}
	}
	return matched, len(matched), nil
}

func (reviewManager) Delete(context.Context, int64) error { return nil }

func booking(id, userID string, warehouseID int64, status models.BookingStatus, age time.Duration) models.Booking {
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	return models.Booking{
		ID:            id,
		UserID:        userID,
		WarehouseID:   warehouseID,
		WarehouseName: "Frost Hub",
		UserEmail:     userID + "@example.com",
		StartDate:     start,
		EndDate:       start.AddDate(0, 0, 7),
		Quantity:      decimal.NewFromInt(10),
		Duration:      7,
		TotalAmount:   decimal.NewFromInt(2100),
		PaymentMethod: "upi",
		Status:        status,
		BookingDate:   now.Add(-age),
	}
}

func newTestService(store *fakeStore) *Service {
	if store.failing == nil {
		store.failing = map[string]bool{}
	}
	svc := NewService(store, store, bookingStore{store}, bookingStore{store}, userManager{store}, reviewManager{store}, inflight.NewMemoryGuard())
	svc.now = func() time.Time { return now }
	return svc
}

func fiveBookings() []models.Booking {
	day := 24 * time.Hour
	return []models.Booking{
		booking("b1", "u1", 1, models.BookingConfirmed, 1*day),
		booking("b2", "u1", 1, models.BookingCompleted, 3*day),
		booking("b3", "u2", 2, models.BookingConfirmed, 6*day),
		booking("b4", "u2", 2, models.BookingCompleted, 8*day),
		booking("b5", "u3", 1, models.BookingCancelled, 30*day),
	}
}

func TestComputeStats(t *testing.T) {
	store := &fakeStore{
		users:      4,
		warehouses: []models.Warehouse{{ID: 1}, {ID: 2}},
		bookings:   fiveBookings(),
		ratings:    []float64{5, 4, 4},
	}
	svc := newTestService(store)

	stats := svc.ComputeStats(context.Background())

	assert.Equal(t, 5, stats.TotalBookings)
	assert.Equal(t, 3, stats.RecentBookings)
	assert.Equal(t, 4, stats.TotalUsers)
	assert.Equal(t, 2, stats.TotalWarehouses)
	assert.Equal(t, 3, stats.TotalReviews)
	assert.Equal(t, 4.3, stats.AverageRating)
	assert.Empty(t, stats.Failed)
}

func TestComputeStatsToleratesFailures(t *testing.T) {
	store := &fakeStore{
		users:    4,
		bookings: fiveBookings(),
		ratings:  []float64{5},
		failing:  map[string]bool{"bookings": true, "ratings": true},
	}
	svc := newTestService(store)

	stats := svc.ComputeStats(context.Background())

	assert.Equal(t, 0, stats.TotalBookings)
	assert.Equal(t, 0.0, stats.AverageRating)
	assert.Equal(t, 3, stats.RecentBookings)
	assert.Equal(t, 4, stats.TotalUsers)
	assert.Equal(t, []string{StatBookings, StatAverageRating}, stats.Failed)
}

func TestComputeStatsWithoutReviews(t *testing.T) {
	svc := newTestService(&fakeStore{})
	stats := svc.ComputeStats(context.Background())
	assert.Equal(t, 0.0, stats.AverageRating)
	assert.Empty(t, stats.Failed)
}

func TestCreateWarehouseValidates(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store)

	_, err := svc.CreateWarehouse(context.Background(), "admin-1", models.CreateWarehouseRequest{
		Name: "Frost Hub", Location: "Nashik", Price: decimal.NewFromInt(-1),
	})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must be 0 or greater", verr.Fields["price"])
	assert.Empty(t, store.warehouses)

	w, err := svc.CreateWarehouse(context.Background(), "admin-1", models.CreateWarehouseRequest{
		Name: "Frost Hub", Location: "Nashik", Price: decimal.NewFromInt(30),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), w.ID)
}

func TestWarehouseEditHeldInFlight(t *testing.T) {
	store := &fakeStore{warehouses: []models.Warehouse{{ID: 1}}}
	guard := inflight.NewMemoryGuard()
	svc := newTestService(store)
	svc.guard = guard

	release, err := guard.Acquire(context.Background(), "admin:warehouse:1")
	require.NoError(t, err)
	defer release()

	price := decimal.NewFromInt(40)
	_, err = svc.UpdateWarehouse(context.Background(), 1, models.UpdateWarehouseRequest{Price: &price})
	assert.ErrorIs(t, err, models.ErrSubmissionInFlight)
}

func TestDeleteWarehouseWithOpenBookings(t *testing.T) {
	store := &fakeStore{
		warehouses: []models.Warehouse{{ID: 1}, {ID: 3}},
		bookings:   fiveBookings(),
	}
	svc := newTestService(store)

	assert.ErrorIs(t, svc.DeleteWarehouse(context.Background(), 1), models.ErrHasOpenBookings)
	require.NoError(t, svc.DeleteWarehouse(context.Background(), 3))
	assert.Len(t, store.warehouses, 1)
}

func TestDeleteUser(t *testing.T) {
	store := &fakeStore{bookings: fiveBookings()}
	svc := newTestService(store)

	assert.ErrorIs(t, svc.DeleteUser(context.Background(), "admin-1", "admin-1"), models.ErrForbidden)
	assert.ErrorIs(t, svc.DeleteUser(context.Background(), "admin-1", "u1"), models.ErrHasOpenBookings)
	require.NoError(t, svc.DeleteUser(context.Background(), "admin-1", "u3"))
	assert.Equal(t, []string{"u3"}, store.deleted)
}

func TestAdminCannotDemoteSelf(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.UpdateUserRole(context.Background(), "admin-1", "admin-1", models.RoleUser)
	assert.ErrorIs(t, err, models.ErrForbidden)

	u, err := svc.UpdateUserRole(context.Background(), "admin-1", "u2", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
}

func TestUpdateBookingStatus(t *testing.T) {
	store := &fakeStore{bookings: fiveBookings()}
	svc := newTestService(store)

	b, err := svc.UpdateBookingStatus(context.Background(), "b1", models.BookingCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCompleted, b.Status)

	_, err = svc.UpdateBookingStatus(context.Background(), "b5", models.BookingConfirmed)
	assert.ErrorIs(t, err, models.ErrInvalidStatusTransition)

	_, err = svc.UpdateBookingStatus(context.Background(), "b1", "archived")
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestListBookingsRejectsUnknownStatus(t *testing.T) {
	svc := newTestService(&fakeStore{})
	_, _, err := svc.ListBookings(context.Background(), models.BookingQuery{Status: "archived"}, 1, 20)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "status")
}

func TestListBookingsForOneUser(t *testing.T) {
	svc := newTestService(&fakeStore{bookings: fiveBookings()})

	bookings, total, err := svc.ListBookings(context.Background(), models.BookingQuery{UserID: "u2"}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, b := range bookings {
		assert.Equal(t, "u2", b.UserID)
		assert.Equal(t, "Frost Hub", b.WarehouseName)
	}

	bookings, _, err = svc.ListBookings(context.Background(), models.BookingQuery{Search: "U3@EXAMPLE"}, 1, 20)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "b5", bookings[0].ID)
}

func TestListReviewsSearch(t *testing.T) {
	store := &fakeStore{reviews: []models.Review{
		{ID: 1, Comment: "Kept our onions fresh", WarehouseName: "Frost Hub"},
		{ID: 2, Comment: "Late pickup", WarehouseName: "Belur Cold Hub"},
	}}
	h := NewHandler(newTestService(store))
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/admin/reviews?q=belur", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.ListReviews(e.NewContext(req, rec)))

	var body struct {
		Reviews []models.Review `json:"reviews"`
		Total   int             `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Reviews, 1)
	assert.Equal(t, int64(2), body.Reviews[0].ID)

	_, _, err := newTestService(store).ListReviews(context.Background(), strings.Repeat("x", 101), 1, 20)
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestExportBookingsCSV(t *testing.T) {
	store := &fakeStore{bookings: fiveBookings()}
	for i := 0; i < exportPageSize; i++ {
		store.bookings = append(store.bookings, booking("bulk", "u9", 2, models.BookingCompleted, 40*24*time.Hour))
	}
	svc := newTestService(store)

	data, err := svc.ExportBookingsCSV(context.Background(), models.BookingQuery{})
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, exportPageSize+6)
	assert.Equal(t, "booking_id", records[0][0])
	assert.Equal(t, "b1", records[1][0])
	assert.Equal(t, "2100.00", records[1][8])

	data, err = svc.ExportBookingsCSV(context.Background(), models.BookingQuery{Status: "confirmed"})
	require.NoError(t, err)
	records, err = csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestDeleteWarehouseHandler(t *testing.T) {
	store := &fakeStore{warehouses: []models.Warehouse{{ID: 1}}, bookings: fiveBookings()}
	h := NewHandler(newTestService(store))
	e := echo.New()

	serve := func(id string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodDelete, "/admin/warehouses/"+id, nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.Set(utils.SessionContextKey, &models.Session{UserID: "admin-1", Role: models.RoleAdmin})
		c.SetParamNames("id")
		c.SetParamValues(id)
		require.NoError(t, h.DeleteWarehouse(c))
		return rec
	}

	assert.Equal(t, http.StatusBadRequest, serve("abc").Code)
	assert.Equal(t, http.StatusConflict, serve("1").Code)
	assert.Equal(t, http.StatusNotFound, serve("7").Code)
}

func TestListBookingsHandlerDegradesOnFailure(t *testing.T) {
	store := &fakeStore{bookings: fiveBookings(), failing: map[string]bool{"list": true}}
	h := NewHandler(newTestService(store))
	e := echo.New()

	list := func(query string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/admin/bookings"+query, nil)
		rec := httptest.NewRecorder()
		require.NoError(t, h.ListBookings(e.NewContext(req, rec)))
		return rec
	}

	rec := list("")
	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Bookings []models.Booking `json:"bookings"`
		Total    int              `json:"total"`
		Error    string           `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotNil(t, body.Bookings)
	assert.Empty(t, body.Bookings)
	assert.NotEmpty(t, body.Error)

	assert.Equal(t, http.StatusUnprocessableEntity, list("?status=archived").Code)
}
