package admin

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"cold-storage-marketplace/internal/models"
	"cold-storage-marketplace/pkg/utils"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Handler serves the /admin routes. The router gates them with AdminRequired,
// so nothing here checks roles.
type Handler struct {
	svc ServiceInterface
}

func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

// respondList answers a back-office listing. A failed fetch still returns an
// empty list with error set, so the page can tell it apart from no records.
func respondList(c echo.Context, key string, items interface{}, total int, err error) error {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		return utils.HandleServiceError(c, err)
	}
	body := map[string]interface{}{key: items, "total": total}
	if err != nil {
		zap.L().Error("admin listing failed", zap.String("list", key), zap.Error(err))
		body[key] = []struct{}{}
		body["total"] = 0
		body["error"] = "Could not load " + key + ", please try again"
	}
	return utils.RespondWithJSON(c, http.StatusOK, body)
}

func bindBookingQuery(c echo.Context) (models.BookingQuery, error) {
	var query models.BookingQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &query); err != nil {
		return query, echo.NewHTTPError(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid query parameters"})
	}
	return query, nil
}

func (h *Handler) GetStats(c echo.Context) error {
	return utils.RespondWithJSON(c, http.StatusOK, h.svc.ComputeStats(c.Request().Context()))
}

// --- Warehouse Management ---

func (h *Handler) ListWarehouses(c echo.Context) error {
	warehouses, err := h.svc.ListWarehouses(c.Request().Context())
	return respondList(c, "warehouses", warehouses, len(warehouses), err)
}

func (h *Handler) CreateWarehouse(c echo.Context) error {
	adminID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	var req models.CreateWarehouseRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}

	w, err := h.svc.CreateWarehouse(c.Request().Context(), adminID, req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusCreated, w)
}

func (h *Handler) UpdateWarehouse(c echo.Context) error {
	id, ok := utils.ParseInt64Param(c, "id")
	if !ok {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid warehouse ID")
	}

	var req models.UpdateWarehouseRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}

	w, err := h.svc.UpdateWarehouse(c.Request().Context(), id, req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, w)
}

func (h *Handler) DeleteWarehouse(c echo.Context) error {
	id, ok := utils.ParseInt64Param(c, "id")
	if !ok {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid warehouse ID")
	}
	if err := h.svc.DeleteWarehouse(c.Request().Context(), id); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// --- Booking Management ---

func (h *Handler) ListBookings(c echo.Context) error {
	query, err := bindBookingQuery(c)
	if err != nil {
		return err
	}
	page, limit := utils.GetPageLimit(c)
	bookings, total, err := h.svc.ListBookings(c.Request().Context(), query, page, limit)
	return respondList(c, "bookings", bookings, total, err)
}

func (h *Handler) UpdateBookingStatus(c echo.Context) error {
	var req models.UpdateBookingStatusRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}

	b, err := h.svc.UpdateBookingStatus(c.Request().Context(), c.Param("id"), req.Status)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, b)
}

func (h *Handler) DeleteBooking(c echo.Context) error {
	if err := h.svc.DeleteBooking(c.Request().Context(), c.Param("id")); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ExportBookings handles GET /admin/bookings/export
func (h *Handler) ExportBookings(c echo.Context) error {
	query, err := bindBookingQuery(c)
	if err != nil {
		return err
	}
	data, err := h.svc.ExportBookingsCSV(c.Request().Context(), query)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	filename := fmt.Sprintf("bookings-%s.csv", time.Now().UTC().Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", data)
}

// --- User Management ---

func (h *Handler) ListUsers(c echo.Context) error {
	page, limit := utils.GetPageLimit(c)
	users, total, err := h.svc.ListUsers(c.Request().Context(), page, limit)
	return respondList(c, "users", users, total, err)
}

func (h *Handler) UpdateUserRole(c echo.Context) error {
	adminID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	var req models.UpdateRoleRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}

	u, err := h.svc.UpdateUserRole(c.Request().Context(), adminID, c.Param("id"), req.Role)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, u)
}

func (h *Handler) DeleteUser(c echo.Context) error {
	adminID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteUser(c.Request().Context(), adminID, c.Param("id")); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// --- Review Moderation ---

func (h *Handler) ListReviews(c echo.Context) error {
	page, limit := utils.GetPageLimit(c)
	reviews, total, err := h.svc.ListReviews(c.Request().Context(), c.QueryParam("q"), page, limit)
	return respondList(c, "reviews", reviews, total, err)
}

func (h *Handler) DeleteReview(c echo.Context) error {
	id, ok := utils.ParseInt64Param(c, "id")
	if !ok {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid review ID")
	}
	if err := h.svc.DeleteReview(c.Request().Context(), id); err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
