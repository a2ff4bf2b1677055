package booking

import (
	"net/http"

	"cold-storage-marketplace/internal/models"
	"cold-storage-marketplace/pkg/utils"

	"github.com/labstack/echo/v4"
)

// StateHeader carries the workflow state on every submission answer.
const StateHeader = "X-Booking-State"

type Handler struct {
	svc ServiceInterface
}

func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

// CreateBooking handles POST /warehouses/:id/bookings. The route accepts anonymous
// requests so the service can answer with the sign-in return path.
func (h *Handler) CreateBooking(c echo.Context) error {
	warehouseID, ok := utils.ParseInt64Param(c, "id")
	if !ok {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid warehouse ID")
	}

	var req models.CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}

	outcome, err := h.svc.Submit(c.Request().Context(), utils.SessionFromContext(c), warehouseID, req)
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

func (h *Handler) ListMyBookings(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	var query models.BookingQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &query); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters")
	}

	page, limit := utils.GetPageLimit(c)
	bookings, total, err := h.svc.ListMine(c.Request().Context(), userID, query, page, limit)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]interface{}{"bookings": bookings, "total": total})
}

func (h *Handler) GetBooking(c echo.Context) error {
	if _, _, err := utils.ExtractUserInfo(c); err != nil {
		return err
	}

	b, err := h.svc.Get(c.Request().Context(), utils.SessionFromContext(c), c.Param("id"))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, b)
}

// GetReceipt serves the printable HTML receipt.
func (h *Handler) GetReceipt(c echo.Context) error {
	if _, _, err := utils.ExtractUserInfo(c); err != nil {
		return err
	}

	html, err := h.svc.ReceiptHTML(c.Request().Context(), utils.SessionFromContext(c), c.Param("id"))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return c.HTML(http.StatusOK, html)
}

func (h *Handler) CancelBooking(c echo.Context) error {
	if _, _, err := utils.ExtractUserInfo(c); err != nil {
		return err
	}

	b, err := h.svc.Cancel(c.Request().Context(), utils.SessionFromContext(c), c.Param("id"))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, b)
}
