package catalog

import (
	"net/http"
	"strconv"

	"cold-storage-marketplace/internal/models"
	"cold-storage-marketplace/pkg/utils"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Handler struct {
	svc ServiceInterface
}

func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

// ListResponse always carries a warehouses array. Error is set when the catalog
// could not be loaded, which is distinct from an empty result.
type ListResponse struct {
	Warehouses []models.Warehouse `json:"warehouses"`
	Total      int                `json:"total"`
	Error      string             `json:"error,omitempty"`
}

// ListWarehouses handles GET /warehouses?q=&location=&available=true
func (h *Handler) ListWarehouses(c echo.Context) error {
	availableOnly, _ := strconv.ParseBool(c.QueryParam("available"))
	filter := models.WarehouseFilter{
		Text:          c.QueryParam("q"),
		Location:      c.QueryParam("location"),
		AvailableOnly: availableOnly,
	}

	warehouses, err := h.svc.List(c.Request().Context(), filter)
	resp := ListResponse{Warehouses: warehouses, Total: len(warehouses)}
	if err != nil {
		zap.L().Error("failed to load warehouse catalog", zap.Error(err))
		resp.Error = "Could not load warehouses, please try again"
	}
	return utils.RespondWithJSON(c, http.StatusOK, resp)
}

func (h *Handler) GetWarehouse(c echo.Context) error {
	id, ok := utils.ParseInt64Param(c, "id")
	if !ok {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid warehouse ID")
	}

	w, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, w)
}

// GetQuote handles GET /warehouses/:id/quote?quantity=&duration=
func (h *Handler) GetQuote(c echo.Context) error {
	id, ok := utils.ParseInt64Param(c, "id")
	if !ok {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid warehouse ID")
	}

	quantity, err := decimal.NewFromString(c.QueryParam("quantity"))
	if err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "quantity must be a number")
	}
	duration, err := strconv.Atoi(c.QueryParam("duration"))
	if err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "duration must be a whole number of days")
	}

	quote, err := h.svc.Quote(c.Request().Context(), id, quantity, duration)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, quote)
}
