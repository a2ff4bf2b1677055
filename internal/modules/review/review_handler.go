package review

import (
	"net/http"

	"cold-storage-marketplace/internal/models"
	"cold-storage-marketplace/pkg/utils"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc ServiceInterface
}

func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

// ListReviews handles GET /warehouses/:id/reviews
func (h *Handler) ListReviews(c echo.Context) error {
	warehouseID, ok := utils.ParseInt64Param(c, "id")
	if !ok {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid warehouse ID")
	}

	reviews, err := h.svc.List(c.Request().Context(), warehouseID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusOK, map[string]interface{}{"reviews": reviews, "total": len(reviews)})
}

// CreateReview handles POST /warehouses/:id/reviews
func (h *Handler) CreateReview(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}
	warehouseID, ok := utils.ParseInt64Param(c, "id")
	if !ok {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid warehouse ID")
	}

	var req models.CreateReviewRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}

	r, err := h.svc.Create(c.Request().Context(), userID, warehouseID, req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	return utils.RespondWithJSON(c, http.StatusCreated, r)
}
