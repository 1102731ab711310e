package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nav-in27/timetable-generator/internal/models"
	"github.com/nav-in27/timetable-generator/internal/service"
	appErrors "github.com/nav-in27/timetable-generator/pkg/errors"
	"github.com/nav-in27/timetable-generator/pkg/response"
)

// ElectiveBasketHandler wires elective basket services to HTTP routes.
type ElectiveBasketHandler struct {
	baskets *service.ElectiveBasketService
}

// NewElectiveBasketHandler constructs a new ElectiveBasketHandler.
func NewElectiveBasketHandler(baskets *service.ElectiveBasketService) *ElectiveBasketHandler {
	return &ElectiveBasketHandler{baskets: baskets}
}

// List godoc
// @Summary List elective baskets
// @Tags Electives
// @Produce json
// @Param search query string false "Search by name"
// @Param semester query int false "Filter by semester number"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /baskets [get]
func (h *ElectiveBasketHandler) List(c *gin.Context) {
	filter := models.ElectiveBasketFilter{
		Search:    strings.TrimSpace(c.Query("search")),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	if semester := c.Query("semester"); semester != "" {
		if v, err := strconv.Atoi(semester); err == nil {
			filter.SemesterNumber = &v
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	baskets, pagination, err := h.baskets.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, baskets, pagination)
}

// Get godoc
// @Summary Get elective basket detail
// @Tags Electives
// @Produce json
// @Param id path string true "Basket ID"
// @Success 200 {object} response.Envelope
// @Router /baskets/{id} [get]
func (h *ElectiveBasketHandler) Get(c *gin.Context) {
	basket, err := h.baskets.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, basket, nil)
}

// Members godoc
// @Summary List subjects grouped in a basket
// @Tags Electives
// @Produce json
// @Param id path string true "Basket ID"
// @Success 200 {object} response.Envelope
// @Router /baskets/{id}/subjects [get]
func (h *ElectiveBasketHandler) Members(c *gin.Context) {
	subjects, err := h.baskets.Members(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// Create godoc
// @Summary Create elective basket
// @Tags Electives
// @Accept json
// @Produce json
// @Param payload body service.ElectiveBasketRequest true "Basket payload"
// @Success 201 {object} response.Envelope
// @Router /baskets [post]
func (h *ElectiveBasketHandler) Create(c *gin.Context) {
	var req service.ElectiveBasketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid basket payload"))
		return
	}
	basket, err := h.baskets.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, basket)
}

// Update godoc
// @Summary Update elective basket
// @Tags Electives
// @Accept json
// @Produce json
// @Param id path string true "Basket ID"
// @Param payload body service.ElectiveBasketRequest true "Basket payload"
// @Success 200 {object} response.Envelope
// @Router /baskets/{id} [put]
func (h *ElectiveBasketHandler) Update(c *gin.Context) {
	var req service.ElectiveBasketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid basket payload"))
		return
	}
	basket, err := h.baskets.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, basket, nil)
}

// Delete godoc
// @Summary Delete elective basket
// @Tags Electives
// @Param id path string true "Basket ID"
// @Success 204
// @Router /baskets/{id} [delete]
func (h *ElectiveBasketHandler) Delete(c *gin.Context) {
	if err := h.baskets.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
