package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nav-in27/timetable-generator/internal/models"
	"github.com/nav-in27/timetable-generator/internal/service"
	appErrors "github.com/nav-in27/timetable-generator/pkg/errors"
	"github.com/nav-in27/timetable-generator/pkg/response"
)

// FixedSlotHandler wires fixed slot services to HTTP routes.
type FixedSlotHandler struct {
	slots *service.FixedSlotService
}

// NewFixedSlotHandler constructs a new FixedSlotHandler.
func NewFixedSlotHandler(slots *service.FixedSlotService) *FixedSlotHandler {
	return &FixedSlotHandler{slots: slots}
}

// List godoc
// @Summary List fixed slots
// @Tags Fixed Slots
// @Produce json
// @Param cohort_id query string false "Filter by cohort"
// @Param subject_id query string false "Filter by subject"
// @Param teacher_id query string false "Filter by teacher"
// @Param day query int false "Filter by day index"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /fixed-slots [get]
func (h *FixedSlotHandler) List(c *gin.Context) {
	filter := models.FixedSlotFilter{
		CohortID:  c.Query("cohort_id"),
		SubjectID: c.Query("subject_id"),
		TeacherID: c.Query("teacher_id"),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	if day := c.Query("day"); day != "" {
		if v, err := strconv.Atoi(day); err == nil {
			filter.Day = &v
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	slots, pagination, err := h.slots.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, pagination)
}

// Get godoc
// @Summary Get fixed slot detail
// @Tags Fixed Slots
// @Produce json
// @Param id path string true "Fixed slot ID"
// @Success 200 {object} response.Envelope
// @Router /fixed-slots/{id} [get]
func (h *FixedSlotHandler) Get(c *gin.Context) {
	slot, err := h.slots.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Validate godoc
// @Summary Dry-run a slot lock without storing it
// @Tags Fixed Slots
// @Accept json
// @Produce json
// @Param payload body service.FixedSlotRequest true "Lock payload"
// @Success 200 {object} response.Envelope
// @Router /fixed-slots/validate [post]
func (h *FixedSlotHandler) Validate(c *gin.Context) {
	var req service.FixedSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid fixed slot payload"))
		return
	}
	check, err := h.slots.Validate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, check, nil)
}

// Create godoc
// @Summary Create fixed slot
// @Tags Fixed Slots
// @Accept json
// @Produce json
// @Param payload body service.FixedSlotRequest true "Lock payload"
// @Success 201 {object} response.Envelope
// @Router /fixed-slots [post]
func (h *FixedSlotHandler) Create(c *gin.Context) {
	var req service.FixedSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid fixed slot payload"))
		return
	}
	slot, check, err := h.slots.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, gin.H{"slot": slot, "check": check}, nil)
}

// Delete godoc
// @Summary Delete fixed slot
// @Tags Fixed Slots
// @Param id path string true "Fixed slot ID"
// @Success 204
// @Router /fixed-slots/{id} [delete]
func (h *FixedSlotHandler) Delete(c *gin.Context) {
	if err := h.slots.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
