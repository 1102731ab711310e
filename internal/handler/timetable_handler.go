package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nav-in27/timetable-generator/internal/models"
	"github.com/nav-in27/timetable-generator/internal/service"
	"github.com/nav-in27/timetable-generator/pkg/response"
)

// TimetableHandler serves enriched timetable views.
type TimetableHandler struct {
	timetables *service.TimetableService
}

// NewTimetableHandler constructs a new TimetableHandler.
func NewTimetableHandler(timetables *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{timetables: timetables}
}

// Cohort godoc
// @Summary Cohort weekly timetable
// @Tags Timetables
// @Produce json
// @Param id path string true "Cohort ID"
// @Param date query string false "Apply substitutions for a date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /timetables/cohorts/{id} [get]
func (h *TimetableHandler) Cohort(c *gin.Context) {
	view, err := h.timetables.CohortView(c.Request.Context(), c.Param("id"), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Teacher godoc
// @Summary Teacher weekly timetable
// @Tags Timetables
// @Produce json
// @Param id path string true "Teacher ID"
// @Param date query string false "Apply substitutions for a date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /timetables/teachers/{id} [get]
func (h *TimetableHandler) Teacher(c *gin.Context) {
	view, err := h.timetables.TeacherView(c.Request.Context(), c.Param("id"), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Room godoc
// @Summary Room weekly occupancy
// @Tags Timetables
// @Produce json
// @Param id path string true "Room ID"
// @Param date query string false "Apply substitutions for a date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /timetables/rooms/{id} [get]
func (h *TimetableHandler) Room(c *gin.Context) {
	view, err := h.timetables.RoomView(c.Request.Context(), c.Param("id"), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Allocations godoc
// @Summary List stored allocations
// @Tags Timetables
// @Produce json
// @Param cohort_id query string false "Cohort filter"
// @Param teacher_id query string false "Teacher filter"
// @Param room_id query string false "Room filter"
// @Param subject_id query string false "Subject filter"
// @Param day query int false "Day filter (0 = Monday)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /timetables/allocations [get]
func (h *TimetableHandler) Allocations(c *gin.Context) {
	filter := models.AllocationFilter{
		CohortID:  c.Query("cohort_id"),
		TeacherID: c.Query("teacher_id"),
		RoomID:    c.Query("room_id"),
		SubjectID: c.Query("subject_id"),
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

	allocations, pagination, err := h.timetables.Allocations(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, allocations, pagination)
}

// Clear godoc
// @Summary Drop the stored timetable
// @Tags Timetables
// @Success 204
// @Router /timetables/allocations [delete]
func (h *TimetableHandler) Clear(c *gin.Context) {
	if err := h.timetables.Clear(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
