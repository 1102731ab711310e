package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nav-in27/timetable-generator/internal/models"
	"github.com/nav-in27/timetable-generator/internal/service"
	appErrors "github.com/nav-in27/timetable-generator/pkg/errors"
	"github.com/nav-in27/timetable-generator/pkg/response"
)

// SubstitutionHandler wires substitution services to HTTP routes.
type SubstitutionHandler struct {
	substitutions *service.SubstitutionService
}

// NewSubstitutionHandler constructs a new SubstitutionHandler.
func NewSubstitutionHandler(substitutions *service.SubstitutionService) *SubstitutionHandler {
	return &SubstitutionHandler{substitutions: substitutions}
}

// ReportAbsence godoc
// @Summary Report a teacher absence
// @Tags Substitutions
// @Accept json
// @Produce json
// @Param payload body service.ReportAbsenceRequest true "Absence payload"
// @Success 201 {object} response.Envelope
// @Router /substitutions/absences [post]
func (h *SubstitutionHandler) ReportAbsence(c *gin.Context) {
	var req service.ReportAbsenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid absence payload"))
		return
	}
	absence, affected, err := h.substitutions.ReportAbsence(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, gin.H{"absence": absence, "affected_sessions": affected}, nil)
}

// Match godoc
// @Summary Rank and store a substitute for one session
// @Tags Substitutions
// @Accept json
// @Produce json
// @Param payload body service.MatchSubstituteRequest true "Match payload"
// @Success 201 {object} response.Envelope
// @Router /substitutions/match [post]
func (h *SubstitutionHandler) Match(c *gin.Context) {
	var req service.MatchSubstituteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid match payload"))
		return
	}
	result, err := h.substitutions.MatchSubstitute(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, result, nil)
}

// AutoMatch godoc
// @Summary Match substitutes for every session hit by an absence
// @Tags Substitutions
// @Produce json
// @Param id path string true "Absence ID"
// @Success 200 {object} response.Envelope
// @Router /substitutions/absences/{id}/auto-match [post]
func (h *SubstitutionHandler) AutoMatch(c *gin.Context) {
	results, err := h.substitutions.AutoSubstituteForAbsence(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// List godoc
// @Summary List substitutions
// @Tags Substitutions
// @Produce json
// @Param teacher_id query string false "Filter by original teacher"
// @Param status query string false "Filter by status"
// @Param from query string false "Date from (YYYY-MM-DD)"
// @Param to query string false "Date to (YYYY-MM-DD)"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /substitutions [get]
func (h *SubstitutionHandler) List(c *gin.Context) {
	filter := models.SubstitutionFilter{
		TeacherID: c.Query("teacher_id"),
		Status:    c.Query("status"),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	if from := c.Query("from"); from != "" {
		if ts, err := time.Parse("2006-01-02", from); err == nil {
			filter.DateFrom = &ts
		}
	}
	if to := c.Query("to"); to != "" {
		if ts, err := time.Parse("2006-01-02", to); err == nil {
			filter.DateTo = &ts
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	subs, pagination, err := h.substitutions.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subs, pagination)
}

type updateSubstitutionStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus godoc
// @Summary Advance a substitution's lifecycle
// @Tags Substitutions
// @Accept json
// @Produce json
// @Param id path string true "Substitution ID"
// @Param payload body updateSubstitutionStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /substitutions/{id}/status [put]
func (h *SubstitutionHandler) UpdateStatus(c *gin.Context) {
	var req updateSubstitutionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	sub, err := h.substitutions.UpdateStatus(c.Request.Context(), c.Param("id"), models.SubstitutionStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}
