package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nav-in27/timetable-generator/internal/service"
	appErrors "github.com/nav-in27/timetable-generator/pkg/errors"
	"github.com/nav-in27/timetable-generator/pkg/response"
)

// GenerationHandler wires the timetable generator to HTTP routes.
type GenerationHandler struct {
	generator *service.GenerationService
}

// NewGenerationHandler constructs a new GenerationHandler.
func NewGenerationHandler(generator *service.GenerationService) *GenerationHandler {
	return &GenerationHandler{generator: generator}
}

// Generate godoc
// @Summary Run timetable generation
// @Tags Generation
// @Accept json
// @Produce json
// @Param payload body service.GenerateRequest true "Generation options"
// @Success 200 {object} response.Envelope
// @Router /generation/run [post]
func (h *GenerationHandler) Generate(c *gin.Context) {
	var req service.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generation payload"))
		return
	}
	outcome, err := h.generator.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, nil)
}

// History godoc
// @Summary List recent generation runs
// @Tags Generation
// @Produce json
// @Param limit query int false "Maximum runs to return"
// @Success 200 {object} response.Envelope
// @Router /generation/history [get]
func (h *GenerationHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	history, err := h.generator.History(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}
