package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/freedom_case_2/fire-router/internal/models"
	"github.com/freedom_case_2/fire-router/internal/service"
)

// @Summary List offices
// @Tags directory
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/offices [get]
func (h *Handler) OfficesList(c *gin.Context) {
	items, err := h.Store.ListOffices(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list offices", err.Error())
		return
	}
	if items == nil {
		items = []models.Office{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// @Summary List managers
// @Tags directory
// @Produce json
// @Param office_id query string false "Office ID"
// @Param skill query string false "Skill"
// @Success 200 {object} map[string]any
// @Router /api/managers [get]
func (h *Handler) ManagersList(c *gin.Context) {
	office := strings.TrimSpace(c.Query("office_id"))
	skill := strings.ToUpper(strings.TrimSpace(c.Query("skill")))

	managers, err := h.Store.ListManagers(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list managers", err.Error())
		return
	}
	items := make([]*models.Manager, 0, len(managers))
	for _, m := range managers {
		if office != "" && m.OfficeID != office {
			continue
		}
		if skill != "" && !m.HasSkill(skill) {
			continue
		}
		items = append(items, m)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// @Summary List assignments
// @Tags assignments
// @Produce json
// @Param outcome query string false "Outcome"
// @Param office_id query string false "Office ID"
// @Param manager_id query string false "Manager ID"
// @Param limit query int false "Limit"
// @Param offset query int false "Offset"
// @Success 200 {object} map[string]any
// @Router /api/assignments [get]
func (h *Handler) AssignmentsList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	f := service.AssignmentFilter{
		Outcome:   strings.ToUpper(strings.TrimSpace(c.Query("outcome"))),
		OfficeID:  strings.TrimSpace(c.Query("office_id")),
		ManagerID: strings.TrimSpace(c.Query("manager_id")),
		Limit:     limit,
		Offset:    offset,
	}
	items, err := h.Store.ListAssignments(c.Request.Context(), f)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list assignments", err.Error())
		return
	}
	if items == nil {
		items = []models.AssignmentRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "limit": limit, "offset": offset})
}

// @Summary Assignment for a ticket
// @Tags assignments
// @Produce json
// @Param ticket_id path string true "Ticket ID"
// @Success 200 {object} models.AssignmentRecord
// @Failure 404 {object} map[string]any
// @Router /api/assignments/{ticket_id} [get]
func (h *Handler) AssignmentDetails(c *gin.Context) {
	rec, err := h.Store.GetAssignment(c.Request.Context(), c.Param("ticket_id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "Assignment not found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to get assignment", err.Error())
		return
	}
	c.JSON(http.StatusOK, rec)
}

// @Summary Routing quality stats
// @Tags assignments
// @Produce json
// @Success 200 {object} service.Stats
// @Router /api/stats [get]
func (h *Handler) Stats(c *gin.Context) {
	st, err := service.LoadStats(c.Request.Context(), h.Store)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to compute stats", err.Error())
		return
	}
	c.JSON(http.StatusOK, st)
}
