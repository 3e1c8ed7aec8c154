package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/freedom_case_2/fire-router/internal/models"
	"github.com/freedom_case_2/fire-router/internal/service"
)

type OfficeRequest struct {
	ID        string   `json:"id" validate:"required"`
	Name      string   `json:"name" validate:"required"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`
}

type OfficeBatchRequest struct {
	Offices []OfficeRequest `json:"offices" validate:"required,min=1,dive"`
}

type ManagerRequest struct {
	ID       string   `json:"id" validate:"required"`
	FullName string   `json:"full_name" validate:"required"`
	Position string   `json:"position" validate:"required"`
	OfficeID string   `json:"office_id" validate:"required"`
	Skills   []string `json:"skills" validate:"dive,oneof=VIP KZ ENG"`
	Workload int      `json:"workload" validate:"min=0"`
}

type ManagerBatchRequest struct {
	Managers []ManagerRequest `json:"managers" validate:"required,min=1,dive"`
}

// @Summary Upsert offices
// @Tags admin
// @Accept json
// @Produce json
// @Param body body OfficeBatchRequest true "Offices"
// @Success 200 {object} map[string]int
// @Router /api/offices [post]
func (h *Handler) UpsertOffices(c *gin.Context) {
	var req OfficeBatchRequest
	if !h.bind(c, &req) {
		return
	}
	offices := make([]models.Office, 0, len(req.Offices))
	for _, o := range req.Offices {
		office := models.Office{ID: o.ID, Name: strings.TrimSpace(o.Name), Address: o.Address}
		if o.Latitude != nil && o.Longitude != nil {
			office.Coordinates = &models.Coordinates{Lat: *o.Latitude, Lon: *o.Longitude}
		}
		offices = append(offices, office)
	}
	if err := h.Store.UpsertOffices(c.Request.Context(), offices); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to upsert offices", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"upserted": len(offices)})
}

// @Summary Upsert managers
// @Description Workload sets the baseline; live workload of existing managers is kept.
// @Tags admin
// @Accept json
// @Produce json
// @Param body body ManagerBatchRequest true "Managers"
// @Success 200 {object} map[string]int
// @Router /api/managers [post]
func (h *Handler) UpsertManagers(c *gin.Context) {
	var req ManagerBatchRequest
	if !h.bind(c, &req) {
		return
	}
	managers := make([]*models.Manager, 0, len(req.Managers))
	for _, m := range req.Managers {
		managers = append(managers, models.NewManager(m.ID, m.FullName, strings.TrimSpace(m.Position), m.OfficeID, m.Skills, m.Workload))
	}
	if err := h.Store.UpsertManagers(c.Request.Context(), managers); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to upsert managers", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"upserted": len(managers)})
}

// @Summary Reset the round-robin counter
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/admin/counter/reset [post]
func (h *Handler) ResetCounter(c *gin.Context) {
	if err := h.Processing.ResetCounter(c.Request.Context()); err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to reset counter", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Restore baseline workloads
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]int64
// @Router /api/admin/workloads/restore [post]
func (h *Handler) RestoreWorkloads(c *gin.Context) {
	n, err := h.Processing.RestoreWorkloads(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to restore workloads", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"managers": n})
}

// @Summary Reset all routing state
// @Description Deletes assignments, restores baseline workloads and zeroes the counter.
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 409 {object} map[string]any
// @Router /api/admin/reset [post]
func (h *Handler) ResetAll(c *gin.Context) {
	err := h.Processing.ResetAll(c.Request.Context())
	if errors.Is(err, service.ErrRunInProgress) {
		writeError(c, http.StatusConflict, "RUN_IN_PROGRESS", "A processing run is already in progress", nil)
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to reset routing", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Geocode offices
// @Description Fills stored coordinates for offices outside the canonical table.
// @Tags admin
// @Produce json
// @Param force query bool false "Re-geocode offices that already have coordinates"
// @Success 200 {object} service.GeocodeResult
// @Router /api/admin/offices/geocode [post]
func (h *Handler) GeocodeOffices(c *gin.Context) {
	if h.Geocoding == nil {
		writeError(c, http.StatusServiceUnavailable, "GEOCODER_DISABLED", "Geocoder is not configured", nil)
		return
	}
	force := c.Query("force") == "1" || strings.EqualFold(c.Query("force"), "true")
	res, err := h.Geocoding.GeocodeOffices(c.Request.Context(), force)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "GEOCODE_ERROR", "Geocoding failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, res)
}
