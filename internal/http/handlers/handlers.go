package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/freedom_case_2/fire-router/internal/models"
	"github.com/freedom_case_2/fire-router/internal/service"
)

type Handler struct {
	Store      service.Store
	Processing *service.ProcessingService
	Geocoding  *service.GeocodingService
	Validator  *validator.Validate
	Logger     zerolog.Logger
}

type TicketRequest struct {
	ID          string    `json:"id" validate:"required,max=128"`
	GUID        string    `json:"guid"`
	Segment     string    `json:"segment" validate:"omitempty,oneof=Mass VIP Priority"`
	Country     string    `json:"country"`
	Region      string    `json:"region"`
	City        string    `json:"city"`
	Street      string    `json:"street"`
	Building    string    `json:"building"`
	Description string    `json:"description"`
	Attachment  string    `json:"attachment"`
	CreatedAt   time.Time `json:"created_at"`
}

func (r TicketRequest) toModel() models.Ticket {
	segment := strings.TrimSpace(r.Segment)
	if segment == "" {
		segment = models.SegmentMass
	}
	return models.Ticket{
		ID:          strings.TrimSpace(r.ID),
		GUID:        r.GUID,
		Segment:     segment,
		Country:     strings.TrimSpace(r.Country),
		Region:      strings.TrimSpace(r.Region),
		City:        strings.TrimSpace(r.City),
		Street:      strings.TrimSpace(r.Street),
		Building:    strings.TrimSpace(r.Building),
		Description: r.Description,
		Attachment:  r.Attachment,
		CreatedAt:   r.CreatedAt,
	}
}

type ClassificationRequest struct {
	Type           string   `json:"type" validate:"required"`
	Sentiment      string   `json:"sentiment"`
	Priority       int      `json:"priority" validate:"min=0,max=10"`
	Language       string   `json:"language"`
	Summary        string   `json:"summary"`
	Recommendation string   `json:"recommendation"`
	Latitude       *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude      *float64 `json:"longitude" validate:"omitempty,longitude"`
}

func (r *ClassificationRequest) toModel() *models.Classification {
	if r == nil {
		return nil
	}
	c := &models.Classification{
		Type:           r.Type,
		Sentiment:      r.Sentiment,
		Priority:       r.Priority,
		Language:       r.Language,
		Summary:        r.Summary,
		Recommendation: r.Recommendation,
		ModelVersion:   "manual",
	}
	if c.Priority == 0 {
		c.Priority = 5
	}
	if r.Latitude != nil && r.Longitude != nil {
		c.Coordinates = &models.Coordinates{Lat: *r.Latitude, Lon: *r.Longitude}
	}
	return c
}

// RouteRequest carries one ticket. Without a classification the configured
// classifier is called.
type RouteRequest struct {
	Ticket         TicketRequest          `json:"ticket"`
	Classification *ClassificationRequest `json:"classification"`
}

// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// bind decodes the JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler should continue.
func (h *Handler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return false
	}
	if err := h.Validator.Struct(dst); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return false
	}
	return true
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
