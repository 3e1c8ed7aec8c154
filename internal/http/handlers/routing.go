package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/freedom_case_2/fire-router/internal/models"
	"github.com/freedom_case_2/fire-router/internal/service"
)

type TicketBatchRequest struct {
	Tickets []TicketRequest `json:"tickets" validate:"required,min=1,max=5000,dive"`
}

// @Summary Submit tickets
// @Description Stores tickets for the next processing run. Existing ids are skipped.
// @Tags tickets
// @Accept json
// @Produce json
// @Param body body TicketBatchRequest true "Tickets"
// @Success 200 {object} map[string]int64
// @Router /api/tickets [post]
func (h *Handler) SubmitTickets(c *gin.Context) {
	var req TicketBatchRequest
	if !h.bind(c, &req) {
		return
	}
	tickets := make([]models.Ticket, 0, len(req.Tickets))
	for _, t := range req.Tickets {
		tickets = append(tickets, t.toModel())
	}
	inserted, err := h.Store.InsertTickets(c.Request.Context(), tickets)
	if err != nil {
		h.Logger.Error().Err(err).Msg("failed to insert tickets")
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to insert tickets", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": len(tickets), "inserted": inserted})
}

// @Summary Process pending tickets
// @Tags process
// @Produce json
// @Success 200 {object} service.RunSummary
// @Failure 409 {object} map[string]any
// @Router /api/process [post]
func (h *Handler) Process(c *gin.Context) {
	summary, err := h.Processing.ProcessPending(c.Request.Context())
	if errors.Is(err, service.ErrRunInProgress) {
		writeError(c, http.StatusConflict, "RUN_IN_PROGRESS", "A processing run is already in progress", nil)
		return
	}
	if err != nil {
		h.Logger.Error().Err(err).Msg("processing failed")
		writeError(c, http.StatusInternalServerError, "PROCESSING_ERROR", "Processing failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, summary)
}

// @Summary Route one ticket
// @Description Stores the ticket if new and routes it immediately.
// @Tags process
// @Accept json
// @Produce json
// @Param body body RouteRequest true "Ticket and optional classification"
// @Success 200 {object} models.AssignmentRecord
// @Failure 409 {object} map[string]any
// @Router /api/route [post]
func (h *Handler) Route(c *gin.Context) {
	var req RouteRequest
	if !h.bind(c, &req) {
		return
	}
	rec, err := h.Processing.RouteOne(c.Request.Context(), req.Ticket.toModel(), req.Classification.toModel())
	if errors.Is(err, service.ErrAlreadyAssigned) {
		writeError(c, http.StatusConflict, "ALREADY_ROUTED", "Ticket already has an assignment", nil)
		return
	}
	if err != nil {
		h.Logger.Error().Err(err).Str("ticket_id", req.Ticket.ID).Msg("route failed")
		writeError(c, http.StatusInternalServerError, "ROUTING_ERROR", "Routing failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, rec)
}

// @Summary Dry-run routing
// @Description Computes the decision against current state without persisting anything.
// @Tags debug
// @Accept json
// @Produce json
// @Param body body RouteRequest true "Ticket and optional classification"
// @Success 200 {object} models.Decision
// @Router /api/debug/route [post]
func (h *Handler) DebugRoute(c *gin.Context) {
	var req RouteRequest
	if !h.bind(c, &req) {
		return
	}
	d, err := h.Processing.DryRun(c.Request.Context(), req.Ticket.toModel(), req.Classification.toModel())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "ROUTING_ERROR", "Dry run failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, d)
}
