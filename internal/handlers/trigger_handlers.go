package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// --- Trigger Administration ---
//
// These endpoints run the background jobs on demand so an operator can fire
// a pass without waiting for the schedule. They share the exact code paths
// the scheduler uses; the only difference is who pulls the trigger.

// ProcessTriggers runs one trigger processing pass and returns its summary.
func (h *Handlers) ProcessTriggers(c *gin.Context) {
	summary, err := h.Notify.ProcessDueTriggers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "summary": summary})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// RunCalendarScan runs the calendar sweep on demand.
func (h *Handlers) RunCalendarScan(c *gin.Context) {
	summary, err := h.Notify.CheckCalendarNotifications(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "summary": summary})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// RunTransactionScan runs the recent-transaction sweep on demand.
func (h *Handlers) RunTransactionScan(c *gin.Context) {
	summary, err := h.Notify.ProcessTransactionNotifications(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "summary": summary})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// RunCleanup runs the retention cleanup on demand.
func (h *Handlers) RunCleanup(c *gin.Context) {
	summary, err := h.Notify.CleanupOldData(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "summary": summary})
		return
	}
	c.JSON(http.StatusOK, summary)
}
