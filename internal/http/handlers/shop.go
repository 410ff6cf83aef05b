package handlers

import (
	"errors"
	"net/http"
	"sort"

	"snowman_backend/internal/logger"
	"snowman_backend/internal/service"

	"github.com/gin-gonic/gin"
)

// ListItems returns the purchase catalog, stable-ordered for the client.
func (h *Handler) ListItems(c *gin.Context) {
	catalog := h.Purchases.Catalog()

	ids := make([]string, 0, len(catalog))
	for id := range catalog {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	items := make([]gin.H, 0, len(ids))
	for _, id := range ids {
		item := catalog[id]
		entry := gin.H{
			"id":    item.ID,
			"title": item.Title,
			"kind":  item.Kind,
			"stars": item.Stars,
		}
		if item.GrantAmount > 0 {
			entry["grant_amount"] = item.GrantAmount
		}
		if item.Duration > 0 {
			entry["duration_seconds"] = int64(item.Duration.Seconds())
		}
		items = append(items, entry)
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

type CreateInvoiceRequest struct {
	ItemID string `json:"item_id" binding:"required"`
}

// CreateInvoice issues a payment link for a catalog item. The payload baked
// into the invoice comes back with the payment confirmation and drives the
// purchase reconciliation.
func (h *Handler) CreateInvoice(c *gin.Context) {
	claims, ok := getClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "item_id is required"})
		return
	}

	if _, err := h.Purchases.Item(req.ItemID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown item"})
		return
	}

	if h.Invoices == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payments unavailable"})
		return
	}

	link, err := h.Invoices.CreateInvoiceLink(req.ItemID, claims.TgID)
	if err != nil {
		logger.Error("invoice link creation failed", "item", req.ItemID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to create invoice"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"link": link})
}

type ReconcileRequest struct {
	ChargeID string `json:"charge_id" binding:"required"`
	Payload  string `json:"payload" binding:"required"`
}

// ReconcilePurchase applies a payment confirmation delivered by a trusted
// collaborator. Exposed for deployments where confirmations arrive over HTTP
// instead of the bot long-poll loop.
func (h *Handler) ReconcilePurchase(c *gin.Context) {
	var req ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "charge_id and payload are required"})
		return
	}

	applied, err := h.Purchases.Reconcile(c.Request.Context(), req.ChargeID, req.Payload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMalformedPayload), errors.Is(err, service.ErrUnknownItem):
			logger.Warn("payment confirmation dropped", "payload", req.Payload, "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "store error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"applied": applied})
}
