package http

import (
	"io"
	"net/http"
	"path"

	"medrent-backend/internal/logger"
	"medrent-backend/internal/service"
)

// ReceiptHandler streams stored payment receipts to the parties of an order
type ReceiptHandler struct {
	orderSvc service.OrderService
}

// NewReceiptHandler creates a new receipt handler
func NewReceiptHandler(orderSvc service.OrderService) *ReceiptHandler {
	return &ReceiptHandler{
		orderSvc: orderSvc,
	}
}

// Download handles GET requests for the receipt of an order
func (h *ReceiptHandler) Download(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	orderID := muxVar(r, "id")
	file, contentType, err := h.orderSvc.OpenReceipt(r.Context(), userID, orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer file.Close()

	// Set headers
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, no-store")
	w.Header().Set("Content-Disposition", `attachment; filename="receipt-`+path.Base(orderID)+`"`)

	// Stream file
	if _, err := io.Copy(w, file); err != nil {
		logger.WarnContext(r.Context(), "Receipt download interrupted", "order_id", orderID, "error", err)
	}
}
