package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"medrent-backend/internal/domain"
	"medrent-backend/internal/service"

	"github.com/shopspring/decimal"
)

const multipartOverhead = 1 << 20

type OrderHandler struct {
	orderSvc       service.OrderService
	maxUploadBytes int64
}

func NewOrderHandler(orderSvc service.OrderService, maxUploadBytes int64) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc, maxUploadBytes: maxUploadBytes}
}

type periodDTO struct {
	Quantity int    `json:"quantity"`
	Unit     string `json:"unit"`
}

type cartItemDTO struct {
	EquipmentID int32            `json:"equipmentId"`
	Quantity    int              `json:"quantity"`
	RentalDays  int              `json:"rentalDays"`
	Period      *periodDTO       `json:"period,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
}

type personalInfoDTO struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	CIN       string `json:"cin"`
	Address   string `json:"address"`
	City      string `json:"city"`
	Phone     string `json:"phone"`
}

// orderRequest is the checkout payload, sent as JSON or as the orderData form field.
type orderRequest struct {
	Items         []cartItemDTO    `json:"items"`
	PaymentMethod string           `json:"paymentMethod"`
	PersonalInfo  personalInfoDTO  `json:"personalInfo"`
	TotalAmount   *decimal.Decimal `json:"totalAmount,omitempty"`
}

type quoteRequest struct {
	Items []cartItemDTO `json:"items"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func toCartItems(dtos []cartItemDTO) []service.CartItem {
	items := make([]service.CartItem, 0, len(dtos))
	for _, d := range dtos {
		item := service.CartItem{
			EquipmentID: d.EquipmentID,
			Quantity:    d.Quantity,
			RentalDays:  d.RentalDays,
			Price:       d.Price,
		}
		if d.Period != nil {
			item.Period = &domain.RentalPeriod{Quantity: d.Period.Quantity, Unit: domain.PeriodUnit(strings.ToLower(d.Period.Unit))}
		}
		items = append(items, item)
	}
	return items
}

func (req orderRequest) toCheckout() service.CheckoutRequest {
	p := req.PersonalInfo
	return service.CheckoutRequest{
		Items:         toCartItems(req.Items),
		PaymentMethod: domain.PaymentMethod(strings.ToLower(strings.TrimSpace(req.PaymentMethod))),
		PersonalInfo: domain.PersonalInfo{
			FirstName:  p.FirstName,
			LastName:   p.LastName,
			NationalID: p.CIN,
			Address:    p.Address,
			City:       p.City,
			Phone:      p.Phone,
		},
		TotalAmount: req.TotalAmount,
	}
}

func (h *OrderHandler) Quote(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, badRequest("body", "malformed JSON"))
		return
	}
	q, err := h.orderSvc.QuoteCart(r.Context(), userID, toCartItems(req.Items))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// Create accepts either a JSON body or a multipart form with an orderData
// JSON field and a receipt file part.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var checkout service.CheckoutRequest

	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, r, badRequest("receipt", fmt.Sprintf("file exceeds %d bytes", h.maxUploadBytes)))
				return
			}
			writeError(w, r, badRequest("body", "malformed multipart form"))
			return
		}
		defer r.MultipartForm.RemoveAll()

		var req orderRequest
		if err := json.Unmarshal([]byte(r.FormValue("orderData")), &req); err != nil {
			writeError(w, r, badRequest("orderData", "malformed JSON"))
			return
		}
		checkout = req.toCheckout()

		file, header, err := r.FormFile("receipt")
		switch {
		case err == nil:
			defer file.Close()
			checkout.Receipt = &service.Receipt{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Size:        header.Size,
				Content:     file,
			}
		case !errors.Is(err, http.ErrMissingFile):
			writeError(w, r, badRequest("receipt", "unreadable file part"))
			return
		}
	} else {
		var req orderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, badRequest("body", "malformed JSON"))
			return
		}
		checkout = req.toCheckout()
	}

	order, err := h.orderSvc.CreateOrder(r.Context(), userID, checkout)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	order, err := h.orderSvc.GetOrder(r.Context(), userID, muxVar(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.orderSvc.ListMyOrders)
}

func (h *OrderHandler) ListOwner(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.orderSvc.ListOwnerOrders)
}

type listFunc func(ctx context.Context, userID int32, status domain.OrderStatus, page, pageSize int32) ([]domain.Order, int32, error)

func (h *OrderHandler) list(w http.ResponseWriter, r *http.Request, fetch listFunc) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, pageSize := pageParams(r)
	status := domain.OrderStatus(strings.ToLower(r.URL.Query().Get("status")))

	orders, count, err := fetch(r.Context(), userID, status, page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, listResponse{Items: orders, TotalCount: count, Page: page, PageSize: pageSize})
}

func (h *OrderHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	stats, err := h.orderSvc.OwnerOrderStats(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// UpdateStatus approves or rejects a pending order on behalf of its owner.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, badRequest("body", "malformed JSON"))
		return
	}

	status := domain.OrderStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	order, err := h.orderSvc.TransitionStatus(r.Context(), muxVar(r, "id"), status, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
