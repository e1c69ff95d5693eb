package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nadab-hotels/orders-api/internal/database"
	"github.com/nadab-hotels/orders-api/internal/enum"
	"github.com/nadab-hotels/orders-api/internal/middleware"
	"github.com/nadab-hotels/orders-api/internal/service"
	"github.com/shopspring/decimal"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	ListOrders(ctx context.Context, f database.OrderFilter) ([]database.Order, error)
	ListCustomerOrders(ctx context.Context, customerID string) ([]database.Order, map[string]database.Hotel, error)
	GetOrder(ctx context.Context, id string) (database.Order, error)
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
	AddItem(ctx context.Context, orderID string, in service.ItemInput) (database.Order, error)
	AddPayment(ctx context.Context, orderID string, in service.PaymentInput) (database.Order, error)
	SetStatus(ctx context.Context, orderID string, status enum.OrderStatus) (database.Order, error)
	SetAllItemsStatus(ctx context.Context, orderID string, bulk enum.BulkStatus) (database.Order, error)
	SetItemStatus(ctx context.Context, orderID, itemID string, status enum.ItemStatus) (database.Order, error)
	EditOrder(ctx context.Context, orderID string, p service.OrderPatch) (database.Order, error)
	DeleteOrder(ctx context.Context, orderID string) (database.Order, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc OrderServicer
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Static segments take precedence over {status} in chi, so /edit and /all
// never reach the status handlers.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/hotel/orders", h.ListHotel)
	r.Get("/user/orders", h.ListHotel)
	r.Get("/customer/orders", h.ListCustomer)

	r.Route("/orders", func(r chi.Router) {
		r.Post("/add", h.Create)
		r.Get("/{id}", h.Get)
		r.Post("/{id}/addItem", h.AddItem)
		r.Post("/{id}/payments", h.AddPayment)
		r.Put("/{id}/edit", h.Edit)
		r.Put("/{id}/all/{status}", h.SetAllItemsStatus)
		r.Put("/{id}/{status}", h.SetStatus)
		r.Put("/{id}/{itemId}/{status}", h.SetItemStatus)
		r.Delete("/{id}/delete", h.Delete)
	})
}

// --- Request types ---

type createOrderRequest struct {
	Hotel      string            `json:"hotel"`
	HotelID    string            `json:"hotelId"`
	Customer   string            `json:"customer"`
	CustomerID string            `json:"customerId"`
	ServedBy   string            `json:"servedBy"`
	Items      []json.RawMessage `json:"items"`
	Payments   []json.RawMessage `json:"payments"`
}

type itemRequest struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Product string          `json:"product"`
	Qty     int             `json:"qty"`
	Price   decimal.Decimal `json:"price"`
	Status  string          `json:"status"`
}

func (ir itemRequest) toInput() service.ItemInput {
	return service.ItemInput{
		ID:        ir.ID,
		Name:      ir.Name,
		ProductID: ir.Product,
		Qty:       ir.Qty,
		Price:     ir.Price,
		Status:    enum.ItemStatus(ir.Status),
	}
}

type paymentRequest struct {
	Method          string          `json:"method"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionCode string          `json:"transactionCode"`
}

func (pr paymentRequest) toInput() service.PaymentInput {
	return service.PaymentInput{Method: pr.Method, Amount: pr.Amount, TransactionCode: pr.TransactionCode}
}

type editOrderRequest struct {
	Status   *string           `json:"status"`
	ServedBy *string           `json:"servedBy"`
	Customer *string           `json:"customer"`
	Items    *[]itemRequest    `json:"items"`
	Payments *[]paymentRequest `json:"payments"`
}

type hotelSummary struct {
	ID           string `json:"id"`
	BusinessName string `json:"businessName"`
}

// --- Handlers ---

// ListHotel handles GET /hotel/orders and GET /user/orders. Without an
// identity every order is listed.
func (h *OrderHandler) ListHotel(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListOrders(r.Context(), database.OrderFilter{
		HotelID: middleware.IdentityID(r.Context()),
		Sort:    database.SortNewestFirst,
	})
	if err != nil {
		writeServiceError(w, "list orders", err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Orders: orders})
}

// ListCustomer handles GET /customer/orders. Each order carries its hotel
// as {id, businessName} instead of the bare id.
func (h *OrderHandler) ListCustomer(w http.ResponseWriter, r *http.Request) {
	orders, hotels, err := h.svc.ListCustomerOrders(r.Context(), middleware.IdentityID(r.Context()))
	if err != nil {
		writeServiceError(w, "list customer orders", err)
		return
	}

	out := make([]map[string]json.RawMessage, 0, len(orders))
	for _, o := range orders {
		doc, err := withHotel(o, hotels[o.HotelID])
		if err != nil {
			writeServiceError(w, "render customer orders", err)
			return
		}
		out = append(out, doc)
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Orders: out})
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Order: o})
}

// Create handles POST /orders/add. Entries that fail to decode or validate
// are reported in "rejected" and left out of the order.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeServiceError(w, "create order", err)
		return
	}

	in := service.CreateOrderRequest{
		HotelID:    firstNonEmpty(req.Hotel, req.HotelID),
		CustomerID: firstNonEmpty(req.Customer, req.CustomerID),
		ServedBy:   req.ServedBy,
		Items:      make([]service.ItemInput, len(req.Items)),
		Payments:   make([]service.PaymentInput, len(req.Payments)),
	}
	for i, raw := range req.Items {
		var ir itemRequest
		if err := json.Unmarshal(raw, &ir); err != nil {
			in.Items[i] = service.ItemInput{Err: err}
			continue
		}
		in.Items[i] = ir.toInput()
	}
	for i, raw := range req.Payments {
		var pr paymentRequest
		if err := json.Unmarshal(raw, &pr); err != nil {
			in.Payments[i] = service.PaymentInput{Err: err}
			continue
		}
		in.Payments[i] = pr.toInput()
	}

	result, err := h.svc.CreateOrder(r.Context(), in)
	if err != nil {
		writeServiceError(w, "create order", err)
		return
	}

	resp := envelope{Success: true, Order: result.Order}
	for _, rej := range result.Rejected {
		resp.Rejected = append(resp.Rejected, rejectionResponse{Kind: rej.Kind, Index: rej.Index, Reason: rej.Reason})
	}
	writeJSON(w, http.StatusCreated, resp)
}

// AddItem handles POST /orders/{id}/addItem.
func (h *OrderHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var ir itemRequest
	if err := decodeBody(r, &ir); err != nil {
		writeServiceError(w, "add item", err)
		return
	}
	o, err := h.svc.AddItem(r.Context(), chi.URLParam(r, "id"), ir.toInput())
	if err != nil {
		writeServiceError(w, "add item", err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Order: o})
}

// AddPayment handles POST /orders/{id}/payments.
func (h *OrderHandler) AddPayment(w http.ResponseWriter, r *http.Request) {
	var pr paymentRequest
	if err := decodeBody(r, &pr); err != nil {
		writeServiceError(w, "add payment", err)
		return
	}
	o, err := h.svc.AddPayment(r.Context(), chi.URLParam(r, "id"), pr.toInput())
	if err != nil {
		writeServiceError(w, "add payment", err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Order: o})
}

// Edit handles PUT /orders/{id}/edit.
func (h *OrderHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var req editOrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeServiceError(w, "edit order", err)
		return
	}

	var p service.OrderPatch
	if req.Status != nil {
		st := enum.OrderStatus(*req.Status)
		p.Status = &st
	}
	p.ServedBy = req.ServedBy
	p.CustomerID = req.Customer
	if req.Items != nil {
		items := make([]service.ItemInput, len(*req.Items))
		for i, ir := range *req.Items {
			items[i] = ir.toInput()
		}
		p.Items = &items
	}
	if req.Payments != nil {
		payments := make([]service.PaymentInput, len(*req.Payments))
		for i, pr := range *req.Payments {
			payments[i] = pr.toInput()
		}
		p.Payments = &payments
	}

	o, err := h.svc.EditOrder(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		writeServiceError(w, "edit order", err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Order: o})
}

// SetStatus handles PUT /orders/{id}/{status}.
func (h *OrderHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	status := enum.OrderStatus(chi.URLParam(r, "status"))
	o, err := h.svc.SetStatus(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		writeServiceError(w, "set order status", err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Order: o})
}

// SetAllItemsStatus handles PUT /orders/{id}/all/{status}.
func (h *OrderHandler) SetAllItemsStatus(w http.ResponseWriter, r *http.Request) {
	bulk := enum.BulkStatus(chi.URLParam(r, "status"))
	o, err := h.svc.SetAllItemsStatus(r.Context(), chi.URLParam(r, "id"), bulk)
	if err != nil {
		writeServiceError(w, "set all items status", err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Order: o})
}

// SetItemStatus handles PUT /orders/{id}/{itemId}/{status}.
func (h *OrderHandler) SetItemStatus(w http.ResponseWriter, r *http.Request) {
	status := enum.ItemStatus(chi.URLParam(r, "status"))
	o, err := h.svc.SetItemStatus(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemId"), status)
	if err != nil {
		writeServiceError(w, "set item status", err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Order: o})
}

// Delete handles DELETE /orders/{id}/delete.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.DeleteOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "delete order", err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Order: o})
}

// --- Helpers ---

// decodeBody decodes a JSON body into v. A missing body is ErrEmptyBody.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return service.ErrEmptyBody
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return service.ErrEmptyBody
		}
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return nil
}

// withHotel renders o with its "hotel" field replaced by the hotel summary.
// Unknown hotels keep the bare id.
func withHotel(o database.Order, hotel database.Hotel) (map[string]json.RawMessage, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if hotel.ID == "" {
		log.Printf("WARN: hotel %s for order %s not in directory", o.HotelID, o.ID)
		return doc, nil
	}
	ref, err := json.Marshal(hotelSummary{ID: hotel.ID, BusinessName: hotel.BusinessName})
	if err != nil {
		return nil, err
	}
	doc["hotel"] = ref
	return doc, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
