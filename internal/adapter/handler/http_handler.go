package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ecetin/order-fulfillment/internal/adapter/storage"
	"github.com/ecetin/order-fulfillment/internal/core/domain"
	"github.com/ecetin/order-fulfillment/internal/core/service"
)

type HTTPHandler struct {
	orders *service.OrderService
}

func NewHTTPHandler(orders *service.OrderService) *HTTPHandler {
	return &HTTPHandler{orders: orders}
}

// Register wires every route onto mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("POST /api/login", h.Login)
	mux.HandleFunc("POST /api/orders", h.PlaceOrder)
	mux.HandleFunc("POST /api/orders/process", h.ProcessOrder)
	mux.HandleFunc("POST /api/orders/process-all", h.ProcessAllPending)
	mux.HandleFunc("GET /api/orders/pending", h.PendingOrders)
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/customers", h.ListCustomers)
	mux.HandleFunc("GET /api/customers/{id}/orders", h.CustomerOrders)
	mux.HandleFunc("GET /api/logs", h.RecentLogs)
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success bool   `json:"success"`
	Role    string `json:"role,omitempty"`
}

func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ok, role, err := h.orders.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !ok {
		writeJSON(w, http.StatusUnauthorized, LoginResponse{Success: false})
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Success: true, Role: role})
}

type PlaceOrderRequest struct {
	RequestID  string `json:"request_id"`
	CustomerID int64  `json:"customer_id"`
	ProductID  int64  `json:"product_id"`
	Quantity   int    `json:"quantity"`
}

type PlaceOrderResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OrderID int64  `json:"order_id,omitempty"`
}

func (h *HTTPHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, PlaceOrderResponse{Success: false, Message: "invalid request body"})
		return
	}
	if req.CustomerID <= 0 || req.ProductID <= 0 || req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, PlaceOrderResponse{Success: false, Message: "missing required fields"})
		return
	}

	orderID, err := h.orders.PlaceOrder(r.Context(), req.RequestID, req.CustomerID, req.ProductID, req.Quantity)
	if err != nil {
		status, message := statusForError(err)
		writeJSON(w, status, PlaceOrderResponse{Success: false, Message: message})
		return
	}
	writeJSON(w, http.StatusOK, PlaceOrderResponse{
		Success: true,
		Message: "order placed successfully",
		OrderID: orderID,
	})
}

type ProcessOrderRequest struct {
	OrderID int64 `json:"order_id"`
}

type ProcessOrderResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *HTTPHandler) ProcessOrder(w http.ResponseWriter, r *http.Request) {
	var req ProcessOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ProcessOrderResponse{Success: false, Message: "invalid request body"})
		return
	}
	if req.OrderID <= 0 {
		writeJSON(w, http.StatusBadRequest, ProcessOrderResponse{Success: false, Message: "missing order_id"})
		return
	}

	if err := h.orders.ProcessOrder(r.Context(), req.OrderID); err != nil {
		status, message := statusForError(err)
		writeJSON(w, status, ProcessOrderResponse{Success: false, Message: message})
		return
	}
	writeJSON(w, http.StatusOK, ProcessOrderResponse{Success: true, Message: "order processed"})
}

type ProcessAllResponse struct {
	Success    bool `json:"success"`
	Total      int  `json:"total"`
	Dispatched int  `json:"dispatched"`
	Succeeded  int  `json:"succeeded"`
	Failed     int  `json:"failed"`
}

func (h *HTTPHandler) ProcessAllPending(w http.ResponseWriter, r *http.Request) {
	result, err := h.orders.ProcessAllPending(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ProcessAllResponse{
		Success:    true,
		Total:      result.Total,
		Dispatched: result.Dispatched,
		Succeeded:  result.Succeeded,
		Failed:     result.Failed,
	})
}

type PendingOrderResponse struct {
	OrderID      int64     `json:"order_id"`
	CustomerID   int64     `json:"customer_id"`
	CustomerType string    `json:"customer_type"`
	ProductID    int64     `json:"product_id"`
	ProductName  string    `json:"product_name"`
	Quantity     int       `json:"quantity"`
	OrderTime    time.Time `json:"order_time"`
	WaitSeconds  int64     `json:"wait_seconds"`
}

func (h *HTTPHandler) PendingOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.PendingOrders(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	out := make([]PendingOrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, PendingOrderResponse{
			OrderID:      o.OrderID,
			CustomerID:   o.CustomerID,
			CustomerType: string(o.CustomerType),
			ProductID:    o.ProductID,
			ProductName:  o.ProductName,
			Quantity:     o.Quantity,
			OrderTime:    o.OrderTime,
			WaitSeconds:  o.WaitSeconds,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type ProductResponse struct {
	ID      int64   `json:"product_id"`
	Name    string  `json:"product_name"`
	Stock   int     `json:"stock"`
	Price   float64 `json:"price"`
	Version int     `json:"version"`
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.orders.ListProducts(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	out := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, ProductResponse{
			ID:      p.ID,
			Name:    p.Name,
			Stock:   p.Stock,
			Price:   p.Price,
			Version: p.Version,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type CustomerResponse struct {
	ID         int64   `json:"customer_id"`
	Name       string  `json:"customer_name"`
	Budget     float64 `json:"budget"`
	Type       string  `json:"customer_type"`
	TotalSpent float64 `json:"total_spent"`
	Username   string  `json:"username,omitempty"`
}

func (h *HTTPHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.orders.ListCustomers(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	out := make([]CustomerResponse, 0, len(customers))
	for _, c := range customers {
		out = append(out, CustomerResponse{
			ID:         c.ID,
			Name:       c.Name,
			Budget:     c.Budget,
			Type:       string(c.Type),
			TotalSpent: c.TotalSpent,
			Username:   c.Username,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type CustomerOrderResponse struct {
	OrderID     int64     `json:"order_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	Status      string    `json:"status"`
	OrderTime   time.Time `json:"order_time"`
	WaitSeconds int64     `json:"wait_seconds"`
}

func (h *HTTPHandler) CustomerOrders(w http.ResponseWriter, r *http.Request) {
	customerID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || customerID <= 0 {
		http.Error(w, "invalid customer id", http.StatusBadRequest)
		return
	}

	orders, err := h.orders.CustomerOrders(r.Context(), customerID)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	out := make([]CustomerOrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, CustomerOrderResponse{
			OrderID:     o.OrderID,
			ProductName: o.ProductName,
			Quantity:    o.Quantity,
			Status:      string(o.Status),
			OrderTime:   o.OrderTime,
			WaitSeconds: o.WaitSeconds,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type LogEntryResponse struct {
	ID           int64     `json:"log_id"`
	CustomerID   *int64    `json:"customer_id,omitempty"`
	CustomerName string    `json:"customer_name"`
	Type         string    `json:"log_type"`
	CustomerType string    `json:"customer_type,omitempty"`
	Product      string    `json:"product,omitempty"`
	Quantity     int       `json:"quantity,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Message      string    `json:"message"`
}

func (h *HTTPHandler) RecentLogs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	logs, err := h.orders.RecentLogs(r.Context(), limit)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	out := make([]LogEntryResponse, 0, len(logs))
	for _, e := range logs {
		out = append(out, LogEntryResponse{
			ID:           e.ID,
			CustomerID:   e.CustomerID,
			CustomerName: e.CustomerName,
			Type:         string(e.Type),
			CustomerType: string(e.CustomerType),
			Product:      e.Product,
			Quantity:     e.Quantity,
			Timestamp:    e.Timestamp,
			Message:      e.Message,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrDuplicateRequest):
		return http.StatusConflict, "duplicate request"
	case errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusGone, "insufficient stock"
	case errors.Is(err, domain.ErrInsufficientBudget):
		return http.StatusUnprocessableEntity, "insufficient budget"
	case errors.Is(err, domain.ErrOrderNotActionable):
		return http.StatusConflict, "order is not pending"
	case errors.Is(err, domain.ErrOptimisticConflict):
		return http.StatusConflict, "concurrent update, retry"
	case errors.Is(err, storage.ErrPoolExhausted):
		return http.StatusServiceUnavailable, "busy, retry later"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
