package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	bookingsvc "carhive/internal/bookings/service"
	"carhive/internal/payments/service"
	apperrors "carhive/pkg/errors"
	httputil "carhive/pkg/http"
	"carhive/pkg/logger"
	"carhive/pkg/middleware"
	"carhive/pkg/model"
)

type PaymentHandler struct {
	service service.PaymentService
	log     *logger.Logger
}

func NewPaymentHandler(service service.PaymentService, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log,
	}
}

// checkoutRequest is the booking wire shape plus the payer's email.
type checkoutRequest struct {
	Vehicle      model.VehicleRef `json:"vehicle"`
	PickupDate   string           `json:"pickup_date"`
	ReturnDate   string           `json:"return_date"`
	Amount       float64          `json:"amount"`
	Details      model.LooseMap   `json:"details"`
	Address      model.LooseMap   `json:"address"`
	VehicleImage string           `json:"vehicle_image"`
	Email        string           `json:"email"`
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

// Checkout holds the reservation and redirects the client to the provider's
// payment page.
func (h *PaymentHandler) Checkout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Checkout", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	in, err := h.buildCheckoutInput(r, &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Checkout", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	result, err := h.service.OpenCheckout(r.Context(), in)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Checkout", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, result); err != nil {
		h.log.Error("failed to write created response", "handler", "Checkout", "operation", "WriteCreated", "error", err)
	}
}

func (h *PaymentHandler) buildCheckoutInput(r *http.Request, req *checkoutRequest) (*service.CheckoutInput, error) {
	if req.PickupDate == "" || req.ReturnDate == "" {
		return nil, apperrors.InvalidInput("pickup_date and return_date are required")
	}

	pickup, err := parseDate(req.PickupDate)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid pickup_date, must be RFC3339 or YYYY-MM-DD")
	}
	returnDate, err := parseDate(req.ReturnDate)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid return_date, must be RFC3339 or YYYY-MM-DD")
	}

	return &service.CheckoutInput{
		Booking: &bookingsvc.CreateInput{
			UserID:       middleware.Subject(r.Context()),
			Vehicle:      req.Vehicle,
			PickupDate:   pickup,
			ReturnDate:   returnDate,
			Amount:       req.Amount,
			Details:      req.Details,
			Address:      req.Address,
			VehicleImage: req.VehicleImage,
		},
		CustomerEmail: req.Email,
	}, nil
}

// Confirm reconciles a checkout session after the client returns from the
// payment page. Safe to call repeatedly for the same session.
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sessionID := r.URL.Query().Get("session_id")

	result, err := h.service.Confirm(r.Context(), sessionID)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Confirm", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "Confirm", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PaymentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/payments/checkout", h.Checkout)
	router.GET("/api/v1/payments/confirm", h.Confirm)
}
