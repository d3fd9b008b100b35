package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"carhive/internal/bookings/repository"
	"carhive/internal/bookings/service"
	apperrors "carhive/pkg/errors"
	httputil "carhive/pkg/http"
	"carhive/pkg/logger"
	"carhive/pkg/middleware"
	"carhive/pkg/model"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

// bookingRequest is the wire shape of a reservation. Dates arrive as strings
// because clients send either full timestamps or plain calendar days.
type bookingRequest struct {
	Vehicle      model.VehicleRef `json:"vehicle"`
	PickupDate   string           `json:"pickup_date"`
	ReturnDate   string           `json:"return_date"`
	Amount       float64          `json:"amount"`
	Details      model.LooseMap   `json:"details"`
	Address      model.LooseMap   `json:"address"`
	VehicleImage string           `json:"vehicle_image"`
}

// updateRequest mirrors model.BookingUpdate with string dates.
type updateRequest struct {
	Vehicle      *model.VehicleRef `json:"vehicle"`
	PickupDate   *string           `json:"pickup_date"`
	ReturnDate   *string           `json:"return_date"`
	Amount       *float64          `json:"amount"`
	Details      *model.LooseMap   `json:"details"`
	Address      *model.LooseMap   `json:"address"`
	Status       string            `json:"status"`
	VehicleImage string            `json:"vehicle_image"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// parseDate accepts RFC3339 timestamps and plain calendar days.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	in, err := h.buildCreateInput(r, &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	booking, err := h.service.Create(r.Context(), in)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) buildCreateInput(r *http.Request, req *bookingRequest) (*service.CreateInput, error) {
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

	return &service.CreateInput{
		UserID:       middleware.Subject(r.Context()),
		Vehicle:      req.Vehicle,
		PickupDate:   pickup,
		ReturnDate:   returnDate,
		Amount:       req.Amount,
		Details:      req.Details,
		Address:      req.Address,
		VehicleImage: req.VehicleImage,
	}, nil
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	booking, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	page, limit, err := httputil.ExtractPageLimit(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "List", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	filter, err := h.buildSearchFilter(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "List", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	offset := int64((page - 1) * limit)
	bookings, total, err := h.service.List(r.Context(), filter, limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "List", "operation", "WriteError", "error", writeErr)
		}
		return
	}
	if bookings == nil {
		bookings = []*model.Booking{}
	}

	if err := httputil.WritePage(w, bookings, total, page, limit); err != nil {
		h.log.Error("failed to write page response", "handler", "List", "operation", "WritePage", "error", err)
	}
}

// ListMine returns the authenticated user's bookings.
func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	subject := middleware.Subject(r.Context())
	if subject == "" {
		if writeErr := httputil.WriteError(w, apperrors.Unauthorized("Authentication required")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListMine", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	page, limit, err := httputil.ExtractPageLimit(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListMine", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	filter := repository.SearchFilter{User: subject}
	offset := int64((page - 1) * limit)

	bookings, total, err := h.service.List(r.Context(), filter, limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListMine", "operation", "WriteError", "error", writeErr)
		}
		return
	}
	if bookings == nil {
		bookings = []*model.Booking{}
	}

	if err := httputil.WritePage(w, bookings, total, page, limit); err != nil {
		h.log.Error("failed to write page response", "handler", "ListMine", "operation", "WritePage", "error", err)
	}
}

func (h *BookingHandler) buildSearchFilter(r *http.Request) (repository.SearchFilter, error) {
	query := r.URL.Query()

	filter := repository.SearchFilter{
		Search:  query.Get("search"),
		Status:  query.Get("status"),
		Vehicle: query.Get("vehicle"),
	}

	if s := query.Get("from"); s != "" {
		parsed, err := parseDate(s)
		if err != nil {
			return filter, apperrors.InvalidInput("invalid from parameter, must be RFC3339 or YYYY-MM-DD")
		}
		filter.From = &parsed
	}
	if s := query.Get("to"); s != "" {
		parsed, err := parseDate(s)
		if err != nil {
			return filter, apperrors.InvalidInput("invalid to parameter, must be RFC3339 or YYYY-MM-DD")
		}
		filter.To = &parsed
	}

	return filter, nil
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Update", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	updates, err := h.buildUpdate(&req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Update", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	booking, err := h.service.Update(r.Context(), id, updates)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Update", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) buildUpdate(req *updateRequest) (*model.BookingUpdate, error) {
	updates := &model.BookingUpdate{
		Vehicle:      req.Vehicle,
		Amount:       req.Amount,
		Details:      req.Details,
		Address:      req.Address,
		Status:       req.Status,
		VehicleImage: req.VehicleImage,
	}

	if req.PickupDate != nil {
		parsed, err := parseDate(*req.PickupDate)
		if err != nil {
			return nil, apperrors.InvalidInput("invalid pickup_date, must be RFC3339 or YYYY-MM-DD")
		}
		updates.PickupDate = &parsed
	}
	if req.ReturnDate != nil {
		parsed, err := parseDate(*req.ReturnDate)
		if err != nil {
			return nil, apperrors.InvalidInput("invalid return_date, must be RFC3339 or YYYY-MM-DD")
		}
		updates.ReturnDate = &parsed
	}

	return updates, nil
}

func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "UpdateStatus", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	booking, err := h.service.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "UpdateStatus", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "UpdateStatus", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Delete", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings", h.List)
	router.GET("/api/v1/bookings/my", h.ListMine)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.PATCH("/api/v1/bookings/id/:id", h.Update)
	router.PATCH("/api/v1/bookings/id/:id/status", h.UpdateStatus)
	router.DELETE("/api/v1/bookings/id/:id", h.Delete)
}
