package handler

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"carhive/internal/vehicles/repository"
	"carhive/internal/vehicles/service"
	apperrors "carhive/pkg/errors"
	httputil "carhive/pkg/http"
	"carhive/pkg/logger"
	"carhive/pkg/model"
)

// maxImageMemory bounds the in-memory portion of multipart parsing; larger
// files spill to disk.
const maxImageMemory = 8 << 20

type VehicleHandler struct {
	service service.VehicleService
	log     *logger.Logger
}

func NewVehicleHandler(service service.VehicleService, log *logger.Logger) *VehicleHandler {
	return &VehicleHandler{
		service: service,
		log:     log,
	}
}

// vehicleRequest is the JSON wire shape of a catalog entry.
type vehicleRequest struct {
	Make        string   `json:"make"`
	Model       string   `json:"model"`
	Year        int      `json:"year"`
	PricePerDay float64  `json:"price_per_day"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	Image       string   `json:"image"`
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// Create accepts either a JSON body or a multipart form. The multipart path
// carries the vehicle image as a file part named "image".
func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	in, file, err := h.buildCreateInput(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}
	if file != nil {
		defer file.Close()
	}

	vehicle, err := h.service.Create(r.Context(), in)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, vehicle); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *VehicleHandler) buildCreateInput(r *http.Request) (*service.CreateInput, multipart.File, error) {
	if !isMultipart(r) {
		var req vehicleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, nil, apperrors.InvalidInput("Invalid request body")
		}
		return &service.CreateInput{
			Make:        req.Make,
			Model:       req.Model,
			Year:        req.Year,
			PricePerDay: req.PricePerDay,
			Description: req.Description,
			Features:    req.Features,
			Image:       req.Image,
		}, nil, nil
	}

	if err := r.ParseMultipartForm(maxImageMemory); err != nil {
		return nil, nil, apperrors.InvalidInput("Invalid multipart form")
	}

	in := &service.CreateInput{
		Make:        r.FormValue("make"),
		Model:       r.FormValue("model"),
		Description: r.FormValue("description"),
		Image:       r.FormValue("image_url"),
		Features:    splitFeatures(r.FormValue("features")),
	}

	if s := r.FormValue("year"); s != "" {
		year, err := strconv.Atoi(s)
		if err != nil {
			return nil, nil, apperrors.InvalidInput("invalid year, must be an integer")
		}
		in.Year = year
	}
	if s := r.FormValue("price_per_day"); s != "" {
		price, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, nil, apperrors.InvalidInput("invalid price_per_day, must be a number")
		}
		in.PricePerDay = price
	}

	file, header, err := r.FormFile("image")
	if err == nil {
		in.ImageUpload = file
		in.ImageName = header.Filename
		return in, file, nil
	}
	if err != http.ErrMissingFile {
		return nil, nil, apperrors.InvalidInput("invalid image upload")
	}

	return in, nil, nil
}

func splitFeatures(value string) []string {
	if value == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	features := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			features = append(features, trimmed)
		}
	}
	return features
}

func (h *VehicleHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	vehicle, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, vehicle); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
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
	vehicles, total, err := h.service.List(r.Context(), filter, limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "List", "operation", "WriteError", "error", writeErr)
		}
		return
	}
	if vehicles == nil {
		vehicles = []*model.Vehicle{}
	}

	if err := httputil.WritePage(w, vehicles, total, page, limit); err != nil {
		h.log.Error("failed to write page response", "handler", "List", "operation", "WritePage", "error", err)
	}
}

func (h *VehicleHandler) buildSearchFilter(r *http.Request) (repository.SearchFilter, error) {
	query := r.URL.Query()

	filter := repository.SearchFilter{
		Search: query.Get("search"),
	}

	if s := query.Get("year"); s != "" {
		year, err := strconv.Atoi(s)
		if err != nil {
			return filter, apperrors.InvalidInput("invalid year parameter, must be an integer")
		}
		filter.Year = year
	}
	if s := query.Get("min_price"); s != "" {
		price, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return filter, apperrors.InvalidInput("invalid min_price parameter, must be a number")
		}
		filter.MinPrice = &price
	}
	if s := query.Get("max_price"); s != "" {
		price, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return filter, apperrors.InvalidInput("invalid max_price parameter, must be a number")
		}
		filter.MaxPrice = &price
	}

	return filter, nil
}

func (h *VehicleHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	in, file, err := h.buildUpdateInput(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Update", "operation", "WriteError", "error", writeErr)
		}
		return
	}
	if file != nil {
		defer file.Close()
	}

	vehicle, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Update", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, vehicle); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *VehicleHandler) buildUpdateInput(r *http.Request) (*service.UpdateInput, multipart.File, error) {
	if !isMultipart(r) {
		var update model.VehicleUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			return nil, nil, apperrors.InvalidInput("Invalid request body")
		}
		return &service.UpdateInput{Update: &update}, nil, nil
	}

	if err := r.ParseMultipartForm(maxImageMemory); err != nil {
		return nil, nil, apperrors.InvalidInput("Invalid multipart form")
	}

	update := &model.VehicleUpdate{
		Make:  r.FormValue("make"),
		Model: r.FormValue("model"),
		Image: r.FormValue("image_url"),
	}

	if s := r.FormValue("description"); s != "" {
		update.Description = &s
	}
	if s := r.FormValue("features"); s != "" {
		features := splitFeatures(s)
		update.Features = &features
	}
	if s := r.FormValue("year"); s != "" {
		year, err := strconv.Atoi(s)
		if err != nil {
			return nil, nil, apperrors.InvalidInput("invalid year, must be an integer")
		}
		update.Year = &year
	}
	if s := r.FormValue("price_per_day"); s != "" {
		price, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, nil, apperrors.InvalidInput("invalid price_per_day, must be a number")
		}
		update.PricePerDay = &price
	}

	in := &service.UpdateInput{Update: update}

	file, header, err := r.FormFile("image")
	if err == nil {
		in.ImageUpload = file
		in.ImageName = header.Filename
		return in, file, nil
	}
	if err != http.ErrMissingFile {
		return nil, nil, apperrors.InvalidInput("invalid image upload")
	}

	return in, nil, nil
}

func (h *VehicleHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Delete", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

// CheckAvailability answers whether the vehicle is free for a date range.
func (h *VehicleHandler) CheckAvailability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	query := r.URL.Query()

	pickupRaw := query.Get("pickup")
	returnRaw := query.Get("return")
	if pickupRaw == "" || returnRaw == "" {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("pickup and return parameters are required")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CheckAvailability", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	pickup, err := parseDate(pickupRaw)
	if err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("invalid pickup parameter, must be RFC3339 or YYYY-MM-DD")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CheckAvailability", "operation", "WriteError", "error", writeErr)
		}
		return
	}
	returnDate, err := parseDate(returnRaw)
	if err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("invalid return parameter, must be RFC3339 or YYYY-MM-DD")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CheckAvailability", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	result, err := h.service.CheckAvailability(r.Context(), id, pickup, returnDate)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CheckAvailability", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "CheckAvailability", "operation", "WriteSuccess", "error", err)
	}
}

func (h *VehicleHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/vehicles", h.Create)
	router.GET("/api/v1/vehicles", h.List)
	router.GET("/api/v1/vehicles/id/:id", h.GetByID)
	router.PATCH("/api/v1/vehicles/id/:id", h.Update)
	router.DELETE("/api/v1/vehicles/id/:id", h.Delete)
	router.GET("/api/v1/vehicles/id/:id/availability", h.CheckAvailability)
}
