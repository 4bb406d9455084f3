package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shayra-ai/license-server/internal/license"
	"github.com/shayra-ai/license-server/internal/server/handler/http/middleware"
	"github.com/shayra-ai/license-server/internal/server/handler/http/response"
)

// LicenseHandler serves the device-facing API.
type LicenseHandler struct {
	service licenseService
}

type licenseService interface {
	Status(ctx context.Context, deviceID string) (license.Status, error)
	Validate(ctx context.Context, deviceID string) (license.Validation, error)
	Use(ctx context.Context, deviceID, text, voice, ipAddress string) (license.Status, error)
	Activate(ctx context.Context, deviceID, code string) (license.Activation, error)
	Notifications(ctx context.Context, deviceID string) ([]license.Notification, error)
}

func NewLicenseHandler(service licenseService) *LicenseHandler {
	return &LicenseHandler{
		service: service,
	}
}

func (h *LicenseHandler) Register(mux *chi.Mux) {
	mux.Route(`/api`, func(r chi.Router) {
		r.Use(middleware.AcceptedContentTypeJSON())

		r.Post(`/status`, h.Status)
		r.Post(`/validate`, h.Validate)
		r.Post(`/use`, h.Use)
		r.Post(`/activate`, h.Activate)
		r.Post(`/notifications`, h.Notifications)
	})
}

func (h *LicenseHandler) Status(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest

	if !decodeDeviceRequest(w, r, &req) {
		return
	}

	status, err := h.service.Status(r.Context(), req.DeviceID)
	if err != nil {
		response.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	response.Success(w, convertStatus(status))
}

func (h *LicenseHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest

	if !decodeDeviceRequest(w, r, &req) {
		return
	}

	validation, err := h.service.Validate(r.Context(), req.DeviceID)
	if err != nil {
		response.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	response.Success(w, convertValidation(validation))
}

func (h *LicenseHandler) Use(w http.ResponseWriter, r *http.Request) {
	var req useRequest

	if !decodeDeviceRequest(w, r, &req) {
		return
	}

	status, err := h.service.Use(r.Context(), req.DeviceID, req.Text, req.Voice, remoteAddr(r))
	if err != nil {
		response.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	response.Success(w, convertStatus(status))
}

func (h *LicenseHandler) Activate(w http.ResponseWriter, r *http.Request) {
	var req activateRequest

	if !decodeDeviceRequest(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Code) == "" {
		response.Error(w, "Coupon code required", http.StatusBadRequest)
		return
	}

	activation, err := h.service.Activate(r.Context(), req.DeviceID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, license.ErrLicenseSuspended):
			response.Error(w, "Account is suspended", http.StatusForbidden)
		case errors.Is(err, license.ErrCouponNotFound):
			response.Error(w, "Invalid coupon code", http.StatusBadRequest)
		case errors.Is(err, license.ErrCouponAlreadyUsed):
			response.Error(w, "Coupon already used", http.StatusBadRequest)
		default:
			response.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	response.Success(w, convertActivation(activation))
}

func (h *LicenseHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest

	if !decodeDeviceRequest(w, r, &req) {
		return
	}

	notifications, err := h.service.Notifications(r.Context(), req.DeviceID)
	if err != nil {
		response.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	response.Success(w, convertNotifications(notifications))
}

type withDeviceID interface {
	deviceID() string
}

// decodeDeviceRequest decodes the JSON body and enforces the device_id
// field every client call must carry. It writes the error response
// itself and reports whether the handler may proceed.
func decodeDeviceRequest(w http.ResponseWriter, r *http.Request, req withDeviceID) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		response.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}

	if strings.TrimSpace(req.deviceID()) == "" {
		response.Error(w, "device_id required", http.StatusBadRequest)
		return false
	}

	return true
}

func remoteAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
