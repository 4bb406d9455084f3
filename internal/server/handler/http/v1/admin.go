package v1

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shayra-ai/license-server/internal/license"
	"github.com/shayra-ai/license-server/internal/server/handler/http/middleware"
	"github.com/shayra-ai/license-server/internal/server/handler/http/response"
)

// AdminHandler serves coupon generation and user management, guarded by
// the admin key, plus the public stats dashboard.
type AdminHandler struct {
	service  adminService
	adminKey string
}

type adminService interface {
	GenerateCoupons(ctx context.Context, couponType string, count int) ([]string, error)
	Suspend(ctx context.Context, deviceID, reason string) error
	Unsuspend(ctx context.Context, deviceID string) error
	Bonus(ctx context.Context, deviceID string, credits int64, message string) error
	Penalty(ctx context.Context, deviceID string, credits int64, reason string) error
	Overview(ctx context.Context) (license.Overview, error)
	Users(ctx context.Context) ([]license.License, error)
	UserDetail(ctx context.Context, deviceID string) (license.UserDetail, error)
}

func NewAdminHandler(service adminService, adminKey string) *AdminHandler {
	return &AdminHandler{
		service:  service,
		adminKey: adminKey,
	}
}

func (h *AdminHandler) Register(mux *chi.Mux) {
	mux.Get(`/`, h.Dashboard)

	mux.Route(`/admin`, func(r chi.Router) {
		r.Use(middleware.AdminKeyCheck(h.adminKey))

		r.Post(`/generate`, h.Generate)
		r.Post(`/suspend`, h.Suspend)
		r.Post(`/bonus`, h.Bonus)
		r.Post(`/penalty`, h.Penalty)
		r.Get(`/overview`, h.Overview)
		r.Get(`/users`, h.Users)
		r.Get(`/users/{deviceID}`, h.UserDetail)
	})
}

type generateRequest struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type generateResponse struct {
	Success bool     `json:"success"`
	Codes   []string `json:"codes"`
}

func (h *AdminHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	codes, err := h.service.GenerateCoupons(r.Context(), req.Type, req.Count)
	if err != nil {
		if errors.Is(err, license.ErrIncorrectCouponType) {
			response.Error(w, "Invalid coupon type", http.StatusBadRequest)
			return
		}

		response.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	response.Success(w, generateResponse{Success: true, Codes: codes})
}

type suspendRequest struct {
	DeviceID string `json:"device_id"`
	Action   string `json:"action"`
	Reason   string `json:"reason"`
}

func (h *AdminHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	var req suspendRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.DeviceID) == "" {
		response.Error(w, "device_id required", http.StatusBadRequest)
		return
	}

	var err error

	if req.Action == "unsuspend" {
		err = h.service.Unsuspend(r.Context(), req.DeviceID)
	} else {
		err = h.service.Suspend(r.Context(), req.DeviceID, req.Reason)
	}

	if err != nil {
		h.writeUserError(w, err)
		return
	}

	response.Ok(w)
}

type bonusRequest struct {
	DeviceID string `json:"device_id"`
	Credits  int64  `json:"credits"`
	Message  string `json:"message"`
}

func (h *AdminHandler) Bonus(w http.ResponseWriter, r *http.Request) {
	var req bonusRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.DeviceID) == "" {
		response.Error(w, "device_id required", http.StatusBadRequest)
		return
	}

	if err := h.service.Bonus(r.Context(), req.DeviceID, req.Credits, req.Message); err != nil {
		h.writeUserError(w, err)
		return
	}

	response.Ok(w)
}

type penaltyRequest struct {
	DeviceID string `json:"device_id"`
	Credits  int64  `json:"credits"`
	Reason   string `json:"reason"`
}

func (h *AdminHandler) Penalty(w http.ResponseWriter, r *http.Request) {
	var req penaltyRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.DeviceID) == "" {
		response.Error(w, "device_id required", http.StatusBadRequest)
		return
	}

	if err := h.service.Penalty(r.Context(), req.DeviceID, req.Credits, req.Reason); err != nil {
		h.writeUserError(w, err)
		return
	}

	response.Ok(w)
}

type overviewResponse struct {
	Stats         statsResponse     `json:"stats"`
	RecentCoupons []couponResponse  `json:"recent_coupons"`
	RecentUsers   []licenseResponse `json:"recent_users"`
}

func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.Overview(r.Context())
	if err != nil {
		response.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	response.Success(w, overviewResponse{
		Stats:         convertStats(overview.Stats),
		RecentCoupons: convertCoupons(overview.RecentCoupons),
		RecentUsers:   convertLicenses(overview.RecentUsers),
	})
}

type usersResponse struct {
	Users []licenseResponse `json:"users"`
}

func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.Users(r.Context())
	if err != nil {
		response.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	response.Success(w, usersResponse{Users: convertLicenses(users)})
}

type userDetailResponse struct {
	User          licenseResponse        `json:"user"`
	Usage         []usageResponse        `json:"usage"`
	Notifications []notificationResponse `json:"notifications"`
}

func (h *AdminHandler) UserDetail(w http.ResponseWriter, r *http.Request) {
	deviceID := r.PathValue("deviceID")

	detail, err := h.service.UserDetail(r.Context(), deviceID)
	if err != nil {
		h.writeUserError(w, err)
		return
	}

	response.Success(w, userDetailResponse{
		User:          convertLicense(detail.License),
		Usage:         convertUsage(detail.Usage),
		Notifications: convertNotifications(detail.Notifications).Notifications,
	})
}

// Dashboard renders a small read-only stats page.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.Overview(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	stats := overview.Stats

	var body strings.Builder

	body.WriteString("<html><head><title>Shayra AI TTS License Server</title></head><body>")
	body.WriteString("<h1>Shayra AI TTS License Server</h1><ul>")

	fmt.Fprintf(&body, "<li>Coupons: %d (%d used)</li>", stats.TotalCoupons, stats.UsedCoupons)
	fmt.Fprintf(&body, "<li>Users: %d (%d pro, %d suspended)</li>", stats.TotalUsers, stats.ProUsers, stats.SuspendedUsers)
	fmt.Fprintf(&body, "<li>Total generations: %d</li>", stats.TotalGenerations)

	body.WriteString("</ul></body></html>")

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte(body.String())); err != nil {
		slog.Error("failed to write response body", "error", err)
	}
}

func (h *AdminHandler) writeUserError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, license.ErrLicenseNotFound):
		response.Error(w, "User not found", http.StatusNotFound)
	case errors.Is(err, license.ErrIncorrectCredits):
		response.Error(w, "Credits must be positive", http.StatusBadRequest)
	default:
		response.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
