package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/willow-wellness/bookings-api/internal/http/response"
	"github.com/willow-wellness/bookings-api/internal/repo/postgres"
	"github.com/willow-wellness/bookings-api/internal/service"
	"github.com/willow-wellness/bookings-api/pkg/auth"
	"github.com/willow-wellness/bookings-api/pkg/config"
	"github.com/willow-wellness/bookings-api/pkg/logger"
)

type Handlers struct {
	bookings     service.BookingService
	webhooks     service.WebhookService
	availability postgres.AvailabilityRepository
	profiles     postgres.ProfileRepository
	config       *config.Config
}

func New(
	bookings service.BookingService,
	webhooks service.WebhookService,
	availability postgres.AvailabilityRepository,
	profiles postgres.ProfileRepository,
	cfg *config.Config,
) *Handlers {
	return &Handlers{
		bookings:     bookings,
		webhooks:     webhooks,
		availability: availability,
		profiles:     profiles,
		config:       cfg,
	}
}

type claimsKey struct{}

// RequireAdmin guards the administrative routes with a JWT carrying the
// admin role.
func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			response.Unauthorized(w, "Missing or invalid authorization header")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := auth.Parse(token, h.config.Auth.JWTSecret)
		if err != nil {
			response.Unauthorized(w, "Invalid token")
			return
		}
		if claims.Role != "admin" {
			response.Forbidden(w, "Insufficient permissions")
			return
		}

		ctx := context.WithValue(r.Context(), logger.UserIDKey, claims.Sub)
		ctx = context.WithValue(ctx, claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}
