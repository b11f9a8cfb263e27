package faucet

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rubixchain/faucet/pkg/rate"
)

type dispenseRequest struct {
	Username string `json:"username"`
}

type result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// denial is the body of a cooldown rejection. The legacy frontend reads the
// "status" key here, unlike everywhere else.
type denial struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

type accountUpdate struct {
	TokenLevel   int64 `json:"tokenLevel"`
	LastTokenNum int64 `json:"lastTokenNum"`
	TotalCount   int64 `json:"totalCount"`
}

// NewHandler builds the HTTP surface of the faucet:
// the dispensing endpoint plus the administrative accounting endpoints,
// wrapped in CORS, security headers and per-IP rate limiting.
func NewHandler(s *Service, limiter rate.Limiter) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /increment", rateLimit(limiter, s.log, http.HandlerFunc(s.handleDispense)))
	mux.HandleFunc("GET /api/current-token-value", s.handleAccount)
	mux.HandleFunc("POST /api/update-token-value", s.handleUpdateAccount)

	return securityHeaders(allowOrigin(s.config.Origin, mux))
}

func (s *Service) handleDispense(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()

	var req dispenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username is required and must be a string"})
		return
	}

	receipt, err := s.Dispense(r.Context(), req.Username)
	if err == nil {
		writeJSON(w, http.StatusOK, result{Success: true, Message: receipt})
		return
	}

	var cooldown *CooldownError
	var rejected *RejectedError

	switch {
	case errors.Is(err, ErrBadRequest):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username is required and must be a string"})

	case errors.Is(err, ErrForbidden):
		writeJSON(w, http.StatusForbidden, result{Success: false, Message: "identity is not allowed"})

	case errors.As(err, &cooldown):
		writeJSON(w, http.StatusTooManyRequests, denial{
			Status:  false,
			Message: "Request denied. Try again in " + formatWait(cooldown.Remaining),
		})

	case errors.As(err, &rejected):
		// The node refused the transfer: a structured failure, not a server fault.
		writeJSON(w, http.StatusOK, result{Success: false, Message: rejected.Message})

	default:
		s.log.Error("faucet: dispensation failed",
			slog.String("request", id),
			slog.String("identity", req.Username),
			slog.Any("error", err),
		)
		writeJSON(w, http.StatusInternalServerError, result{Success: false, Message: "internal server error"})
	}
}

func (s *Service) handleAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.Account(r.Context())
	if err != nil {
		s.log.Error("faucet: failed to read account", "error", err)
		writeJSON(w, http.StatusInternalServerError, result{Success: false, Message: "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Service) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	var update accountUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := s.SetLevelAndTotals(r.Context(), update.TokenLevel, update.LastTokenNum, update.TotalCount); err != nil {
		s.log.Error("faucet: failed to update account", "error", err)
		writeJSON(w, http.StatusInternalServerError, result{Success: false, Message: "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, result{Success: true, Message: "account updated"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// rateLimit rejects requests whose client IP ran out of tokens.
func rateLimit(limiter rate.Limiter, log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !limiter.Allow(ip, 1) {
			log.Warn("faucet: rate-limited", "ip", ip)
			writeJSON(w, http.StatusTooManyRequests, denial{
				Status:  false,
				Message: "Too many requests from this IP, please try again later.",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allowOrigin applies the CORS policy of the configured origin.
func allowOrigin(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the original client IP: the first X-Forwarded-For hop when
// present (the faucet sits behind a reverse proxy), else the remote address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
