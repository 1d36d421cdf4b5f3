package middleware

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// APIKeyMiddleware gates requests on the aggregator shared secret carried in
// the X-API-Key header. Comparison is constant-time.
func APIKeyMiddleware(apiKey string, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get("X-API-Key")
			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				logger.WarnContext(r.Context(), "Rejected request with invalid API key", "remote_addr", r.RemoteAddr)
				http.Error(w, "Invalid API Key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IPAllowlistMiddleware rejects requests whose source IP is not in the
// allow-list. A "*" entry allows any source. Expects chi's RealIP middleware
// to have normalized RemoteAddr.
func IPAllowlistMiddleware(allowedIPs []string, logger *slog.Logger) func(next http.Handler) http.Handler {
	allowAny := false
	allowed := make(map[string]struct{}, len(allowedIPs))
	for _, ip := range allowedIPs {
		if ip == "*" {
			allowAny = true
		}
		allowed[ip] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := remoteIP(r)
			if _, ok := allowed[clientIP]; !ok && !allowAny {
				logger.WarnContext(r.Context(), "Unauthorized access attempt", "client_ip", clientIP)
				http.Error(w, "Access denied", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminAuthMiddleware protects the read-only admin endpoints. It accepts
// either the aggregator API key or an HS256 bearer token signed with the
// admin secret.
func AdminAuthMiddleware(apiKey, jwtSecret string, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if provided := r.Header.Get("X-API-Key"); provided != "" {
				if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) == 1 {
					next.ServeHTTP(w, r)
					return
				}
				logger.WarnContext(r.Context(), "Rejected admin request with invalid API key", "remote_addr", r.RemoteAddr)
				http.Error(w, "Invalid API Key", http.StatusUnauthorized)
				return
			}

			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.WarnContext(r.Context(), "Admin request without credentials", "remote_addr", r.RemoteAddr)
				http.Error(w, "Authorization required", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				logger.WarnContext(r.Context(), "Rejected admin request with invalid token", "error", err)
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RealIP middleware strips the port when it rewrites RemoteAddr.
		return r.RemoteAddr
	}
	return host
}
