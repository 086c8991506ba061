package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/DanielPopoola/openfinance-gateway/internal/config"
	"github.com/DanielPopoola/openfinance-gateway/internal/interfaces/rest"
	"github.com/golang-jwt/jwt/v5"
)

// ParticipantHeader names the calling TPP when bearer auth is disabled.
const ParticipantHeader = "X-TPP-ID"

const codeUnauthorized = "UNAUTHORIZED"

// Authenticate resolves the calling participant and stores it with
// rest.WithPrincipal. With auth enabled the participant is the sub claim of
// an HS256 bearer token; otherwise it is read from X-TPP-ID.
func Authenticate(cfg config.AuthConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var principalID string
			if cfg.Enabled {
				token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
				if !ok || strings.TrimSpace(token) == "" {
					logger.WarnContext(r.Context(), "unauthorized access - missing token", "path", r.URL.Path)
					rest.WriteErrorCode(w, http.StatusUnauthorized, codeUnauthorized, "missing bearer token")
					return
				}
				sub, err := ParseParticipant(strings.TrimSpace(token), cfg)
				if err != nil {
					logger.WarnContext(r.Context(), "unauthorized access - invalid token", "error", err)
					rest.WriteErrorCode(w, http.StatusUnauthorized, codeUnauthorized, "invalid or expired token")
					return
				}
				principalID = sub
			} else {
				principalID = strings.TrimSpace(r.Header.Get(ParticipantHeader))
				if principalID == "" {
					rest.WriteErrorCode(w, http.StatusUnauthorized, codeUnauthorized, "missing "+ParticipantHeader+" header")
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(rest.WithPrincipal(r.Context(), principalID)))
		})
	}
}

// ParseParticipant validates a bearer token and returns its subject.
func ParseParticipant(tokenString string, cfg config.AuthConfig) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("token expired: %w", err)
		}
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}
