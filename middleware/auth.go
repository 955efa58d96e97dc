package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// AdminRole is the role claim required on admin tokens
const AdminRole = "admin"

var (
	errMissingCronSecret = errors.New("cron secret is not configured")
	errInvalidCronSecret = errors.New("missing or invalid cron credentials")
	errMissingToken      = errors.New("missing bearer token")
	errNotAdmin          = errors.New("token does not carry the admin role")
)

// AdminClaims are the claims carried by admin bearer tokens
type AdminClaims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// CronSecretAuth guards the scheduled trigger. The Authorization header must
// equal "Bearer <secret>" byte for byte.
func CronSecretAuth(secret string) func(http.HandlerFunc) http.HandlerFunc {
	expected := []byte("Bearer " + secret)
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			requestID := RequestIDFrom(r)
			if secret == "" {
				RespondServiceUnavailable(w, errMissingCronSecret, requestID)
				return
			}
			got := []byte(r.Header.Get("Authorization"))
			if subtle.ConstantTimeCompare(got, expected) != 1 {
				Logger.WithFields(logrus.Fields{
					"request_id":  requestID,
					"remote_addr": r.RemoteAddr,
				}).Warn("Rejected scheduled sync trigger")
				RespondUnauthorized(w, errInvalidCronSecret, requestID)
				return
			}
			next.ServeHTTP(w, r)
		}
	}
}

// AdminAuth validates an HS256 bearer token signed with secret and requires
// role=admin. The token subject (or email) is recorded as the trigger source.
func AdminAuth(secret string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			requestID := RequestIDFrom(r)
			if secret == "" {
				RespondServiceUnavailable(w, errors.New("admin authentication is not configured"), requestID)
				return
			}

			claims, err := ParseAdminToken(r.Header.Get("Authorization"), secret)
			if err != nil {
				if errors.Is(err, errNotAdmin) {
					RespondForbidden(w, err, requestID)
					return
				}
				RespondUnauthorized(w, err, requestID)
				return
			}

			triggeredBy := claims.Subject
			if triggeredBy == "" {
				triggeredBy = claims.Email
			}
			if triggeredBy == "" {
				triggeredBy = AdminRole
			}
			ctx := context.WithValue(r.Context(), triggeredByKey, triggeredBy)
			next.ServeHTTP(w, r.WithContext(ctx))
		}
	}
}

// ParseAdminToken validates the Authorization header value and returns the
// admin claims.
func ParseAdminToken(header, secret string) (*AdminClaims, error) {
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(tokenString) == "" {
		return nil, errMissingToken
	}

	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}
	if claims.Role != AdminRole {
		return nil, errNotAdmin
	}
	return claims, nil
}

// TriggeredBy returns the admin identity stored by AdminAuth, or "admin"
func TriggeredBy(ctx context.Context) string {
	if v, ok := ctx.Value(triggeredByKey).(string); ok && v != "" {
		return v
	}
	return AdminRole
}
