package rest

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AuthConfig controls how caller identities are established.
type AuthConfig struct {
	JWTSecret string
	// DevMode accepts the X-Caller-ID header in place of a token.
	DevMode bool
}

// AuthMiddleware resolves the caller identity for every request. The
// subject claim of a bearer token becomes the caller; in dev mode the
// X-Caller-ID header is accepted instead.
func AuthMiddleware(cfg AuthConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := resolveCaller(r, cfg)
			if err != nil {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprintf(w, `{"success":false,"error":{"code":"UNAUTHENTICATED","message":%q}}`, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), contextKeyCaller, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveCaller(r *http.Request, cfg AuthConfig) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		token, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			return "", fmt.Errorf("authorization header must use the Bearer scheme")
		}
		return subjectFromToken(token, cfg.JWTSecret)
	}

	if cfg.DevMode {
		if caller := r.Header.Get("X-Caller-ID"); caller != "" {
			return caller, nil
		}
	}

	return "", fmt.Errorf("missing credentials")
}

func subjectFromToken(tokenString, secret string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", fmt.Errorf("invalid token")
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return subject, nil
}
