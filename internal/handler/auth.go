package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/msomdec/kormkit/internal/domain"
)

// validateBearer checks the request's bearer token is a valid JWT signed
// with secret using HMAC.
func validateBearer(r *http.Request, secret []byte) error {
	tokenString, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || tokenString == "" {
		return domain.ErrUnauthorized
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return domain.ErrUnauthorized
	}
	return nil
}
