package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-tracker-api/internal/middleware"
	"github.com/noah-isme/academic-tracker-api/internal/models"
	appErrors "github.com/noah-isme/academic-tracker-api/pkg/errors"
	"github.com/noah-isme/academic-tracker-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// requireUser answers 401 and returns false when the request carries no claims.
func requireUser(c *gin.Context) (string, bool) {
	claims := claimsFromContext(c)
	if claims == nil || claims.UserID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}
	return claims.UserID, true
}

func bindError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
