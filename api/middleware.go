package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "restomap.app/errors"
	"restomap.app/models"
)

const credentialsKey = "credentials"

// CredentialsFromHeaders extracts the three session credential headers
func CredentialsFromHeaders(c *gin.Context) models.Credentials {
	return models.Credentials{
		AccessToken: c.GetHeader("access-token"),
		Client:      c.GetHeader("client"),
		UID:         c.GetHeader("uid"),
	}
}

// AuthRequired rejects callers missing any of the three credential headers.
// Only the authenticated predicate is enforced here; session validation
// itself lives outside this subsystem.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		creds := CredentialsFromHeaders(c)
		if !creds.Present() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Error: apperrors.UserMessage(apperrors.UnauthorizedError),
			})
			return
		}

		c.Set(credentialsKey, creds)
		c.Next()
	}
}
