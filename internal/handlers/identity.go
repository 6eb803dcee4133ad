package handler

import (
	"errors"
	"net/http"

	"invoicing-backend/internal/apperr"
	"invoicing-backend/internal/models"
	"invoicing-backend/internal/services/companies"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"

	ctxUserID    = "user_id"
	ctxUserEmail = "user_email"
	ctxCompany   = "company"
)

// RequireUser reads the caller identity set by the fronting auth gateway.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.GetHeader(HeaderUserID))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid " + HeaderUserID})
			return
		}
		c.Set(ctxUserID, id)
		c.Set(ctxUserEmail, c.GetHeader(HeaderUserEmail))
		c.Next()
	}
}

// RequireCompany loads the caller's company. Routes under it act on that company only.
func RequireCompany(svc *companies.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		company, err := svc.GetByUser(c.Request.Context(), userID(c))
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "company not set up yet"})
				return
			}
			respondError(c, err)
			c.Abort()
			return
		}
		c.Set(ctxCompany, company)
		c.Next()
	}
}

func userID(c *gin.Context) uuid.UUID {
	return c.MustGet(ctxUserID).(uuid.UUID)
}

func userEmail(c *gin.Context) string {
	return c.GetString(ctxUserEmail)
}

func company(c *gin.Context) *models.Company {
	return c.MustGet(ctxCompany).(*models.Company)
}

func companyID(c *gin.Context) uuid.UUID {
	return company(c).ID
}

func paramID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
