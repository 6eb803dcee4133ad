package handler

import (
	"net/http"

	"invoicing-backend/internal/services/companies"
	"invoicing-backend/internal/services/provisioning"

	"github.com/gin-gonic/gin"
)

type CompanyHandler struct {
	companies    *companies.Service
	provisioning *provisioning.Service
}

func NewCompanyHandler(c *companies.Service, p *provisioning.Service) *CompanyHandler {
	return &CompanyHandler{companies: c, provisioning: p}
}

func (h *CompanyHandler) Get(c *gin.Context) {
	company, err := h.companies.GetByUser(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"company": company, "payment_status": company.PaymentAccount.Status()})
}

func (h *CompanyHandler) Create(c *gin.Context) {
	var payload companies.Profile
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	company, err := h.companies.Create(c.Request.Context(), userID(c), userEmail(c), payload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "company created", "company": company})
}

func (h *CompanyHandler) Update(c *gin.Context) {
	var payload companies.Profile
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	company, err := h.companies.Update(c.Request.Context(), userID(c), payload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "company updated", "company": company})
}

func (h *CompanyHandler) GetPaymentAccount(c *gin.Context) {
	view, err := h.provisioning.Get(c.Request.Context(), companyID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CompanyHandler) CreatePaymentAccount(c *gin.Context) {
	view, err := h.provisioning.CreateAccount(c.Request.Context(), companyID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *CompanyHandler) CreateOnboardingLink(c *gin.Context) {
	var payload provisioning.LinkRequest
	// An empty body falls back to the configured URLs.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			badRequest(c, "invalid payload")
			return
		}
	}
	link, err := h.provisioning.CreateOnboardingLink(c.Request.Context(), companyID(c), payload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": link.URL, "expires_at": link.ExpiresAt})
}

func (h *CompanyHandler) RefreshPaymentAccount(c *gin.Context) {
	view, err := h.provisioning.RefreshStatus(c.Request.Context(), companyID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
