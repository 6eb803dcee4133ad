package routes

import (
	"github.com/gin-gonic/gin"

	handler "invoicing-backend/internal/handlers"
	"invoicing-backend/internal/services/catalog"
	"invoicing-backend/internal/services/companies"
	"invoicing-backend/internal/services/invoicing"
	"invoicing-backend/internal/services/provisioning"
)

// Services groups everything the HTTP layer calls into.
type Services struct {
	Companies    *companies.Service
	Provisioning *provisioning.Service
	Catalog      *catalog.Service
	Invoicing    *invoicing.Service
}

func RegisterRoutes(r *gin.Engine, s Services) {
	companyHandler := handler.NewCompanyHandler(s.Companies, s.Provisioning)
	clientHandler := handler.NewClientHandler(s.Catalog)
	productHandler := handler.NewProductHandler(s.Catalog)
	invoiceHandler := handler.NewInvoiceHandler(s.Invoicing)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	authed := api.Group("", handler.RequireUser())

	// Company routes
	authed.GET("/company", companyHandler.Get)
	authed.POST("/company", companyHandler.Create)
	authed.PUT("/company", companyHandler.Update)

	scoped := authed.Group("", handler.RequireCompany(s.Companies))

	// Payment account provisioning
	payments := scoped.Group("/company/payment-account")
	{
		payments.GET("", companyHandler.GetPaymentAccount)
		payments.POST("", companyHandler.CreatePaymentAccount)
		payments.POST("/onboarding-link", companyHandler.CreateOnboardingLink)
		payments.POST("/refresh", companyHandler.RefreshPaymentAccount)
	}

	clients := scoped.Group("/clients")
	{
		clients.GET("", clientHandler.List)
		clients.POST("", clientHandler.Create)
		clients.GET("/:id", clientHandler.Get)
		clients.PUT("/:id", clientHandler.Update)
		clients.DELETE("/:id", clientHandler.Delete)
	}

	products := scoped.Group("/products")
	{
		products.GET("", productHandler.List)
		products.POST("", productHandler.Create)
		products.GET("/:id", productHandler.Get)
		products.PUT("/:id", productHandler.Update)
		products.DELETE("/:id", productHandler.Delete)
	}

	// Invoice, quote and credit note routes
	invoices := scoped.Group("/invoices")
	{
		invoices.GET("", invoiceHandler.List)
		invoices.POST("", invoiceHandler.Create)
		invoices.GET("/:id", invoiceHandler.Get)
		invoices.PUT("/:id", invoiceHandler.Update)
		invoices.GET("/:id/history", invoiceHandler.History)
		invoices.POST("/:id/send", invoiceHandler.Send)
		invoices.POST("/:id/pay", invoiceHandler.MarkPaid)
		invoices.POST("/:id/void", invoiceHandler.Void)
		invoices.POST("/:id/credit-note", invoiceHandler.IssueCreditNote)
		invoices.POST("/:id/convert", invoiceHandler.ConvertQuote)
	}
}
