package handler

import (
	"net/http"
	"time"

	"invoicing-backend/internal/models"
	"invoicing-backend/internal/repository"
	"invoicing-backend/internal/services/invoicing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

type InvoiceHandler struct {
	service *invoicing.Service
}

func NewInvoiceHandler(s *invoicing.Service) *InvoiceHandler {
	return &InvoiceHandler{service: s}
}

type draftPayload struct {
	Type          models.DocumentType   `json:"type"`
	ClientID      *uuid.UUID            `json:"client_id"`
	IssueDate     string                `json:"issue_date"` // "yyyy-mm-dd"
	DueDate       string                `json:"due_date"`
	PaymentMethod string                `json:"payment_method"`
	Notes         string                `json:"notes"`
	Lines         []invoicing.LineInput `json:"lines"`
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (p draftPayload) input() (invoicing.DraftInput, string) {
	in := invoicing.DraftInput{
		Type:          p.Type,
		ClientID:      p.ClientID,
		PaymentMethod: p.PaymentMethod,
		Notes:         p.Notes,
		Lines:         p.Lines,
	}
	var err error
	if in.IssueDate, err = parseDate(p.IssueDate); err != nil {
		return in, "invalid issue_date, expected yyyy-mm-dd"
	}
	if in.DueDate, err = parseDate(p.DueDate); err != nil {
		return in, "invalid due_date, expected yyyy-mm-dd"
	}
	return in, ""
}

func (h *InvoiceHandler) List(c *gin.Context) {
	filter := repository.InvoiceFilter{
		Type:   models.DocumentType(c.Query("type")),
		Status: models.InvoiceStatus(c.Query("status")),
		Search: c.Query("q"),
	}
	if raw := c.Query("client_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(c, "invalid client_id")
			return
		}
		filter.ClientID = &id
	}

	invoices, err := h.service.List(c.Request.Context(), companyID(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": invoices})
}

func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	doc, err := h.service.Get(c.Request.Context(), companyID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *InvoiceHandler) History(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	events, err := h.service.History(c.Request.Context(), companyID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": events})
}

func (h *InvoiceHandler) Create(c *gin.Context) {
	var payload draftPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	in, msg := payload.input()
	if msg != "" {
		badRequest(c, msg)
		return
	}

	doc, err := h.service.CreateDraft(c.Request.Context(), companyID(c), in, userID(c).String())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (h *InvoiceHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var payload draftPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	in, msg := payload.input()
	if msg != "" {
		badRequest(c, msg)
		return
	}

	doc, err := h.service.UpdateDraft(c.Request.Context(), companyID(c), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *InvoiceHandler) Send(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	doc, err := h.service.Send(c.Request.Context(), companyID(c), id, userID(c).String())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "document sent", "invoice": doc})
}

func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var payload struct {
		PaymentDate      string `json:"payment_date"` // "yyyy-mm-dd", defaults to now
		PaymentMethod    string `json:"payment_method"`
		PaymentReference string `json:"payment_reference"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			badRequest(c, "invalid payload")
			return
		}
	}
	date, err := parseDate(payload.PaymentDate)
	if err != nil {
		badRequest(c, "invalid payment_date, expected yyyy-mm-dd")
		return
	}

	doc, err := h.service.MarkPaid(c.Request.Context(), companyID(c), id, invoicing.PaymentInput{
		Date:      date,
		Method:    payload.PaymentMethod,
		Reference: payload.PaymentReference,
	}, userID(c).String())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "document paid", "invoice": doc})
}

func (h *InvoiceHandler) Void(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var payload invoicing.VoidInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			badRequest(c, "invalid payload")
			return
		}
	}
	doc, err := h.service.Void(c.Request.Context(), companyID(c), id, payload, userID(c).String())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "document voided", "invoice": doc})
}

func (h *InvoiceHandler) IssueCreditNote(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	doc, err := h.service.IssueCreditNote(c.Request.Context(), companyID(c), id, userID(c).String())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (h *InvoiceHandler) ConvertQuote(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	doc, err := h.service.ConvertQuote(c.Request.Context(), companyID(c), id, userID(c).String())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}
