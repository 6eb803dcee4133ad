package handler

import (
	"net/http"

	"invoicing-backend/internal/services/catalog"

	"github.com/gin-gonic/gin"
)

type ClientHandler struct {
	catalog *catalog.Service
}

func NewClientHandler(s *catalog.Service) *ClientHandler {
	return &ClientHandler{catalog: s}
}

func (h *ClientHandler) List(c *gin.Context) {
	clients, err := h.catalog.ListClients(c.Request.Context(), companyID(c), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": clients})
}

func (h *ClientHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	client, err := h.catalog.GetClient(c.Request.Context(), companyID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *ClientHandler) Create(c *gin.Context) {
	var payload catalog.ClientInput
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	client, err := h.catalog.CreateClient(c.Request.Context(), companyID(c), payload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, client)
}

func (h *ClientHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var payload catalog.ClientInput
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	client, err := h.catalog.UpdateClient(c.Request.Context(), companyID(c), id, payload)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *ClientHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteClient(c.Request.Context(), companyID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
