package handler

import (
	"github.com/bitfantasy/procura/internal/procurement/service"
	"github.com/gin-gonic/gin"
)

// ============================================================
// Client Handler
// ============================================================

type ClientHandler struct {
	svc *service.ClientService
}

func NewClientHandler(svc *service.ClientService) *ClientHandler {
	return &ClientHandler{svc: svc}
}

// List GET /api/v1/clients?active=true&search=
func (h *ClientHandler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), queryBool(c, "active"), c.Query("search"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}

func (h *ClientHandler) Get(c *gin.Context) {
	client, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, client)
}

func (h *ClientHandler) Create(c *gin.Context) {
	var req service.SaveClientInput
	if !bindJSON(c, &req) {
		return
	}
	client, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, client)
}

func (h *ClientHandler) Update(c *gin.Context) {
	var req service.SaveClientInput
	if !bindJSON(c, &req) {
		return
	}
	client, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, client)
}

func (h *ClientHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, nil)
}

// ============================================================
// Project Handler
// ============================================================

type ProjectHandler struct {
	svc *service.ProjectService
}

func NewProjectHandler(svc *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

// List GET /api/v1/projects?client_id=&active=true
func (h *ProjectHandler) List(c *gin.Context) {
	items, err := h.svc.List(c.Request.Context(), c.Query("client_id"), queryBool(c, "active"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}

func (h *ProjectHandler) Get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, p)
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var req service.SaveProjectInput
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, p)
}

func (h *ProjectHandler) Update(c *gin.Context) {
	var req service.SaveProjectInput
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, p)
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, nil)
}

// ============================================================
// CNPJ Handler
// ============================================================

type CNPJHandler struct {
	svc *service.CNPJService
}

func NewCNPJHandler(svc *service.CNPJService) *CNPJHandler {
	return &CNPJHandler{svc: svc}
}

// Lookup GET /api/v1/cnpj/:cnpj
func (h *CNPJHandler) Lookup(c *gin.Context) {
	company, err := h.svc.Lookup(c.Request.Context(), c.Param("cnpj"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, company)
}
