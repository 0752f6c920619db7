package handler

import (
	"github.com/bitfantasy/procura/internal/procurement/service"
	"github.com/gin-gonic/gin"
)

// PurchaseHandler 采购单处理器
type PurchaseHandler struct {
	svc *service.PurchaseService
}

func NewPurchaseHandler(svc *service.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{svc: svc}
}

func (h *PurchaseHandler) NextNumber(c *gin.Context) {
	n, err := h.svc.NextNumber(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"number": n})
}

// NextPedidoNumber 旧版订单流水号
// GET /api/v1/pedidos/next-number
func (h *PurchaseHandler) NextPedidoNumber(c *gin.Context) {
	n, err := h.svc.NextPedidoNumber(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"number": n})
}

func (h *PurchaseHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	f := service.PurchaseFilter{
		Status:            c.Query("status"),
		ClientID:          c.Query("client_id"),
		ProjectID:         c.Query("project_id"),
		PurchaseRequestID: c.Query("purchase_request_id"),
	}
	items, total, err := h.svc.List(c.Request.Context(), f, page, pageSize)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, newList(items, page, pageSize, total))
}

func (h *PurchaseHandler) Get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, p)
}

func (h *PurchaseHandler) Create(c *gin.Context) {
	var req service.SavePurchaseInput
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.Create(c.Request.Context(), CurrentActor(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, p)
}

func (h *PurchaseHandler) Update(c *gin.Context) {
	var req service.SavePurchaseInput
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.Update(c.Request.Context(), CurrentActor(c), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, p)
}

func (h *PurchaseHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), CurrentActor(c), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, nil)
}

func (h *PurchaseHandler) Installments(c *gin.Context) {
	items, err := h.svc.Installments(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"items": items})
}

// ExportInstallments 导出分期 Excel
// GET /api/v1/purchases/:id/installments/export
func (h *PurchaseHandler) ExportInstallments(c *gin.Context) {
	f, name, err := h.svc.ExportInstallments(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	writeExcel(c, f, name)
}
