package handler

import (
	"github.com/bitfantasy/procura/internal/procurement/service"
	"github.com/gin-gonic/gin"
)

// ServiceSaleHandler 服务销售处理器
type ServiceSaleHandler struct {
	svc *service.ServiceSaleService
}

func NewServiceSaleHandler(svc *service.ServiceSaleService) *ServiceSaleHandler {
	return &ServiceSaleHandler{svc: svc}
}

// List 分页参数为 page/limit，limit 默认 10
func (h *ServiceSaleHandler) List(c *gin.Context) {
	page, limit := paginate(c, "limit", 10)
	items, total, err := h.svc.List(c.Request.Context(), c.Query("client_id"), c.Query("project_id"), page, limit)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, newList(items, page, limit, total))
}

func (h *ServiceSaleHandler) Get(c *gin.Context) {
	sale, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, sale)
}

func (h *ServiceSaleHandler) Create(c *gin.Context) {
	var req service.SaveServiceSaleInput
	if !bindJSON(c, &req) {
		return
	}
	sale, err := h.svc.Create(c.Request.Context(), CurrentActor(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, sale)
}

func (h *ServiceSaleHandler) Update(c *gin.Context) {
	var req service.SaveServiceSaleInput
	if !bindJSON(c, &req) {
		return
	}
	sale, err := h.svc.Update(c.Request.Context(), CurrentActor(c), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, sale)
}

func (h *ServiceSaleHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), CurrentActor(c), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, nil)
}
