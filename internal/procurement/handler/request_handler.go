package handler

import (
	"fmt"
	"net/http"

	"github.com/bitfantasy/procura/internal/procurement/service"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// RequestHandler 采购申请处理器
type RequestHandler struct {
	svc *service.RequestService
}

func NewRequestHandler(svc *service.RequestService) *RequestHandler {
	return &RequestHandler{svc: svc}
}

func requestFilter(c *gin.Context) service.RequestFilter {
	return service.RequestFilter{
		Status:    c.Query("status"),
		Priority:  c.Query("priority"),
		UserID:    c.Query("user_id"),
		ClientID:  c.Query("client_id"),
		ProjectID: c.Query("project_id"),
		Search:    c.Query("search"),
	}
}

// NextNumber 下一个申请编号（仅预览）
// GET /api/v1/purchase-requests/next-number
func (h *RequestHandler) NextNumber(c *gin.Context) {
	n, err := h.svc.NextNumber(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, gin.H{"number": n})
}

func (h *RequestHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), CurrentActor(c), requestFilter(c), page, pageSize)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, newList(items, page, pageSize, total))
}

func (h *RequestHandler) Get(c *gin.Context) {
	pr, err := h.svc.Get(c.Request.Context(), CurrentActor(c), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, pr)
}

// Activities 操作记录
// GET /api/v1/purchase-requests/:id/activities
func (h *RequestHandler) Activities(c *gin.Context) {
	logs, err := h.svc.Activities(c.Request.Context(), CurrentActor(c), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, logs)
}

func (h *RequestHandler) Create(c *gin.Context) {
	var req service.SaveRequestInput
	if !bindJSON(c, &req) {
		return
	}
	pr, err := h.svc.Create(c.Request.Context(), CurrentActor(c), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, pr)
}

func (h *RequestHandler) Update(c *gin.Context) {
	var req service.SaveRequestInput
	if !bindJSON(c, &req) {
		return
	}
	pr, err := h.svc.Update(c.Request.Context(), CurrentActor(c), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, pr)
}

func (h *RequestHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), CurrentActor(c), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	Success(c, nil)
}

// Approve 批准申请
// POST /api/v1/purchase-requests/:id/approve
func (h *RequestHandler) Approve(c *gin.Context) {
	var req struct {
		Notes string `json:"notes"`
	}
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	pr, err := h.svc.Approve(c.Request.Context(), CurrentActor(c), c.Param("id"), req.Notes)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, pr)
}

// Reject 拒绝申请，原因必填
// POST /api/v1/purchase-requests/:id/reject
func (h *RequestHandler) Reject(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if !bindJSON(c, &req) {
		return
	}
	pr, err := h.svc.Reject(c.Request.Context(), CurrentActor(c), c.Param("id"), req.Reason)
	if err != nil {
		RespondError(c, err)
		return
	}
	Success(c, pr)
}

// Convert 已批准的申请生成采购单
// POST /api/v1/purchase-requests/:id/convert
func (h *RequestHandler) Convert(c *gin.Context) {
	var req service.ConvertInput
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.ConvertToPurchase(c.Request.Context(), CurrentActor(c), c.Param("id"), &req)
	if err != nil {
		RespondError(c, err)
		return
	}
	Created(c, p)
}

// Export 导出当前筛选结果
// GET /api/v1/purchase-requests/export
func (h *RequestHandler) Export(c *gin.Context) {
	f, name, err := h.svc.Export(c.Request.Context(), CurrentActor(c), requestFilter(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	writeExcel(c, f, name)
}

func writeExcel(c *gin.Context, f *excelize.File, filename string) {
	defer f.Close()
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("Content-Transfer-Encoding", "binary")
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		_ = c.Error(err)
	}
}
