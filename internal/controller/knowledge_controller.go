package controller

import (
	"ai_tutor_backend/internal/model"
	"ai_tutor_backend/internal/service"
	"ai_tutor_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type KnowledgeController struct {
	ExtractorService *service.ExtractorService
}

func NewKnowledgeController(extractorService *service.ExtractorService) *KnowledgeController {
	return &KnowledgeController{ExtractorService: extractorService}
}

type extractRequest struct {
	Subject string `json:"subject" binding:"required"`
	Text    string `json:"text" binding:"required"`
	Grade   string `json:"grade"`
}

// @Summary 抽取知识点
// @Description 从题目文本中抽取知识点（规则+AI混合）
// @Tags 知识点
// @Accept json
// @Produce json
// @Param request body extractRequest true "抽取请求"
// @Success 200 {object} util.Response
// @Router /api/knowledge/extract [post]
func (c *KnowledgeController) Extract(ctx *gin.Context) {
	var req extractRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "invalid request body")
		return
	}

	subject := model.Subject(req.Subject)
	if !subject.Valid() {
		util.BadRequest(ctx, "unknown subject")
		return
	}

	kps := c.ExtractorService.ExtractFromText(ctx.Request.Context(), req.Text, subject, req.Grade)
	util.Success(ctx, gin.H{"knowledgePoints": kps})
}
