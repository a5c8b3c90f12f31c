package controller

import (
	"ai_tutor_backend/internal/model"
	"ai_tutor_backend/internal/service"
	"ai_tutor_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type MistakeController struct {
	MistakeService *service.MistakeService
}

func NewMistakeController(mistakeService *service.MistakeService) *MistakeController {
	return &MistakeController{MistakeService: mistakeService}
}

type createMistakeRequest struct {
	UserID        string                 `json:"userId" binding:"required"`
	Subject       string                 `json:"subject" binding:"required"`
	Title         string                 `json:"title"`
	OCRText       string                 `json:"ocrText"`
	ImageURLs     []string               `json:"imageUrls"`
	CorrectAnswer string                 `json:"correctAnswer"`
	Grade         string                 `json:"grade"`
	AIFeedback    map[string]interface{} `json:"aiFeedback"`
}

// @Summary 新建错题
// @Description 错题入库并自动抽取、关联知识点
// @Tags 错题
// @Accept json
// @Produce json
// @Param request body createMistakeRequest true "错题内容"
// @Success 201 {object} util.Response
// @Router /api/mistakes [post]
func (c *MistakeController) Create(ctx *gin.Context) {
	var req createMistakeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "invalid request body")
		return
	}

	reply, err := c.MistakeService.Create(ctx.Request.Context(), &service.CreateMistakeInput{
		UserID:        req.UserID,
		Subject:       model.Subject(req.Subject),
		Title:         req.Title,
		OCRText:       req.OCRText,
		ImageURLs:     req.ImageURLs,
		CorrectAnswer: req.CorrectAnswer,
		Grade:         req.Grade,
		AIFeedback:    req.AIFeedback,
	})
	if err != nil {
		util.FromError(ctx, err)
		return
	}

	util.Created(ctx, reply)
}

// @Summary 错题详情
// @Tags 错题
// @Produce json
// @Param id path string true "错题ID"
// @Param userId query string true "用户ID"
// @Success 200 {object} util.Response
// @Router /api/mistakes/{id} [get]
func (c *MistakeController) Get(ctx *gin.Context) {
	userID := ctx.Query("userId")
	if userID == "" {
		util.BadRequest(ctx, "userId is required")
		return
	}

	reply, err := c.MistakeService.Get(ctx.Request.Context(), ctx.Param("id"), userID)
	if err != nil {
		util.FromError(ctx, err)
		return
	}

	util.Success(ctx, reply)
}

type associateRequest struct {
	UserID     string                 `json:"userId" binding:"required"`
	Grade      string                 `json:"grade"`
	AIFeedback map[string]interface{} `json:"aiFeedback"`
	Reset      bool                   `json:"reset"`
}

// @Summary 关联知识点
// @Description 对已有错题重新抽取并关联知识点；默认增量，reset=true 先清空旧关联
// @Tags 错题
// @Accept json
// @Produce json
// @Param id path string true "错题ID"
// @Param request body associateRequest true "关联请求"
// @Success 200 {object} util.Response
// @Router /api/mistakes/{id}/associate [post]
func (c *MistakeController) Associate(ctx *gin.Context) {
	var req associateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "invalid request body")
		return
	}

	created, err := c.MistakeService.Associate(ctx.Request.Context(),
		ctx.Param("id"), req.UserID, req.Grade, req.AIFeedback, req.Reset)
	if err != nil {
		util.FromError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"associations": created})
}

// @Summary 错题知识点列表
// @Description 错题名下的知识点关联视图，带实时掌握度
// @Tags 错题
// @Produce json
// @Param id path string true "错题ID"
// @Param userId query string true "用户ID"
// @Success 200 {object} util.Response
// @Router /api/mistakes/{id}/knowledge-points [get]
func (c *MistakeController) KnowledgePoints(ctx *gin.Context) {
	userID := ctx.Query("userId")
	if userID == "" {
		util.BadRequest(ctx, "userId is required")
		return
	}

	replies, err := c.MistakeService.KnowledgePoints(ctx.Request.Context(), ctx.Param("id"), userID)
	if err != nil {
		util.FromError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"knowledgePoints": replies})
}
