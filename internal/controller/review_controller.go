package controller

import (
	"ai_tutor_backend/internal/model"
	"ai_tutor_backend/internal/service"
	"ai_tutor_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ReviewController struct {
	ReviewService *service.ReviewService
}

func NewReviewController(reviewService *service.ReviewService) *ReviewController {
	return &ReviewController{ReviewService: reviewService}
}

type startReviewRequest struct {
	UserID    string `json:"userId" binding:"required"`
	MistakeID string `json:"mistakeId" binding:"required"`
}

// @Summary 开始复习
// @Description 创建三段式复习会话，从原题重做开始
// @Tags 复习
// @Accept json
// @Produce json
// @Param request body startReviewRequest true "复习请求"
// @Success 201 {object} util.Response
// @Router /api/review/start [post]
func (c *ReviewController) Start(ctx *gin.Context) {
	var req startReviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "invalid request body")
		return
	}

	reply, err := c.ReviewService.Start(ctx.Request.Context(), req.UserID, req.MistakeID)
	if err != nil {
		util.FromError(ctx, err)
		return
	}

	util.Created(ctx, reply)
}

// @Summary 复习会话状态
// @Tags 复习
// @Produce json
// @Param id path string true "会话ID"
// @Param userId query string true "用户ID"
// @Success 200 {object} util.Response
// @Router /api/review/sessions/{id} [get]
func (c *ReviewController) GetState(ctx *gin.Context) {
	userID := ctx.Query("userId")
	if userID == "" {
		util.BadRequest(ctx, "userId is required")
		return
	}

	reply, err := c.ReviewService.GetState(ctx.Request.Context(), ctx.Param("id"), userID)
	if err != nil {
		util.FromError(ctx, err)
		return
	}

	util.Success(ctx, reply)
}

type submitReviewRequest struct {
	UserID string `json:"userId" binding:"required"`
	Answer string `json:"answer"`
	Skip   bool   `json:"skip"`
}

// @Summary 提交复习答案
// @Description 提交当前阶段答案或跳过；答对推进阶段，答错或跳过会话终止
// @Tags 复习
// @Accept json
// @Produce json
// @Param id path string true "会话ID"
// @Param request body submitReviewRequest true "提交内容"
// @Success 200 {object} util.Response
// @Router /api/review/sessions/{id}/submit [post]
func (c *ReviewController) Submit(ctx *gin.Context) {
	var req submitReviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "invalid request body")
		return
	}

	reply, err := c.ReviewService.Submit(ctx.Request.Context(), ctx.Param("id"), req.UserID, req.Answer, req.Skip)
	if err != nil {
		util.FromError(ctx, err)
		return
	}

	util.Success(ctx, reply)
}

type masteryUpdateRequest struct {
	MistakeID  string `json:"mistakeId" binding:"required"`
	Result     string `json:"result" binding:"required"`
	Confidence int    `json:"confidence"`
}

// @Summary 按复习结果更新掌握度
// @Description 复习引擎之外的直接回写入口
// @Tags 复习
// @Accept json
// @Produce json
// @Param request body masteryUpdateRequest true "复习结果"
// @Success 200 {object} util.Response
// @Router /api/review/mastery [post]
func (c *ReviewController) UpdateMastery(ctx *gin.Context) {
	var req masteryUpdateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "invalid request body")
		return
	}

	result := model.ReviewResult(req.Result)
	switch result {
	case model.ResultCorrect, model.ResultIncorrect, model.ResultPartial:
	default:
		util.BadRequest(ctx, "result must be correct, incorrect or partial")
		return
	}

	if err := c.ReviewService.UpdateMasteryAfterReview(ctx.Request.Context(),
		req.MistakeID, result, req.Confidence); err != nil {
		util.FromError(ctx, err)
		return
	}

	util.Success(ctx, nil)
}
