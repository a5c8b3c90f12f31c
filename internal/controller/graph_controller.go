package controller

import (
	"strconv"

	"ai_tutor_backend/internal/model"
	"ai_tutor_backend/internal/service"
	"ai_tutor_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GraphController struct {
	GraphService *service.GraphService
}

func NewGraphController(graphService *service.GraphService) *GraphController {
	return &GraphController{GraphService: graphService}
}

func (c *GraphController) userAndSubject(ctx *gin.Context) (string, model.Subject, bool) {
	userID := ctx.Query("userId")
	subject := model.Subject(ctx.Query("subject"))
	if userID == "" {
		util.BadRequest(ctx, "userId is required")
		return "", "", false
	}
	if !subject.Valid() {
		util.BadRequest(ctx, "unknown subject")
		return "", "", false
	}
	return userID, subject, true
}

// @Summary 复习路径推荐
// @Description 按掌握缺口、前置薄弱、遗忘风险、关联链加权排序
// @Tags 知识图谱
// @Produce json
// @Param userId query string true "用户ID"
// @Param subject query string true "学科"
// @Param limit query int false "返回数量" default(10)
// @Success 200 {object} util.Response
// @Router /api/graph/recommendations [get]
func (c *GraphController) Recommendations(ctx *gin.Context) {
	userID, subject, ok := c.userAndSubject(ctx)
	if !ok {
		return
	}

	limit := 10
	if raw := ctx.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	items, err := c.GraphService.RecommendReviewPath(ctx.Request.Context(), userID, subject, limit)
	if err != nil {
		util.FromError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"recommendations": items})
}

// @Summary 薄弱知识链条
// @Tags 知识图谱
// @Produce json
// @Param userId query string true "用户ID"
// @Param subject query string true "学科"
// @Param limit query int false "返回数量" default(10)
// @Success 200 {object} util.Response
// @Router /api/graph/weak-chains [get]
func (c *GraphController) WeakChains(ctx *gin.Context) {
	userID, subject, ok := c.userAndSubject(ctx)
	if !ok {
		return
	}

	limit := 10
	if raw := ctx.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	chains, err := c.GraphService.GetWeakChains(ctx.Request.Context(), userID, subject, limit)
	if err != nil {
		util.FromError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"weakChains": chains})
}

// @Summary 学习上下文
// @Description 生成中文学习上下文文本，供下游AI分析提示词使用
// @Tags 知识图谱
// @Produce json
// @Param userId query string true "用户ID"
// @Param subject query string true "学科"
// @Success 200 {object} util.Response
// @Router /api/graph/learning-context [get]
func (c *GraphController) LearningContext(ctx *gin.Context) {
	userID, subject, ok := c.userAndSubject(ctx)
	if !ok {
		return
	}

	text, err := c.GraphService.BuildLearningContext(ctx.Request.Context(), userID, subject)
	if err != nil {
		util.FromError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"context": text})
}

type createSnapshotRequest struct {
	UserID     string `json:"userId" binding:"required"`
	Subject    string `json:"subject" binding:"required"`
	PeriodType string `json:"periodType"`
}

// @Summary 生成知识图谱快照
// @Tags 知识图谱
// @Accept json
// @Produce json
// @Param request body createSnapshotRequest true "快照请求"
// @Success 201 {object} util.Response
// @Router /api/graph/snapshots [post]
func (c *GraphController) CreateSnapshot(ctx *gin.Context) {
	var req createSnapshotRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, "invalid request body")
		return
	}

	subject := model.Subject(req.Subject)
	if !subject.Valid() {
		util.BadRequest(ctx, "unknown subject")
		return
	}

	periodType := model.PeriodType(req.PeriodType)
	switch periodType {
	case model.PeriodDaily, model.PeriodWeekly, model.PeriodManual, model.PeriodTest:
	case "":
		periodType = model.PeriodManual
	default:
		util.BadRequest(ctx, "unknown periodType")
		return
	}

	id, err := c.GraphService.CreateSnapshot(ctx.Request.Context(), req.UserID, subject, periodType)
	if err != nil {
		util.FromError(ctx, err)
		return
	}

	util.Created(ctx, gin.H{"snapshotId": id})
}

// @Summary 最新知识图谱快照
// @Tags 知识图谱
// @Produce json
// @Param userId query string true "用户ID"
// @Param subject query string true "学科"
// @Success 200 {object} util.Response
// @Router /api/graph/snapshots/latest [get]
func (c *GraphController) LatestSnapshot(ctx *gin.Context) {
	userID, subject, ok := c.userAndSubject(ctx)
	if !ok {
		return
	}

	reply, err := c.GraphService.GetLatestSnapshot(ctx.Request.Context(), userID, subject)
	if err != nil {
		util.FromError(ctx, err)
		return
	}

	util.Success(ctx, reply)
}
