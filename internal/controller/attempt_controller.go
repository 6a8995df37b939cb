package controller

import (
	"errors"
	"net/http"

	"quizhub_backend/internal/scoring"
	"quizhub_backend/internal/service"
	"quizhub_backend/internal/util"
	"quizhub_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// retryAfterSeconds is sent with 503 responses for failed commits.
const retryAfterSeconds = 1

type AttemptController struct {
	Service *service.AttemptService
}

func NewAttemptController(svc *service.AttemptService) *AttemptController {
	return &AttemptController{Service: svc}
}

type validationErrorData struct {
	Kind       scoring.ErrorKind `json:"kind"`
	Field      string            `json:"field"`
	Reason     string            `json:"reason"`
	QuestionID *uint             `json:"question_id,omitempty"`
	ChoiceID   *uint             `json:"choice_id,omitempty"`
}

// @Summary 提交答题并记录成绩
// @Description 校验并评分，在一个事务内写入 Attempt 及每题答案
// @Tags 答题
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.SubmitAttemptRequest true "答题内容"
// @Success 201 {object} util.Response{data=scoring.Result}
// @Failure 400 {object} util.Response
// @Failure 401 {object} util.Response
// @Failure 404 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /attempts [post]
func (c *AttemptController) Submit(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	sub, ok := bindSubmission(ctx)
	if !ok {
		return
	}

	res, err := c.Service.Submit(ctx.Request.Context(), sub, user.UserID)
	if err != nil {
		writeScoringError(ctx, err)
		return
	}

	util.Created(ctx, res)
}

// @Summary 预览评分
// @Description 与提交相同的校验与评分，不写入任何数据，允许匿名
// @Tags 答题
// @Accept json
// @Produce json
// @Param body body service.SubmitAttemptRequest true "答题内容"
// @Success 200 {object} util.Response{data=scoring.Result}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /attempts/preview [post]
func (c *AttemptController) Preview(ctx *gin.Context) {
	sub, ok := bindSubmission(ctx)
	if !ok {
		return
	}

	res, err := c.Service.Preview(ctx.Request.Context(), sub)
	if err != nil {
		writeScoringError(ctx, err)
		return
	}

	util.Success(ctx, res)
}

// @Summary 我的答题记录
// @Tags 答题
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]repository.AttemptSummary}
// @Failure 401 {object} util.Response
// @Router /attempts/my [get]
func (c *AttemptController) My(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	rows, err := c.Service.ListAttemptsForUser(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, rows)
}

// @Summary 答题记录详情
// @Description 只能查看自己的记录，包含每题的选择与对错
// @Tags 答题
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Attempt ID"
// @Success 200 {object} util.Response{data=model.Attempt}
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /attempts/{id} [get]
func (c *AttemptController) Get(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	id, ok := util.ParseID(ctx.Param("id"))
	if !ok {
		util.NotFound(ctx)
		return
	}

	attempt, err := c.Service.GetAttempt(ctx.Request.Context(), user.UserID, id)
	switch {
	case errors.Is(err, util.ErrAttemptNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	case err != nil:
		util.LogInternalError(ctx, err)
	default:
		util.Success(ctx, attempt)
	}
}

func bindSubmission(ctx *gin.Context) (scoring.Submission, bool) {
	var req service.SubmitAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.ErrorWithData(ctx, http.StatusBadRequest, "malformed request body", validationErrorData{
			Kind:   scoring.KindMalformedInput,
			Field:  "body",
			Reason: err.Error(),
		})
		return scoring.Submission{}, false
	}

	sub, ok := req.ToSubmission()
	if !ok {
		util.ErrorWithData(ctx, http.StatusBadRequest, "invalid test_id", validationErrorData{
			Kind:   scoring.KindMalformedInput,
			Field:  "test_id",
			Reason: "test_id must be a positive integer",
		})
		return scoring.Submission{}, false
	}
	return sub, true
}

func writeScoringError(ctx *gin.Context, err error) {
	var ve *scoring.ValidationError
	if errors.As(err, &ve) {
		data := validationErrorData{
			Kind:       ve.Kind,
			Field:      ve.Field,
			Reason:     ve.Message,
			QuestionID: ve.QuestionID,
			ChoiceID:   ve.ChoiceID,
		}
		status := http.StatusBadRequest
		if ve.Kind == scoring.KindNotFound {
			status = http.StatusNotFound
		}
		util.ErrorWithData(ctx, status, ve.Message, data)
		return
	}

	if scoring.IsRetryable(err) {
		logger.Log.Warn("Attempt commit rolled back",
			zap.String("request_id", ctx.GetString(util.ContextRequestIDKey)),
			zap.Error(err))
		util.ServiceUnavailable(ctx, "attempt could not be saved, please retry", retryAfterSeconds)
		return
	}

	util.LogInternalError(ctx, err)
}
