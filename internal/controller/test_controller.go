package controller

import (
	"errors"

	"quizhub_backend/internal/service"
	"quizhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type TestController struct {
	Service *service.TestService
}

func NewTestController(svc *service.TestService) *TestController {
	return &TestController{Service: svc}
}

// @Summary 测试列表
// @Tags 测试
// @Produce json
// @Success 200 {object} util.Response{data=[]repository.TestListRow}
// @Router /tests [get]
func (c *TestController) List(ctx *gin.Context) {
	rows, err := c.Service.ListTests(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, rows)
}

// @Summary 测试详情
// @Description 题目按顺序返回，包含选项与正确选项提示
// @Tags 测试
// @Produce json
// @Param id path int true "测试ID"
// @Success 200 {object} util.Response{data=service.TestDetail}
// @Failure 404 {object} util.Response
// @Router /tests/{id} [get]
func (c *TestController) Detail(ctx *gin.Context) {
	id, ok := util.ParseID(ctx.Param("id"))
	if !ok {
		util.NotFound(ctx)
		return
	}

	detail, err := c.Service.GetTestDetail(ctx.Request.Context(), id)
	if errors.Is(err, util.ErrTestNotFound) {
		util.NotFound(ctx)
		return
	}
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, detail)
}
