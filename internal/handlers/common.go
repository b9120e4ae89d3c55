package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"acdispatch/internal/ac"
	"acdispatch/internal/config"
	"acdispatch/internal/db"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
	Err  string      `json:"err,omitempty"`
}

func ok(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Msg: msg, Data: data})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, Response{
		Code: http.StatusBadRequest,
		Msg:  "Invalid request",
		Err:  err.Error(),
	})
}

// fail 按错误类型映射状态码
func fail(c *gin.Context, msg string, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, ac.ErrUnknownRoom), errors.Is(err, db.ErrRoomNotFound):
		code = http.StatusNotFound
	case errors.Is(err, db.ErrRoomExists):
		code = http.StatusConflict
	case ac.IsValidationError(err), errors.Is(err, config.ErrInvalidConfig):
		code = http.StatusBadRequest
	}
	c.JSON(code, Response{Code: code, Msg: msg, Err: err.Error()})
}

// roomParam 解析路径中的房间号
func roomParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("roomId"))
	if err != nil || id <= 0 {
		badRequest(c, fmt.Errorf("invalid room id %q", c.Param("roomId")))
		return 0, false
	}
	return id, true
}
