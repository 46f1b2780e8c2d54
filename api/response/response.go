package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeOK           = 0  // 成功
	CodeFail         = -1 // 通用失败
	CodeNotFound     = 404
	CodeUnauthorized = 401
	CodeTooMany      = 429
)

type Response struct {
	Code int         `json:"code"` // 0:成功, 其他:失败
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code: CodeOK,
		Msg:  "success",
		Data: data,
	})
}

func Fail(c *gin.Context, msg string) {
	FailWithCode(c, CodeFail, msg)
}

// FailWithCode 业务错误统一返回 HTTP 200，错误类型放在 code 里
func FailWithCode(c *gin.Context, code int, msg string) {
	c.JSON(http.StatusOK, Response{
		Code: code,
		Msg:  msg,
		Data: nil,
	})
}

// Abort 中间件拒绝请求时使用，会带上真实的 HTTP 状态码
func Abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, Response{
		Code: status,
		Msg:  msg,
	})
}
