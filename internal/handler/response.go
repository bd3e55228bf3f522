package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/park285/llm-kakao-bots/study-proxy-go/internal/httperror"
)

// writeError 는 오류를 {error, details?} 본문으로 응답한다.
func writeError(c *gin.Context, err error) {
	if c == nil {
		return
	}
	status, body := httperror.Response(err)
	c.AbortWithStatusJSON(status, body)
}
