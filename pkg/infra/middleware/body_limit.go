package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/ieum/pkg/utils/errors"
	"github.com/kart-io/ieum/pkg/utils/response"
)

// BodyLimit 限制请求体大小，limit 非正时不限制。
// 声明长度超限的请求直接返回 413，其余请求在读取超限时由处理器报错。
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > limit {
			resp := response.Err(errors.ErrRequestTooLarge).WithRequestID(GetRequestID(c.Request.Context()))
			c.AbortWithStatusJSON(resp.HTTPStatus(), resp)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
