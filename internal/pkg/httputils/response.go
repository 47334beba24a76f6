// Package httputils provides HTTP utility functions.
package httputils

import (
	"github.com/gin-gonic/gin"

	"github.com/kart-io/ieum/pkg/infra/middleware"
	"github.com/kart-io/ieum/pkg/utils/errors"
	"github.com/kart-io/ieum/pkg/utils/response"
)

// WriteResponse writes the response to the client.
// It handles both success and error cases, ensuring consistent response format.
func WriteResponse(c *gin.Context, err error, data interface{}) {
	var resp *response.Response
	if err != nil {
		e := errors.FromError(err)
		resp = response.ErrWithLang(e, Lang(c))
		_ = c.Error(err)
	} else {
		resp = response.Success(data)
	}

	resp.WithRequestID(middleware.GetRequestID(c.Request.Context()))
	c.JSON(resp.HTTPStatus(), resp)
}

// Lang 从 Accept-Language 头取响应语言，仅区分 ko 与 en。
func Lang(c *gin.Context) string {
	if al := c.GetHeader("Accept-Language"); len(al) >= 2 && al[:2] == "ko" {
		return "ko"
	}
	return "en"
}
