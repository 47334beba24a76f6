package response

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kart-io/ieum/pkg/utils/errors"
)

func TestSuccess(t *testing.T) {
	r := Success(map[string]string{"answer": "ok"})
	assert.True(t, r.IsSuccess())
	assert.Equal(t, http.StatusOK, r.HTTPStatus())
	assert.NotZero(t, r.Timestamp)
}

func TestErrCarriesCause(t *testing.T) {
	r := FromError(errors.ErrExternalService.WithCause(fmt.Errorf("milvus unavailable")))
	assert.False(t, r.IsSuccess())
	assert.Equal(t, errors.ErrExternalService.Code, r.Code)
	assert.Equal(t, http.StatusBadGateway, r.HTTPStatus())
	assert.Contains(t, r.Message, "milvus unavailable")
}

func TestHTTPStatusFallback(t *testing.T) {
	r := &Response{Code: errors.ErrInvalidCategory.Code}
	assert.Equal(t, http.StatusBadRequest, r.HTTPStatus())

	r = &Response{Code: errors.MakeCode(errors.ServiceIeum, errors.CategoryRequest, 999)}
	assert.Equal(t, http.StatusBadRequest, r.HTTPStatus())
}
