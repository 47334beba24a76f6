package errors

import "net/http"

// OK represents a successful operation.
var OK = Register(New(0, http.StatusOK, "Success", "성공"))

var (
	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = Register(New(MakeCode(ServiceCommon, CategoryRequest, 0), http.StatusBadRequest, "Bad request", "잘못된 요청"))

	// ErrNotFound indicates a missing resource.
	ErrNotFound = Register(New(MakeCode(ServiceCommon, CategoryResource, 0), http.StatusNotFound, "Resource not found", "리소스를 찾을 수 없습니다"))

	// ErrInternal indicates an unexpected server error.
	ErrInternal = Register(New(MakeCode(ServiceCommon, CategoryInternal, 0), http.StatusInternalServerError, "Internal server error", "서버 내부 오류"))

	// ErrPanic indicates a recovered panic.
	ErrPanic = Register(New(MakeCode(ServiceCommon, CategoryInternal, 1), http.StatusInternalServerError, "Internal server panic", "서버 내부 오류"))

	// ErrRequestTooLarge indicates an oversized request body.
	ErrRequestTooLarge = Register(New(MakeCode(ServiceCommon, CategoryRequest, 1), http.StatusRequestEntityTooLarge, "Request entity too large", "요청 크기가 너무 큽니다"))
)
