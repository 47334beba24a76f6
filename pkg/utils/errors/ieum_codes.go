package errors

import "net/http"

// ieum 服务代码: 21 (业务服务范围 20-79)
// 错误码格式: AABBCCC

var (
	// 请求参数错误 (类别 01)
	ErrInvalidRequest      = Register(New(MakeCode(ServiceIeum, CategoryRequest, 1), http.StatusBadRequest, "Invalid request parameters", "요청 파라미터가 올바르지 않습니다"))
	ErrInvalidCategory     = Register(New(MakeCode(ServiceIeum, CategoryRequest, 2), http.StatusBadRequest, "Invalid category", "지원하지 않는 카테고리입니다"))
	ErrUnsupportedFileType = Register(New(MakeCode(ServiceIeum, CategoryRequest, 3), http.StatusBadRequest, "Unsupported file type for category", "카테고리에서 지원하지 않는 파일 형식입니다"))

	// 资源错误 (类别 04 / 05)
	ErrTemplateNotFound = Register(New(MakeCode(ServiceIeum, CategoryResource, 1), http.StatusNotFound, "No style template found", "스타일 템플릿이 없습니다"))
	ErrIngestInProgress = Register(New(MakeCode(ServiceIeum, CategoryConflict, 1), http.StatusConflict, "Ingestion of this file is already in progress", "같은 파일의 업로드가 진행 중입니다"))

	// 内部错误 (类别 07 / 12)
	ErrIngestFailed = Register(New(MakeCode(ServiceIeum, CategoryInternal, 1), http.StatusInternalServerError, "Document ingestion failed", "문서 인덱싱에 실패했습니다"))
	ErrDeleteFailed = Register(New(MakeCode(ServiceIeum, CategoryInternal, 2), http.StatusInternalServerError, "Document deletion failed", "문서 삭제에 실패했습니다"))
	ErrPatchFailed  = Register(New(MakeCode(ServiceIeum, CategoryInternal, 3), http.StatusInternalServerError, "Template patching failed", "템플릿 생성에 실패했습니다"))
	ErrChunkConfig  = Register(New(MakeCode(ServiceIeum, CategoryConfig, 1), http.StatusInternalServerError, "Invalid chunk configuration", "청크 설정이 올바르지 않습니다"))

	// 外部服务错误 (类别 13 / 14)
	ErrExternalService = Register(New(MakeCode(ServiceIeum, CategoryUpstream, 1), http.StatusBadGateway, "External service call failed", "외부 서비스 호출에 실패했습니다"))
	ErrSchema          = Register(New(MakeCode(ServiceIeum, CategoryMalformed, 1), http.StatusBadGateway, "Model response did not match the expected schema", "모델 응답 형식이 올바르지 않습니다"))
)
