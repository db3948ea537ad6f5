package router

// Problem codes carried in the "code" field of error bodies.
const (
	ErrInternalCode           = "INTERNAL_ERROR"
	ErrBadRequestCode         = "BAD_REQUEST"
	ErrValidationCode         = "VALIDATION_ERROR"
	ErrNotFoundCode           = "NOT_FOUND"
	ErrConflictCode           = "DUPLICATE_DOCUMENT"
	ErrPayloadTooLargeCode    = "PAYLOAD_TOO_LARGE"
	ErrParseCode              = "PARSE_ERROR"
	ErrEmbeddingCode          = "EMBEDDING_ERROR"
	ErrGenerationCode         = "GENERATION_ERROR"
	ErrServiceUnavailableCode = "SERVICE_UNAVAILABLE"
	ErrRateLimitedCode        = "RATE_LIMITED"
)

const (
	ErrMsgAppStateNotInitialized = "application state not initialized"
	ErrMsgInvalidBody            = "request body must be valid JSON"
)
