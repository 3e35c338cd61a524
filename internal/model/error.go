package model

// AppError is the only error payload returned by this service.
// Core packages wrap it in their own typed errors; the HTTP layer serializes it as-is.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Stage   string `json:"stage"`

	URL     string `json:"url,omitempty"`
	Line    int    `json:"line,omitempty"`    // 1-based; 0 means "not set"
	Snippet string `json:"snippet,omitempty"` // <= 200 chars
	Hint    string `json:"hint,omitempty"`
}

type ErrorResponse struct {
	Error AppError `json:"error"`
}

// Diagnostic records a condition the engine recovered from locally.
// A compilation run never fails because of one; callers may surface them as warnings.
type Diagnostic struct {
	Code    string `json:"code" yaml:"code"`
	Stage   string `json:"stage" yaml:"stage"`
	Subject string `json:"subject,omitempty" yaml:"subject,omitempty"`
	Message string `json:"message" yaml:"message"`
}

const (
	CodeUnsupportedKind     = "UNSUPPORTED_PROTOCOL_KIND"
	CodeDescriptorInvalid   = "DESCRIPTOR_INVALID"
	CodeDuplicateProxy      = "DUPLICATE_PROXY"
	CodeUnresolvedCategory  = "UNRESOLVED_CATEGORY"
	CodeInvalidMatcherValue = "INVALID_MATCHER_VALUE"
	CodeLocalizationMiss    = "LOCALIZATION_MISS"
)
