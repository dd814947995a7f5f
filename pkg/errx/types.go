package errx

// Type represents the category of error
type Type string

const (
	TypeInternal      Type = "INTERNAL"
	TypeValidation    Type = "VALIDATION"
	TypeAuthorization Type = "AUTHORIZATION"
	TypeNotFound      Type = "NOT_FOUND"
	TypeConflict      Type = "CONFLICT"
	TypeBusiness      Type = "BUSINESS"

	// TypeExternal covers failures of OCR providers, renderers and storage backends.
	TypeExternal Type = "EXTERNAL"

	// TypeTimeout is used when a deadline expired before work finished.
	TypeTimeout Type = "TIMEOUT"
)

func (t Type) String() string {
	return string(t)
}
