package http

// Error codes returned in the "error" field of error responses. Auth
// failures use the auth.Kind name instead.
const (
	CodeInvalidFilename   = "InvalidFilename"
	CodeInvalidInput      = "InvalidInput"
	CodeExceededLimit     = "ExceededLimit"
	CodeFileDoesntExist   = "FileDoesntExist"
	CodePayloadTooLarge   = "PayloadTooLarge"
	CodePartialBulkDelete = "PartialBulkDelete"
	CodeInternalError     = "InternalError"
)
