// Package http exposes the potatosync gateway over HTTP.
//
// Every route requires a bearer token. AuthMiddleware authenticates the
// request once and stores the Principal in the request context; handlers
// never see unauthenticated requests.
//
// # Routes
//
//	GET    /limit         quota status {"used","limit"}
//	GET    /files         list the caller's files
//	PUT    /files/{name}  upload; body is streamed to the backend, or a
//	                      presigned upload URL is returned
//	GET    /files/{name}  download; bytes are streamed, or a presigned
//	                      download URL is returned
//	DELETE /files/{name}  delete one file
//	DELETE /files         delete every file of the caller
//
// # Errors
//
// Errors are JSON objects with "error" and "message" fields. HandleError
// maps gateway and auth errors to status codes:
//
//	400 InvalidFilename, InvalidInput, ExceededLimit
//	401 MissingToken, MalformedToken, InvalidToken, UnknownKey
//	404 FileDoesntExist
//	413 PayloadTooLarge
//	500 PartialBulkDelete, InternalError
//	503 KeySetUnavailable, IntrospectionUnavailable
//
// # Usage
//
//	gateway, _ := potatosync.NewGateway(authn, backend, potatosync.GatewayConfig{FileLimit: 45})
//	handler := http.NewHandler(&http.HandlerConfig{MaxUploadSize: 1 << 30}, gateway)
//	srv := &nethttp.Server{Addr: ":5708", Handler: handler.Router()}
package http
