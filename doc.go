// Package potatosync provides a per-user object storage gateway: callers are
// authenticated with a bearer token, limited to a fixed number of objects, and
// confined to a storage namespace derived from their subject identifier.
//
// # Key Components
//
//   - Gateway: combines an Authenticator, a QuotaGate and a Backend into the
//     operations exposed over HTTP (quota, upload, download, list, delete)
//   - Principal: the verified identity produced by authentication
//   - Backend: interface for namespaced object storage (local filesystem,
//     S3-compatible object store)
//   - QuotaGate: object-count quota checked before every upload
//
// # Backends
//
// Backends differ in how objects leave and enter the gateway:
//
//   - filesystem: uploads are streamed through the gateway and downloads are
//     served directly as byte streams
//   - objectstore: uploads and downloads are delegated to the client through
//     short-lived presigned URLs
//
// Callers must handle both shapes. See Download and UploadResult.
//
// # Example Usage
//
//	gw, err := potatosync.NewGateway(authenticator, backend, potatosync.GatewayConfig{FileLimit: 5})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	p, err := gw.Authenticate(ctx, r.Header)
//	if err != nil {
//	    // 401 / 503
//	}
//
//	res, err := gw.RequestUpload(ctx, p, "report.pdf", r.Body)
//
// See the auth package for token validation strategies and the http package
// for the REST API.
package potatosync
