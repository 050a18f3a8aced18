package clientcli

import "time"

// UploadOptions configures an upload operation.
type UploadOptions struct {
	LocalPath   string
	Name        string // optional, defaults to the base name of LocalPath
	ContentType string // optional, auto-detect if empty
}

// UploadResult represents the result of uploading a single file.
type UploadResult struct {
	LocalPath string `json:"local_path"`
	Name      string `json:"name"`
	ETag      string `json:"etag,omitempty"`
	Size      int64  `json:"size_bytes"`
	// Presigned is set when the file was sent straight to object storage
	// through a URL handed out by the server.
	Presigned bool  `json:"presigned"`
	Err       error `json:"-"` // nil on success
}

// DownloadOptions configures a download operation.
type DownloadOptions struct {
	Name      string
	LocalPath string // empty = same as Name, "-" = stdout
}

// DownloadResult represents the result of downloading a file.
type DownloadResult struct {
	Name        string `json:"name"`
	LocalPath   string `json:"local_path"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size_bytes"`
	Presigned   bool   `json:"presigned"`
}

// DeleteOptions configures a delete operation.
type DeleteOptions struct {
	Names []string
}

// DeleteResult represents the result of deleting a single file.
type DeleteResult struct {
	Name    string `json:"name"`
	Deleted bool   `json:"deleted"`
	Err     error  `json:"-"` // nil on success
}

// QuotaResult is the caller's usage against the server's file limit.
type QuotaResult struct {
	Used  int `json:"used"`
	Limit int `json:"limit"`
}

// Remaining returns how many more files may be uploaded.
func (q *QuotaResult) Remaining() int {
	return max(q.Limit-q.Used, 0)
}

// ListResult contains the caller's files.
type ListResult struct {
	Items []ObjectInfo `json:"items"`
}

// ObjectInfo represents metadata for a single file.
type ObjectInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// serverUpload mirrors the JSON response of PUT /files/{name}.
type serverUpload struct {
	Status string `json:"status"`
	ETag   string `json:"etag"`
	Size   int64  `json:"size"`
	URL    string `json:"url"`
}

// serverURL mirrors the JSON response of GET /files/{name} when the server
// hands out a presigned download URL.
type serverURL struct {
	URL string `json:"url"`
}

// serverError mirrors the JSON error body of every endpoint.
type serverError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Upload status values returned by the server.
const (
	statusUploadSuccess = "UploadSuccess"
	statusUploadURL     = "UploadURL"
)
