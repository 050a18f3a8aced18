package http

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	potatosync "github.com/broodroosterdev/potatosync-files"
)

// Service is the gateway as seen by the HTTP layer. *potatosync.Gateway
// implements it.
type Service interface {
	Authenticate(ctx context.Context, header http.Header) (potatosync.Principal, error)
	QuotaStatus(ctx context.Context, p potatosync.Principal) (potatosync.QuotaStatus, error)
	RequestUpload(ctx context.Context, p potatosync.Principal, name string, body io.Reader) (potatosync.UploadResult, error)
	RequestDownload(ctx context.Context, p potatosync.Principal, name string) (potatosync.Download, error)
	DeleteOne(ctx context.Context, p potatosync.Principal, name string) error
	DeleteAll(ctx context.Context, p potatosync.Principal) error
	List(ctx context.Context, p potatosync.Principal) ([]potatosync.ObjectInfo, error)
}

var _ Service = (*potatosync.Gateway)(nil)

type CORSConfig struct {
	Enabled          bool
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

type HandlerConfig struct {
	// MaxUploadSize limits streamed upload bodies in bytes. Zero means
	// unlimited.
	MaxUploadSize int64
	CORS          CORSConfig
}

// Upload and delete status values.
const (
	StatusUploadSuccess    = "UploadSuccess"
	StatusUploadURL        = "UploadURL"
	StatusDeleteSuccess    = "DeleteSuccess"
	StatusDeleteAllSuccess = "DeleteAllSuccess"
)

// UploadResponse is the body of a successful PUT /files/{name}.
type UploadResponse struct {
	Status string `json:"status"`
	ETag   string `json:"etag,omitempty"`
	Size   int64  `json:"size,omitempty"`
	URL    string `json:"url,omitempty"`
}

// DownloadURLResponse is returned by GET /files/{name} when the backend
// serves downloads through presigned URLs.
type DownloadURLResponse struct {
	URL string `json:"url"`
}

// StatusResponse is the body of successful deletes.
type StatusResponse struct {
	Status string `json:"status"`
}

// FileItem is one entry of ListResponse.
type FileItem struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

type ListResponse struct {
	Items []FileItem `json:"items"`
}

// Handler provides HTTP handlers for the gateway operations.
type Handler struct {
	config  HandlerConfig
	service Service
}

// NewHandler creates a new Handler with the given configuration and service.
func NewHandler(config *HandlerConfig, service Service) *Handler {
	return &Handler{
		config:  *config,
		service: service,
	}
}

// Router returns an http.Handler with every route behind AuthMiddleware.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(h.service))

		r.Get("/limit", h.handleLimit)

		r.Get("/files", h.handleList)
		r.Delete("/files", h.handleDeleteAll)

		r.Put("/files/{name}", h.handlePut)
		r.Get("/files/{name}", h.handleGet)
		r.Delete("/files/{name}", h.handleDelete)
	})

	return r
}

// fileName returns the decoded {name} path parameter.
func fileName(r *http.Request) (string, error) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || !potatosync.IsValidName(name) {
		return "", potatosync.ErrInvalidName
	}
	return name, nil
}

func principal(w http.ResponseWriter, r *http.Request) (potatosync.Principal, bool) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		HandleError(w, fmt.Errorf("%w: request has no principal", potatosync.ErrInternal))
	}
	return p, ok
}

func (h *Handler) handleLimit(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	status, err := h.service.QuotaStatus(r.Context(), p)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, status)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	objects, err := h.service.List(r.Context(), p)
	if err != nil {
		HandleError(w, err)
		return
	}

	items := make([]FileItem, 0, len(objects))
	for _, o := range objects {
		items = append(items, FileItem{Name: o.Key, Size: o.Size, ModifiedAt: o.ModTime})
	}

	_ = WriteJSON(w, http.StatusOK, ListResponse{Items: items})
}

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	name, err := fileName(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	var body io.Reader = r.Body
	if h.config.MaxUploadSize > 0 {
		body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadSize)
	}

	result, err := h.service.RequestUpload(r.Context(), p, name, body)
	if err != nil {
		HandleError(w, err)
		return
	}

	if result.IsDelegated() {
		_ = WriteJSON(w, http.StatusOK, UploadResponse{Status: StatusUploadURL, URL: result.URL.String()})
		return
	}

	_ = WriteJSON(w, http.StatusOK, UploadResponse{
		Status: StatusUploadSuccess,
		ETag:   result.ETag,
		Size:   result.BytesWritten,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	name, err := fileName(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	d, err := h.service.RequestDownload(r.Context(), p, name)
	if err != nil {
		HandleError(w, err)
		return
	}

	if d.IsRedirect() {
		_ = WriteJSON(w, http.StatusOK, DownloadURLResponse{URL: d.URL.String()})
		return
	}
	defer func() { _ = d.Content.Close() }()

	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))

	http.ServeContent(w, r, name, d.Info.ModTime, d.Content)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	name, err := fileName(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	if err := h.service.DeleteOne(r.Context(), p, name); err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, StatusResponse{Status: StatusDeleteSuccess})
}

func (h *Handler) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteAll(r.Context(), p); err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, StatusResponse{Status: StatusDeleteAllSuccess})
}
