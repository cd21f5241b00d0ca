package products

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/backoffice-console/backoffice/internal/apiclient"
	"github.com/backoffice-console/backoffice/internal/categories"
	"github.com/backoffice-console/backoffice/internal/console"
	"github.com/backoffice-console/backoffice/internal/platform/httpx"
	"github.com/backoffice-console/backoffice/internal/records"
)

// DefaultMaxUploadBytes caps product image uploads when no limit is configured.
const DefaultMaxUploadBytes = 5 << 20

// Uploader stores product images and returns their public URL.
type Uploader interface {
	UploadImage(ctx context.Context, filename string, content io.Reader) (string, error)
}

// PageOptions configures the products page.
type PageOptions struct {
	API            records.API
	Uploader       Uploader
	MaxUploadBytes int64
	ManagerOptions []records.Option
}

// NewPage builds the products page, including the image upload endpoint.
func NewPage(opts PageOptions, deps console.Deps) *console.Page[Product, Draft] {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	upload := NewUploadHandler(opts.Uploader, opts.MaxUploadBytes, logger)
	return console.NewPage(console.Config[Product, Draft]{
		Name:     "products",
		Title:    "Products",
		Singular: "Product",
		Template: "pages/products.html",
		Fields:   Fields,
		NewManager: func() *Manager {
			return NewManager(opts.API, opts.ManagerOptions...)
		},
		Extras: func(ctx context.Context) map[string]any {
			return map[string]any{"Categories": categoryOptions(ctx, opts.API, logger)}
		},
		Routes: func(r chi.Router) {
			r.Post("/upload-image", upload.ServeHTTP)
		},
	}, deps)
}

// categoryOptions feeds the category select. A failure yields an empty list.
func categoryOptions(ctx context.Context, api records.API, logger *slog.Logger) []categories.Category {
	list := []categories.Category{}
	if err := api.Get(ctx, categories.Resource, &list); err != nil {
		logger.WarnContext(ctx, "load category options", slog.Any("error", err))
		return []categories.Category{}
	}
	return list
}

// UploadHandler proxies a multipart image to the API and answers {"imageUrl": ...}.
type UploadHandler struct {
	uploader Uploader
	maxBytes int64
	logger   *slog.Logger
}

// NewUploadHandler constructs an UploadHandler. maxBytes <= 0 selects DefaultMaxUploadBytes.
func NewUploadHandler(uploader Uploader, maxBytes int64, logger *slog.Logger) *UploadHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadHandler{uploader: uploader, maxBytes: maxBytes, logger: logger}
}

func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := h.maxBytes
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+(64<<10))
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.RespondError(w, fmt.Errorf("%w: limit is %d bytes", httpx.ErrPayloadTooLarge, limit))
			return
		}
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	file, header, err := r.FormFile(apiclient.UploadImageField)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %s file is required", httpx.ErrValidation, apiclient.UploadImageField))
		return
	}
	defer file.Close()
	if header.Size > limit {
		httpx.RespondError(w, fmt.Errorf("%w: limit is %d bytes", httpx.ErrPayloadTooLarge, limit))
		return
	}

	kind, err := mimetype.DetectReader(file)
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return
	}
	if !strings.HasPrefix(kind.String(), "image/") {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrUnsupportedType, kind.String()))
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		httpx.RespondError(w, err)
		return
	}

	url, err := h.uploader.UploadImage(r.Context(), header.Filename, file)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "upload product image", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"imageUrl": url})
}
