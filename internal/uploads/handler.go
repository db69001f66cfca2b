package uploads

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pradeep-opticals/opticals-api/internal/auth"
	"github.com/pradeep-opticals/opticals-api/internal/platform/httpx"
)

// Handler accepts prescription uploads from authenticated users.
type Handler struct {
	logger  *slog.Logger
	storage *Storage
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, storage *Storage) *Handler {
	return &Handler{logger: logger, storage: storage}
}

// MountRoutes registers the upload endpoint and the static file server for
// previously stored files.
func (h *Handler) MountRoutes(r chi.Router, mw *auth.Middleware) {
	r.With(mw.Authenticate).Post("/uploads", h.Upload)
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(h.storage.Dir()))))
}

type uploadResponse struct {
	URL string `json:"url"`
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxFileSize+4096)

	file, _, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", `multipart field "file" is required`)
		return
	}
	defer file.Close()

	url, err := h.storage.Save(file)
	if err != nil {
		switch {
		case errors.Is(err, ErrFileTooLarge):
			httpx.Problem(w, http.StatusRequestEntityTooLarge, "File Too Large", err.Error())
		case errors.Is(err, ErrUnsupportedType):
			httpx.Problem(w, http.StatusUnsupportedMediaType, "Unsupported Type", err.Error())
		default:
			h.logger.Error("store upload", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}

	httpx.JSON(w, http.StatusCreated, uploadResponse{URL: url})
}
