package documents

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/platform/httpx"
)

// Handler exposes the upload boundary and document status endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs the documents HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(4 << 20); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "missing file field")
		return
	}
	defer file.Close()

	doc, err := h.service.Upload(r.Context(), UploadInput{
		OwnerID:  ownerFromRequest(r),
		FileName: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Content:  file,
	})
	if err != nil {
		if !errors.Is(err, httpx.ErrValidation) {
			h.logger.Error("upload document", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(doc))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	doc, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(doc))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.List(r.Context(), ownerFromRequest(r))
	if err != nil {
		h.logger.Error("list documents", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toResponse(doc))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		if !errors.Is(err, httpx.ErrNotFound) {
			h.logger.Error("delete document", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func documentID(r *http.Request) (uuid.UUID, error) {
	raw := pathParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, httpx.ErrValidation
	}
	return id, nil
}

// ownerFromRequest reads the owner identity forwarded by the platform's auth
// proxy. Authentication itself is delegated upstream.
func ownerFromRequest(r *http.Request) int64 {
	return ownerHeader(r.Header.Get("X-Owner-ID"))
}
