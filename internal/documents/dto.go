package documents

import (
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/platform/httpx"
)

// MaxUploadBytes is the default upload size ceiling (50 MB).
const MaxUploadBytes = 50 << 20

// allowedMimeTypes is the upload allow-list: PDF, common image formats,
// Office formats, CSV and plain text.
var allowedMimeTypes = map[string]struct{}{
	"application/pdf": {},
	"image/png":       {},
	"image/jpeg":      {},
	"image/gif":       {},
	"image/webp":      {},
	"image/tiff":      {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       {},
	"application/msword":       {},
	"application/vnd.ms-excel": {},
	"text/csv":                 {},
	"text/plain":               {},
}

var validate = validator.New()

// UploadInput carries one file upload into the service.
type UploadInput struct {
	OwnerID  int64  `validate:"gte=0"`
	FileName string `validate:"required,max=255"`
	MimeType string `validate:"required"`
	Size     int64  `validate:"gt=0"`
	Content  io.Reader
}

// Validate rejects uploads outside the allow-list or size ceiling before
// any storage write happens.
func (in UploadInput) Validate(maxBytes int64) error {
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error())
	}
	if maxBytes <= 0 {
		maxBytes = MaxUploadBytes
	}
	if in.Size > maxBytes {
		return fmt.Errorf("%w: file exceeds %d bytes", httpx.ErrValidation, maxBytes)
	}
	if _, ok := allowedMimeTypes[in.MimeType]; !ok {
		return fmt.Errorf("%w: unsupported file type %q", httpx.ErrValidation, in.MimeType)
	}
	if in.Content == nil {
		return fmt.Errorf("%w: empty upload body", httpx.ErrValidation)
	}
	return nil
}

// DocumentResponse is the JSON shape returned to UI collaborators.
type DocumentResponse struct {
	ID                string             `json:"id"`
	FileName          string             `json:"file_name"`
	FileSize          int64              `json:"file_size"`
	MimeType          string             `json:"mime_type"`
	Status            Status             `json:"status"`
	ExtractedData     ExtractedData      `json:"extracted_data"`
	ProcessingSummary *ProcessingSummary `json:"processing_summary,omitempty"`
	ErrorMessage      *string            `json:"error_message,omitempty"`
	CreatedAt         string             `json:"created_at"`
	ProcessedAt       *string            `json:"processed_at,omitempty"`
}

func toResponse(doc Document) DocumentResponse {
	resp := DocumentResponse{
		ID:                doc.ID.String(),
		FileName:          doc.FileName,
		FileSize:          doc.FileSize,
		MimeType:          doc.MimeType,
		Status:            doc.Status,
		ExtractedData:     doc.ExtractedData,
		ProcessingSummary: doc.ProcessingSummary,
		ErrorMessage:      doc.ErrorMessage,
		CreatedAt:         doc.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if doc.ProcessedAt != nil {
		formatted := doc.ProcessedAt.Format("2006-01-02T15:04:05Z07:00")
		resp.ProcessedAt = &formatted
	}
	return resp
}
