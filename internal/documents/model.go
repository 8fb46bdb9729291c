package documents

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status enumerates document lifecycle values. Transitions only move
// forward: processing -> completed or failed.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ConversionResult is written by the conversion stage.
type ConversionResult struct {
	ConvertedContent string    `json:"converted_content"`
	ContentType      string    `json:"content_type,omitempty"`
	ConvertedAt      time.Time `json:"converted_at"`
}

// ExtractionResult is written by the OCR/extraction stage.
type ExtractionResult struct {
	StructuredData json.RawMessage `json:"structured_data,omitempty"`
	OCRText        string          `json:"ocr_text,omitempty"`
	ExtractedAt    time.Time       `json:"extracted_at"`
}

// CategorizationResult is written by the categorization stage.
type CategorizationResult struct {
	DocumentType     string            `json:"document_type"`
	Category         string            `json:"category"`
	Tags             []string          `json:"tags,omitempty"`
	Confidence       float64           `json:"confidence"`
	AutoFilledFields map[string]string `json:"auto_filled_fields,omitempty"`
}

// PostingMarker records that the document's ledger effects were committed.
type PostingMarker struct {
	Posted        bool      `json:"posted"`
	PostedAt      time.Time `json:"posted_at"`
	ReferenceID   string    `json:"posted_reference_id"`
	ReferenceType string    `json:"posted_reference_type"`
}

// ExtractedData accumulates per-stage results. Each stage owns exactly one
// field; Merge is additive and never drops an earlier stage's result.
type ExtractedData struct {
	Conversion     *ConversionResult     `json:"conversion,omitempty"`
	Extraction     *ExtractionResult     `json:"extraction,omitempty"`
	Categorization *CategorizationResult `json:"categorization,omitempty"`
	Posting        *PostingMarker        `json:"posting,omitempty"`
}

// Merge applies non-nil fields from patch on top of d.
func (d *ExtractedData) Merge(patch ExtractedData) {
	if patch.Conversion != nil {
		d.Conversion = patch.Conversion
	}
	if patch.Extraction != nil {
		d.Extraction = patch.Extraction
	}
	if patch.Categorization != nil {
		d.Categorization = patch.Categorization
	}
	if patch.Posting != nil {
		d.Posting = patch.Posting
	}
}

// IsPosted reports whether ledger effects were already committed.
func (d ExtractedData) IsPosted() bool {
	return d.Posting != nil && d.Posting.Posted
}

// StageError captures one stage failure inside a processing summary.
type StageError struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// ProcessingSummary is the observability snapshot written by the pipeline
// orchestrator after all stages were attempted.
type ProcessingSummary struct {
	Processed int          `json:"processed"`
	Failed    int          `json:"failed"`
	Errors    []StageError `json:"errors,omitempty"`
}

// Document is the central record threading the pipeline stages together.
type Document struct {
	ID                uuid.UUID
	OwnerID           int64
	FileName          string
	FileSize          int64
	MimeType          string
	StoragePath       string
	Checksum          string
	Status            Status
	ExtractedData     ExtractedData
	ProcessingSummary *ProcessingSummary
	ErrorMessage      *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ProcessedAt       *time.Time
}
