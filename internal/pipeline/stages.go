package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/documents"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/inference"
)

// InferenceClient is the external model boundary used by every stage.
type InferenceClient interface {
	Complete(ctx context.Context, messages []inference.Message) (string, error)
}

// URLSigner issues time-limited retrieval URLs for stored blobs.
type URLSigner interface {
	SignedURL(rel string) (string, error)
}

// StageResult is what a processor hands back to the orchestrator: the typed
// patch for the document accumulator plus the raw payload kept on the queue
// item for debugging.
type StageResult struct {
	Patch documents.ExtractedData
	Raw   json.RawMessage
}

// Processor runs one pipeline stage against a document.
type Processor interface {
	Stage() Stage
	Process(ctx context.Context, doc documents.Document) (StageResult, error)
}

const convertSystemPrompt = `You are a document conversion service. You receive a business document
(bank statement, invoice or receipt) and return its full textual content as plain text.
Preserve amounts, dates, names and table structure. Return only the text, no commentary.`

const extractSystemPrompt = `You are a financial data extraction service. You receive the text of a
business document and return a JSON object with the fields you can identify:
vendor_name, customer_name, invoice_number, date, due_date, total_amount, tax_amount,
currency, line_items (array of {description, quantity, unit_price, amount}) and
ocr_text (the cleaned full text). Return only JSON.`

const categorizeSystemPrompt = `You are a document categorization service for small-business accounting.
Given document text and extracted fields, return a JSON object:
{"document_type": one of "invoice","receipt","bank_statement","other",
 "category": a short accounting category such as "utilities","rent","sales","travel",
 "tags": array of strings, "confidence": number between 0 and 1,
 "auto_filled_fields": object of string key/values}. Return only JSON.`

// Converter turns the uploaded file into text via the inference API. It
// short-circuits when converted content already exists so a re-run never
// pays for a second external call.
type Converter struct {
	ai     InferenceClient
	signer URLSigner
	now    func() time.Time
}

// NewConverter constructs the conversion stage.
func NewConverter(ai InferenceClient, signer URLSigner) *Converter {
	return &Converter{ai: ai, signer: signer, now: time.Now}
}

func (c *Converter) Stage() Stage { return StageConversion }

func (c *Converter) Process(ctx context.Context, doc documents.Document) (StageResult, error) {
	if cached := doc.ExtractedData.Conversion; cached != nil {
		raw, _ := json.Marshal(cached)
		return StageResult{Patch: documents.ExtractedData{Conversion: cached}, Raw: raw}, nil
	}

	fileURL, err := c.signer.SignedURL(doc.StoragePath)
	if err != nil {
		return StageResult{}, fmt.Errorf("conversion: sign url: %w", err)
	}

	text, err := c.ai.Complete(ctx, []inference.Message{
		inference.TextMessage("system", convertSystemPrompt),
		inference.ImageMessage(fmt.Sprintf("Convert the document %q to plain text.", doc.FileName), fileURL),
	})
	if err != nil {
		return StageResult{}, fmt.Errorf("conversion: %w", err)
	}

	result := &documents.ConversionResult{
		ConvertedContent: text,
		ContentType:      "text/plain",
		ConvertedAt:      c.now(),
	}
	raw, _ := json.Marshal(result)
	return StageResult{Patch: documents.ExtractedData{Conversion: result}, Raw: raw}, nil
}

// Extractor pulls structured fields out of the converted text. A response
// that is not valid JSON degrades to a raw-text-only result instead of
// failing the job.
type Extractor struct {
	ai  InferenceClient
	now func() time.Time
}

// NewExtractor constructs the OCR/extraction stage.
func NewExtractor(ai InferenceClient) *Extractor {
	return &Extractor{ai: ai, now: time.Now}
}

func (e *Extractor) Stage() Stage { return StageOCRExtraction }

func (e *Extractor) Process(ctx context.Context, doc documents.Document) (StageResult, error) {
	content := ""
	if doc.ExtractedData.Conversion != nil {
		content = doc.ExtractedData.Conversion.ConvertedContent
	}

	reply, err := e.ai.Complete(ctx, []inference.Message{
		inference.TextMessage("system", extractSystemPrompt),
		inference.TextMessage("user", content),
	})
	if err != nil {
		return StageResult{}, fmt.Errorf("ocr_extraction: %w", err)
	}

	result := &documents.ExtractionResult{ExtractedAt: e.now()}
	if structured, ok := extractJSON(reply); ok {
		result.StructuredData = structured
		var fields struct {
			OCRText string `json:"ocr_text"`
		}
		_ = json.Unmarshal(structured, &fields)
		result.OCRText = fields.OCRText
	} else {
		// Malformed model output: keep the raw reply as OCR text.
		result.OCRText = reply
	}
	if result.OCRText == "" {
		result.OCRText = content
	}

	raw, _ := json.Marshal(result)
	return StageResult{Patch: documents.ExtractedData{Extraction: result}, Raw: raw}, nil
}

// Categorizer assigns document type, category and tags. Malformed model
// output falls back to an uncategorized result with 0.5 confidence; it must
// never crash the pipeline.
type Categorizer struct {
	ai InferenceClient
}

// NewCategorizer constructs the categorization stage.
func NewCategorizer(ai InferenceClient) *Categorizer {
	return &Categorizer{ai: ai}
}

func (c *Categorizer) Stage() Stage { return StageCategorization }

func (c *Categorizer) Process(ctx context.Context, doc documents.Document) (StageResult, error) {
	var input strings.Builder
	if ext := doc.ExtractedData.Extraction; ext != nil {
		if ext.OCRText != "" {
			input.WriteString("Document text:\n")
			input.WriteString(ext.OCRText)
			input.WriteString("\n\n")
		}
		if len(ext.StructuredData) > 0 {
			input.WriteString("Extracted fields:\n")
			input.Write(ext.StructuredData)
		}
	} else if conv := doc.ExtractedData.Conversion; conv != nil {
		input.WriteString(conv.ConvertedContent)
	}

	reply, err := c.ai.Complete(ctx, []inference.Message{
		inference.TextMessage("system", categorizeSystemPrompt),
		inference.TextMessage("user", input.String()),
	})
	if err != nil {
		return StageResult{}, fmt.Errorf("categorization: %w", err)
	}

	result := parseCategorization(reply)
	raw, _ := json.Marshal(result)
	return StageResult{Patch: documents.ExtractedData{Categorization: result}, Raw: raw}, nil
}

func parseCategorization(reply string) *documents.CategorizationResult {
	fallback := &documents.CategorizationResult{
		DocumentType: "other",
		Category:     "uncategorized",
		Confidence:   0.5,
	}
	structured, ok := extractJSON(reply)
	if !ok {
		return fallback
	}
	var result documents.CategorizationResult
	if err := json.Unmarshal(structured, &result); err != nil {
		return fallback
	}
	if result.Category == "" {
		result.Category = "uncategorized"
	}
	if result.DocumentType == "" {
		result.DocumentType = "other"
	}
	if result.Confidence <= 0 || result.Confidence > 1 {
		result.Confidence = 0.5
	}
	return &result
}

// extractJSON finds the first JSON object in a model reply, tolerating
// markdown code fences and surrounding prose.
func extractJSON(reply string) (json.RawMessage, bool) {
	s := strings.TrimSpace(reply)
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+3:]
		s = strings.TrimPrefix(s, "json")
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	candidate := []byte(s[start : end+1])
	if !json.Valid(candidate) {
		return nil, false
	}
	return json.RawMessage(candidate), true
}
