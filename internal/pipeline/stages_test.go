package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/documents"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/inference"
)

type scriptedAI struct {
	replies []string
	err     error
	calls   int
	lastMsg []inference.Message
}

func (s *scriptedAI) Complete(ctx context.Context, messages []inference.Message) (string, error) {
	s.calls++
	s.lastMsg = messages
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "", nil
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

type staticSigner struct{ url string }

func (s staticSigner) SignedURL(rel string) (string, error) { return s.url, nil }

func TestConverterSkipsCachedConversion(t *testing.T) {
	ai := &scriptedAI{}
	conv := NewConverter(ai, staticSigner{url: "http://localhost/files/x"})

	doc := documents.Document{ExtractedData: documents.ExtractedData{
		Conversion: &documents.ConversionResult{ConvertedContent: "cached text"},
	}}
	result, err := conv.Process(context.Background(), doc)
	require.NoError(t, err)
	require.Equal(t, 0, ai.calls, "cached conversion must not call the model")
	require.Equal(t, "cached text", result.Patch.Conversion.ConvertedContent)
}

func TestConverterCallsModelWithSignedURL(t *testing.T) {
	ai := &scriptedAI{replies: []string{"INVOICE #42 total 1200"}}
	conv := NewConverter(ai, staticSigner{url: "http://localhost/files/abc?sig=x"})

	doc := documents.Document{FileName: "invoice.pdf", StoragePath: "2025/abc.pdf"}
	result, err := conv.Process(context.Background(), doc)
	require.NoError(t, err)
	require.Equal(t, 1, ai.calls)
	require.Equal(t, "INVOICE #42 total 1200", result.Patch.Conversion.ConvertedContent)
	require.Equal(t, "text/plain", result.Patch.Conversion.ContentType)
}

func TestConverterPropagatesModelError(t *testing.T) {
	ai := &scriptedAI{err: errors.New("model down")}
	conv := NewConverter(ai, staticSigner{url: "u"})

	_, err := conv.Process(context.Background(), documents.Document{StoragePath: "x"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "conversion")
}

func TestExtractorParsesStructuredReply(t *testing.T) {
	ai := &scriptedAI{replies: []string{"```json\n{\"vendor_name\":\"Acme\",\"total_amount\":99.5,\"ocr_text\":\"full text\"}\n```"}}
	ext := NewExtractor(ai)

	doc := documents.Document{ExtractedData: documents.ExtractedData{
		Conversion: &documents.ConversionResult{ConvertedContent: "raw"},
	}}
	result, err := ext.Process(context.Background(), doc)
	require.NoError(t, err)
	require.NotNil(t, result.Patch.Extraction)
	require.Equal(t, "full text", result.Patch.Extraction.OCRText)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(result.Patch.Extraction.StructuredData, &fields))
	require.Equal(t, "Acme", fields["vendor_name"])
}

func TestExtractorDegradesOnMalformedReply(t *testing.T) {
	ai := &scriptedAI{replies: []string{"sorry, I cannot parse this"}}
	ext := NewExtractor(ai)

	result, err := ext.Process(context.Background(), documents.Document{})
	require.NoError(t, err)
	require.Nil(t, result.Patch.Extraction.StructuredData)
	require.Equal(t, "sorry, I cannot parse this", result.Patch.Extraction.OCRText)
}

func TestCategorizerFallsBackOnMalformedReply(t *testing.T) {
	ai := &scriptedAI{replies: []string{"not json at all"}}
	cat := NewCategorizer(ai)

	result, err := cat.Process(context.Background(), documents.Document{})
	require.NoError(t, err)
	require.Equal(t, "other", result.Patch.Categorization.DocumentType)
	require.Equal(t, "uncategorized", result.Patch.Categorization.Category)
	require.Equal(t, 0.5, result.Patch.Categorization.Confidence)
}

func TestCategorizerNormalizesPartialReply(t *testing.T) {
	ai := &scriptedAI{replies: []string{`{"document_type":"invoice","confidence":3.5}`}}
	cat := NewCategorizer(ai)

	result, err := cat.Process(context.Background(), documents.Document{})
	require.NoError(t, err)
	require.Equal(t, "invoice", result.Patch.Categorization.DocumentType)
	require.Equal(t, "uncategorized", result.Patch.Categorization.Category)
	require.Equal(t, 0.5, result.Patch.Categorization.Confidence, "out-of-range confidence resets")
}

func TestCategorizerAcceptsFencedReply(t *testing.T) {
	ai := &scriptedAI{replies: []string{"Here you go:\n```json\n{\"document_type\":\"receipt\",\"category\":\"travel\",\"confidence\":0.9}\n```"}}
	cat := NewCategorizer(ai)

	result, err := cat.Process(context.Background(), documents.Document{})
	require.NoError(t, err)
	require.Equal(t, "receipt", result.Patch.Categorization.DocumentType)
	require.Equal(t, "travel", result.Patch.Categorization.Category)
	require.Equal(t, 0.9, result.Patch.Categorization.Confidence)
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{`{"a":1}`, true},
		{"prose before {\"a\":1} prose after", true},
		{"```json\n{\"a\":1}\n```", true},
		{"no braces here", false},
		{"{broken", false},
	}
	for _, tc := range cases {
		_, ok := extractJSON(tc.in)
		require.Equal(t, tc.ok, ok, "input %q", tc.in)
	}
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	require.Equal(t, 30*time.Second, Backoff(1))
	require.Equal(t, 60*time.Second, Backoff(2))
	require.Equal(t, 120*time.Second, Backoff(3))
	require.Equal(t, 10*time.Minute, Backoff(20))
}
