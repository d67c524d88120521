// Package validator checks encode requests before they reach the encoder and
// returns per-field error details.
package validator

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/internal/encoder/stemmer"
)

const (
	maxTokenLengthLimit = 256
	maxDocumentIDLength = 255
	// MaxBatchDocuments caps the documents of one batch request.
	MaxBatchDocuments = 100
)

// EncodeRequest is the JSON body accepted by the encode endpoint.
type EncodeRequest struct {
	ID              string `json:"id,omitempty"`
	Text            string `json:"text"`
	Language        string `json:"language,omitempty"`
	MaxTokenLength  int    `json:"max_token_length,omitempty"`
	DisableStemming bool   `json:"disable_stemming,omitempty"`
	IncludeTokens   bool   `json:"include_tokens,omitempty"`
}

// BatchDocument is one document of a batch request.
type BatchDocument struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// BatchEncodeRequest encodes several documents under the same settings.
type BatchEncodeRequest struct {
	Documents       []BatchDocument `json:"documents"`
	Language        string          `json:"language,omitempty"`
	MaxTokenLength  int             `json:"max_token_length,omitempty"`
	DisableStemming bool            `json:"disable_stemming,omitempty"`
}

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

// ValidateEncodeRequest checks text size and encoding, and the optional
// overrides. Empty text is valid and encodes to an empty vector.
func ValidateEncodeRequest(req *EncodeRequest, maxTextBytes int) error {
	errs := make(map[string]string)

	if maxTextBytes > 0 && len(req.Text) > maxTextBytes {
		errs["text"] = fmt.Sprintf("text must be at most %d bytes", maxTextBytes)
	} else if !utf8.ValidString(req.Text) {
		errs["text"] = "text must be valid UTF-8"
	}
	if req.MaxTokenLength < 0 || req.MaxTokenLength > maxTokenLengthLimit {
		errs["max_token_length"] = fmt.Sprintf("max_token_length must be between 1 and %d", maxTokenLengthLimit)
	}
	if req.Language != "" && !stemmer.Supported(req.Language) {
		errs["language"] = fmt.Sprintf("unsupported language %q (supported: %s)",
			req.Language, strings.Join(stemmer.Languages(), ", "))
	}
	if len(req.ID) > maxDocumentIDLength {
		errs["id"] = fmt.Sprintf("id must be at most %d characters", maxDocumentIDLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// ValidateBatchEncodeRequest checks the batch size and every document, and
// reports document failures as "documents[i].text" or "documents[i].id".
// maxTextBytes applies to each document and to their sum.
func ValidateBatchEncodeRequest(req *BatchEncodeRequest, maxTextBytes int) error {
	errs := make(map[string]string)

	switch {
	case len(req.Documents) == 0:
		errs["documents"] = "at least one document is required"
	case len(req.Documents) > MaxBatchDocuments:
		errs["documents"] = fmt.Sprintf("at most %d documents per batch", MaxBatchDocuments)
	}
	total := 0
	for i, doc := range req.Documents {
		total += len(doc.Text)
		single := EncodeRequest{ID: doc.ID, Text: doc.Text}
		var verr *ValidationError
		if err := ValidateEncodeRequest(&single, maxTextBytes); err != nil && errors.As(err, &verr) {
			for field, msg := range verr.Fields {
				errs[fmt.Sprintf("documents[%d].%s", i, field)] = msg
			}
		}
	}
	if maxTextBytes > 0 && total > maxTextBytes {
		errs["documents"] = fmt.Sprintf("combined text must be at most %d bytes", maxTextBytes)
	}
	shared := EncodeRequest{Language: req.Language, MaxTokenLength: req.MaxTokenLength}
	var verr *ValidationError
	if err := ValidateEncodeRequest(&shared, 0); err != nil && errors.As(err, &verr) {
		for field, msg := range verr.Fields {
			errs[field] = msg
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
