package encoder

import "time"

// DocumentEvent is the Kafka payload of a document waiting to be encoded.
type DocumentEvent struct {
	DocumentID string    `json:"document_id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Language   string    `json:"language,omitempty"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Text is the content that gets encoded: title and body joined by a space.
func (e DocumentEvent) Text() string {
	if e.Title == "" {
		return e.Body
	}
	if e.Body == "" {
		return e.Title
	}
	return e.Title + " " + e.Body
}

// VectorEvent is the Kafka payload published once a document is encoded.
type VectorEvent struct {
	DocumentID     string    `json:"document_id"`
	Language       string    `json:"language"`
	Indices        []uint32  `json:"indices"`
	Values         []float32 `json:"values"`
	DocumentLength uint16    `json:"document_length"`
	EncodedAt      time.Time `json:"encoded_at"`
}

// NewVectorEvent builds the event for an encoded document.
func NewVectorEvent(docID, language string, res *Result, now time.Time) VectorEvent {
	return VectorEvent{
		DocumentID:     docID,
		Language:       language,
		Indices:        res.Vector.Indices(),
		Values:         res.Vector.Values(),
		DocumentLength: res.Length,
		EncodedAt:      now.UTC(),
	}
}
