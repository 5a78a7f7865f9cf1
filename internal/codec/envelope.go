package codec

import (
	"encoding/json"
	"fmt"
	"time"
)

// File is one entity's encoded table inside an envelope.
type File struct {
	FileName    string `json:"fileName"`
	Content     string `json:"content"`
	RecordCount int    `json:"recordCount"`
}

// Envelope carries a whole-dataset export: every entity file plus totals.
// It is the preferred import input because it keeps dependent entity files
// together.
type Envelope struct {
	Timestamp   time.Time `json:"timestamp"`
	RecordCount int       `json:"recordCount"`
	Files       []File    `json:"files"`
}

// EnvelopeForFile wraps a single decoded entity file so one-file imports
// share the envelope path. A content that fails to decode still wraps;
// the import run reports the failure.
func EnvelopeForFile(name, content string) *Envelope {
	count := 0
	if _, records, _, err := DecodeTable(content); err == nil {
		count = len(records)
	}
	return &Envelope{
		Timestamp:   time.Now().UTC(),
		RecordCount: count,
		Files:       []File{{FileName: name, Content: content, RecordCount: count}},
	}
}

// MarshalEnvelope renders the envelope as indented JSON.
func MarshalEnvelope(e *Envelope) ([]byte, error) {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return data, nil
}

// UnmarshalEnvelope parses envelope JSON.
func UnmarshalEnvelope(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to parse envelope: %w", err)
	}
	return &e, nil
}
