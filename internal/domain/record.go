package domain

import (
	"bytes"
	"context"
	"encoding/json"
)

// NormalizedRecord is the pipeline's output and the wire format pushed to subscribers.
// Field order is part of the wire contract. Nil optional fields serialize as null.
type NormalizedRecord struct {
	Text        string  `json:"text"`
	From        string  `json:"from"`
	Date        int64   `json:"date"`
	Channel     string  `json:"channel"`
	Code        *string `json:"code"`
	Value       *string `json:"value"`
	Requirement *string `json:"requirement"`
}

// RecordPublisher hands a record to the push side.
type RecordPublisher interface {
	Publish(ctx context.Context, record *NormalizedRecord) error
}

// Encode serializes the record to its wire form: compact JSON without HTML escaping
// and without a trailing newline.
func (r *NormalizedRecord) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
