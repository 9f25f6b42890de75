package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/overclock/internal/ir"
)

// marshalPayload converts a step event to canonical JSON TEXT for storage.
// The payload is the exact byte string the event ID was hashed from.
func marshalPayload(ev ir.StepEvent) (string, error) {
	data, err := ir.MarshalCanonical(ev.CanonicalMap())
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// marshalConfig converts a run's configuration to JSON TEXT.
// The configuration carries floats, so it is stored with encoding/json
// rather than canonical JSON. HTML escaping is disabled to keep the text
// readable in trace output.
func marshalConfig(v any) (string, error) {
	if v == nil {
		return "{}", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	// Encoder adds a trailing newline.
	return strings.TrimSpace(buf.String()), nil
}
