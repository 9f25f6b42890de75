package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainStepEvent is the domain prefix for step event IDs.
// The version suffix allows a future algorithm migration.
const DomainStepEvent = "overclock/step-event/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// StepEventID computes the content-addressed ID of a step event.
// The ID is stable across runs and replays given the same event fields.
func StepEventID(e StepEvent) (string, error) {
	canonical, err := MarshalCanonical(e.CanonicalMap())
	if err != nil {
		return "", fmt.Errorf("StepEventID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainStepEvent, canonical), nil
}

// MustStepEventID is like StepEventID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustStepEventID(e StepEvent) string {
	id, err := StepEventID(e)
	if err != nil {
		panic(err)
	}
	return id
}
