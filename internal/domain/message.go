package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ParseObservation decodes the JSON observation carried by a RawEvent.
// Observation time is normalized to UTC and a deterministic ID is assigned
// when the producer did not supply one.
func ParseObservation(raw RawEvent) (Observation, error) {
	var ob Observation
	if err := json.Unmarshal(raw.Value, &ob); err != nil {
		return Observation{}, fmt.Errorf("parse observation: %w", err)
	}

	ob.ObType = strings.TrimSpace(ob.ObType)
	ob.Location = strings.TrimSpace(ob.Location)
	switch {
	case ob.ObType == "":
		return Observation{}, errors.New("parse observation: missing obtype")
	case ob.Location == "":
		return Observation{}, errors.New("parse observation: missing location")
	case ob.Time.IsZero():
		return Observation{}, errors.New("parse observation: missing time")
	}
	ob.Time = ob.Time.UTC()

	// Assimilation results are never accepted from the source.
	ob.PriorMean, ob.PriorVar, ob.PostMean, ob.PostVar = nil, nil, nil, nil
	ob.ProcessedAt = time.Time{}

	if ob.ID == "" {
		ob.ID = generateID(ob)
	}
	return ob, nil
}

// generateID produces a deterministic ID from the observation's key
// fields so that replays of the same observation map to the same key.
func generateID(ob Observation) string {
	value := "nil"
	if ob.Value != nil {
		value = fmt.Sprintf("%g", *ob.Value)
	}
	input := fmt.Sprintf("%s|%s|%s|%s",
		ob.ObType, strings.ToUpper(ob.Location), ob.Time.UTC().Format(time.RFC3339), value)
	hash := sha256.Sum256([]byte(input))
	return ob.ObType + "-" + hex.EncodeToString(hash[:8])
}

// SerializeObservation encodes an observation for the sink topic.
func SerializeObservation(ob Observation) (OutputEvent, error) {
	data, err := json.Marshal(ob)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize observation: %w", err)
	}
	return OutputEvent{
		Key:   []byte(ob.ID),
		Value: data,
		Headers: map[string]string{
			"obtype":       ob.ObType,
			"processed_at": ob.ProcessedAt.UTC().Format(time.RFC3339),
		},
	}, nil
}
