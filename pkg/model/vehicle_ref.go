package model

import (
	"encoding/json"
	"strings"
)

// VehicleRef identifies the vehicle a booking request points at. Clients send
// it in three shapes: a plain hex id string, a vehicle object, or a vehicle
// object serialized into a JSON string (multipart forms flatten nested fields
// that way). All three decode into the same struct.
type VehicleRef struct {
	ID       string
	Snapshot *VehicleSnapshot
}

func (r *VehicleRef) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)

		// A stringified object gets a second decode pass.
		if strings.HasPrefix(s, "{") {
			return r.unmarshalObject([]byte(s))
		}

		r.ID = s
		return nil
	}

	return r.unmarshalObject(data)
}

func (r *VehicleRef) unmarshalObject(data []byte) error {
	var snapshot VehicleSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return err
	}

	r.ID = snapshot.ID
	r.Snapshot = &snapshot
	return nil
}

func (r VehicleRef) MarshalJSON() ([]byte, error) {
	if r.Snapshot != nil {
		return json.Marshal(r.Snapshot)
	}
	return json.Marshal(r.ID)
}

// IsZero reports whether the reference carries neither an id nor a snapshot.
func (r VehicleRef) IsZero() bool {
	return r.ID == "" && r.Snapshot == nil
}

// LooseMap is a free-form document that also accepts its JSON-stringified
// form, for the same multipart-form reason as VehicleRef.
type LooseMap map[string]any

func (m *LooseMap) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}

		var inner map[string]any
		if err := json.Unmarshal([]byte(s), &inner); err != nil {
			return err
		}
		*m = inner
		return nil
	}

	var plain map[string]any
	if err := json.Unmarshal(data, &plain); err != nil {
		return err
	}
	*m = plain
	return nil
}
