package model

import (
	"encoding/json"
	"testing"
)

func TestVehicleRefUnmarshal(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantID       string
		wantSnapshot bool
		wantErr      bool
	}{
		{
			name:   "hex id string",
			input:  `"66a1b2c3d4e5f6a7b8c9d0e1"`,
			wantID: "66a1b2c3d4e5f6a7b8c9d0e1",
		},
		{
			name:         "vehicle object",
			input:        `{"id":"66a1b2c3d4e5f6a7b8c9d0e1","make":"Hyundai","model":"Creta","price_per_day":4500}`,
			wantID:       "66a1b2c3d4e5f6a7b8c9d0e1",
			wantSnapshot: true,
		},
		{
			name:         "stringified vehicle object",
			input:        `"{\"id\":\"66a1b2c3d4e5f6a7b8c9d0e1\",\"make\":\"Hyundai\"}"`,
			wantID:       "66a1b2c3d4e5f6a7b8c9d0e1",
			wantSnapshot: true,
		},
		{
			name:  "null",
			input: `null`,
		},
		{
			name:    "malformed stringified object",
			input:   `"{not json"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ref VehicleRef
			err := json.Unmarshal([]byte(tt.input), &ref)

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}

			if ref.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", ref.ID, tt.wantID)
			}
			if (ref.Snapshot != nil) != tt.wantSnapshot {
				t.Errorf("Snapshot present = %v, want %v", ref.Snapshot != nil, tt.wantSnapshot)
			}
		})
	}
}

func TestVehicleRefSnapshotFields(t *testing.T) {
	var ref VehicleRef
	input := `{"id":"66a1b2c3d4e5f6a7b8c9d0e1","make":"Hyundai","model":"Creta","year":2024,"price_per_day":4500,"image":"https://cdn.example.com/creta.png"}`

	if err := json.Unmarshal([]byte(input), &ref); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	s := ref.Snapshot
	if s == nil {
		t.Fatal("Snapshot is nil")
	}
	if s.Make != "Hyundai" || s.Model != "Creta" || s.Year != 2024 {
		t.Errorf("snapshot = %+v", s)
	}
	if s.DisplayName() != "Hyundai Creta" {
		t.Errorf("DisplayName() = %q, want %q", s.DisplayName(), "Hyundai Creta")
	}
}

func TestLooseMapUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantKey string
		wantVal any
		wantErr bool
	}{
		{
			name:    "plain object",
			input:   `{"license":"DL-1234"}`,
			wantKey: "license",
			wantVal: "DL-1234",
		},
		{
			name:    "stringified object",
			input:   `"{\"city\":\"Pune\"}"`,
			wantKey: "city",
			wantVal: "Pune",
		},
		{
			name:  "null leaves map empty",
			input: `null`,
		},
		{
			name:  "empty string leaves map empty",
			input: `""`,
		},
		{
			name:    "stringified non-object",
			input:   `"[1,2]"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m LooseMap
			err := json.Unmarshal([]byte(tt.input), &m)

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}

			if tt.wantKey == "" {
				if len(m) != 0 {
					t.Errorf("map = %v, want empty", m)
				}
				return
			}
			if m[tt.wantKey] != tt.wantVal {
				t.Errorf("m[%q] = %v, want %v", tt.wantKey, m[tt.wantKey], tt.wantVal)
			}
		})
	}
}
