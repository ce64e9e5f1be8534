package errors

import (
	"math"
	"testing"
)

func TestValidateEntryID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "stats", false},
		{"valid with dash", "legendary-actions", false},
		{"valid with colon", "actions:0", false},
		{"valid unicode", "zauber-übersicht", false},

		{"empty", "", true},
		{"whitespace", "   ", true},
		{"too long", string(make([]byte, 300)), true},
		{"null byte", "foo\x00bar", true},
		{"newline", "foo\nbar", true},
		{"tab", "foo\tbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEntryID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEntryID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidEntry) {
				t.Errorf("ValidateEntryID(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidEntry)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"relative", "out/plan.json", false},
		{"absolute", "/tmp/plan.svg", false},
		{"dotted", "../sheets/goblin.toml", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 600)), true},
		{"null byte", "plan\x00.json", true},
		{"control char", "plan\x01.json", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateFraction(t *testing.T) {
	tests := []struct {
		name    string
		input   float64
		wantErr bool
	}{
		{"one", 1, false},
		{"typical", 0.85, false},
		{"tiny", 0.001, false},

		{"zero", 0, true},
		{"negative", -0.5, true},
		{"above one", 1.01, true},
		{"nan", math.NaN(), true},
		{"inf", math.Inf(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFraction("bottom_threshold", tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFraction(%v) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePositive(t *testing.T) {
	tests := []struct {
		name    string
		input   float64
		wantErr bool
	}{
		{"positive", 800, false},
		{"small", 0.5, false},

		{"zero", 0, true},
		{"negative", -1, true},
		{"nan", math.NaN(), true},
		{"neg inf", math.Inf(-1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePositive("capacity", tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePositive(%v) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateNonNegative(t *testing.T) {
	tests := []struct {
		name    string
		input   float64
		wantErr bool
	}{
		{"zero", 0, false},
		{"positive", 12, false},

		{"negative", -0.1, true},
		{"nan", math.NaN(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNonNegative("spacing", tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNonNegative(%v) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
