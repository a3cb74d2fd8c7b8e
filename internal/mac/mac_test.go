package mac

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"already canonical", "AA:BB:CC:DD:EE:FF", "AA:BB:CC:DD:EE:FF", false},
		{"lowercase colons", "aa:bb:cc:dd:ee:ff", "AA:BB:CC:DD:EE:FF", false},
		{"hyphens", "aa-bb-cc-dd-ee-ff", "AA:BB:CC:DD:EE:FF", false},
		{"cisco dots", "aabb.ccdd.eeff", "AA:BB:CC:DD:EE:FF", false},
		{"bare hex", "aabbccddeeff", "AA:BB:CC:DD:EE:FF", false},
		{"bare hex uppercase", "AABBCCDDEEFF", "AA:BB:CC:DD:EE:FF", false},
		{"mixed separators with spaces", "aa-bb.cc dd:ee ff", "AA:BB:CC:DD:EE:FF", false},
		{"mixed case and separators", " Aa-bB:cC.dD-Ee:fF ", "AA:BB:CC:DD:EE:FF", false},
		{"surrounding whitespace", "  aa:bb:cc:dd:ee:ff\n", "AA:BB:CC:DD:EE:FF", false},
		{"empty", "", "", true},
		{"whitespace only", "   ", "", true},
		{"too short", "aa:bb:cc:dd:ee", "", true},
		{"too long", "aa:bb:cc:dd:ee:ff:00", "", true},
		{"non-hex digits stripped short", "gg:bb:cc:dd:ee:ff", "", true},
		{"trailing garbage stripped short", "aa:bb:cc:dd:ee:f!", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidMAC) {
					t.Errorf("Normalize(%q) error = %v, want ErrInvalidMAC", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	first, err := Normalize("aa-bb-cc-dd-ee-ff")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	second, err := Normalize(first)
	if err != nil {
		t.Fatalf("Normalize() second pass error = %v", err)
	}
	if first != second {
		t.Errorf("Normalize not idempotent: %q != %q", first, second)
	}
}

func TestIsValid(t *testing.T) {
	if !IsValid("AA:BB:CC:DD:EE:FF") {
		t.Error("IsValid(valid mac) = false")
	}
	if IsValid("not-a-mac") {
		t.Error("IsValid(garbage) = true")
	}
}
