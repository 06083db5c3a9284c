package normalize

import "testing"

func TestSplitCodeDescription(t *testing.T) {
	tests := []struct {
		in       string
		wantCode string
		wantDesc string
	}{
		{"KFC250-038 / Valve Body", "KFC250-038", "Valve Body"},
		{"Valve Body / KFC250-038", "KFC250-038", "Valve Body"},
		{"Valve Body (KFC250-038)", "KFC250-038", "Valve Body"},
		{"(KFC250-038) Valve Body", "KFC250-038", "Valve Body"},
		// code-first wins over parenthetical when both could apply
		{"AX22 / O-Ring (small)", "AX22", "O-Ring (small)"},
		// fallback: first token as code
		{"3MAS80 0.55 KW motor", "3MAS80", "0.55 KW motor"},
		{"single", "single", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		code, desc := SplitCodeDescription(tt.in)
		if code != tt.wantCode || desc != tt.wantDesc {
			t.Errorf("SplitCodeDescription(%q) = (%q, %q), want (%q, %q)",
				tt.in, code, desc, tt.wantCode, tt.wantDesc)
		}
	}
}

func TestSplitCodeDescriptionRequiresDigit(t *testing.T) {
	// "Body" is long enough but has no digit, so the slash patterns must
	// not treat it as a code.
	code, desc := SplitCodeDescription("Valve / Body")
	if code != "Valve" || desc != "/ Body" {
		t.Errorf("got (%q, %q), want fallback (%q, %q)", code, desc, "Valve", "/ Body")
	}
}

func TestDetectBrand(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Omega Motor Fiyat Listesi 2025.pdf", "Omega Motor Fiyat Listesi"},
		{"acme_Price_List.xlsx", "acme Price List"},
		{"ALFA-2024.pdf", "ALFA"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := DetectBrand(tt.in); got != tt.want {
			t.Errorf("DetectBrand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
