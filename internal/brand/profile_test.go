package brand

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
default:
  name: DEFAULT
  default_currency: "₺"
brands:
  - name: Omega Motor
    record_code: OMG
    default_currency: USD
    file_patterns: ["omega"]
    main_heading_rules: ["ASENKRON"]
  - name: Alfa
    file_patterns: ["alfa fiyat"]
`

func writeTable(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "brands.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAndMatch(t *testing.T) {
	tbl, err := Load(writeTable(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	p := tbl.Match("Omega Motor Fiyat Listesi 2025.pdf")
	if p.Name != "Omega Motor" {
		t.Fatalf("matched %q, want Omega Motor", p.Name)
	}
	if p.RecordCode != "OMG" || p.DefaultCurrency != "USD" {
		t.Errorf("profile constants = (%q, %q), want (OMG, USD)", p.RecordCode, p.DefaultCurrency)
	}
}

func TestMatchFillsDefaults(t *testing.T) {
	tbl, err := Load(writeTable(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	p := tbl.Match("ALFA_FIYAT_2024.xlsx")
	if p.Name != "Alfa" {
		t.Fatalf("matched %q, want Alfa", p.Name)
	}
	if p.DefaultCurrency != "₺" {
		t.Errorf("DefaultCurrency = %q, want inherited ₺", p.DefaultCurrency)
	}
	if p.RecordCode != "Alfa" {
		t.Errorf("RecordCode = %q, want brand name fallback", p.RecordCode)
	}
}

func TestMatchFallsBackToDefault(t *testing.T) {
	tbl, err := Load(writeTable(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p := tbl.Match("unknown-vendor.pdf"); p.Name != "DEFAULT" {
		t.Errorf("matched %q, want DEFAULT", p.Name)
	}
}

func TestLoadMissingFile(t *testing.T) {
	tbl, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should degrade to defaults, got %v", err)
	}
	if tbl.Default.Name != "DEFAULT" {
		t.Errorf("Default.Name = %q", tbl.Default.Name)
	}
}

func TestSlug(t *testing.T) {
	if got := Slug("Ömega Fiyat-Listesi.pdf"); got != "omegafiyatlistesipdf" {
		t.Errorf("Slug = %q", got)
	}
}
