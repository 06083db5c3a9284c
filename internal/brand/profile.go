// Package brand holds the per-vendor profile table: the constant set
// (brand name, record code, default currency, heading rules, prompt
// override) applied to a document matched to a known vendor.
package brand

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Profile is one tagged configuration record. Profiles are plain data
// looked up by brand key, never behavior.
type Profile struct {
	Name            string   `yaml:"name"`
	RecordCode      string   `yaml:"record_code"`
	DefaultCurrency string   `yaml:"default_currency"`
	FilePatterns    []string `yaml:"file_patterns"`
	// HeadingRules are substrings that mark a line as a main/sub heading
	// rather than a product row.
	MainHeadingRules []string `yaml:"main_heading_rules"`
	SubHeadingRules  []string `yaml:"sub_heading_rules"`
	PromptOverride   string   `yaml:"prompt_override"`
}

// DefaultName marks the fallback profile used when no brand matched.
const DefaultName = "DEFAULT"

// IsDefault reports whether this is the fallback profile rather than a
// matched brand.
func (p Profile) IsDefault() bool { return p.Name == DefaultName }

// Table is the profile set plus an explicit default profile.
type Table struct {
	Default  Profile   `yaml:"default"`
	Profiles []Profile `yaml:"brands"`
}

// DefaultTable returns a table with only the fallback profile.
func DefaultTable() *Table {
	return &Table{
		Default: Profile{
			Name:            DefaultName,
			DefaultCurrency: "₺",
		},
	}
}

// Load reads the profile table from a YAML file. A missing file is not an
// error: extraction degrades to the default profile.
func Load(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultTable(), nil
		}
		return nil, fmt.Errorf("read brand profiles: %w", err)
	}
	var t Table
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("parse brand profiles: %w", err)
	}
	if t.Default.Name == "" {
		t.Default = DefaultTable().Default
	}
	if t.Default.DefaultCurrency == "" {
		t.Default.DefaultCurrency = "₺"
	}
	return &t, nil
}

// Match returns the profile whose name or file patterns occur in the
// slugged document name, falling back to the default profile.
func (t *Table) Match(filename string) Profile {
	slug := Slug(filename)
	for _, p := range t.Profiles {
		if p.Name != "" && strings.Contains(slug, Slug(p.Name)) {
			return withDefaults(p, t.Default)
		}
		for _, pat := range p.FilePatterns {
			if pat != "" && strings.Contains(slug, Slug(pat)) {
				return withDefaults(p, t.Default)
			}
		}
	}
	return t.Default
}

func withDefaults(p, def Profile) Profile {
	if p.DefaultCurrency == "" {
		p.DefaultCurrency = def.DefaultCurrency
	}
	if p.RecordCode == "" {
		p.RecordCode = p.Name
	}
	return p
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

// Slug lowercases, folds diacritics and strips non-alphanumerics so that
// file names and brand names compare loosely.
func Slug(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	for _, r := range s {
		switch r {
		case 'ç':
			r = 'c'
		case 'ğ':
			r = 'g'
		case 'ı':
			r = 'i'
		case 'ö':
			r = 'o'
		case 'ş':
			r = 's'
		case 'ü':
			r = 'u'
		}
		if r <= unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return nonAlnum.ReplaceAllString(b.String(), "")
}
