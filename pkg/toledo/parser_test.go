package toledo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseLineFallbackWithUnitCode(t *testing.T) {
	// real-world shape: short digit block, name, unit marker, code echo
	c, ok := ParseLine("0143175003290003PEITO DE FRANGO KG 00175")
	if !ok {
		t.Fatalf("expected line to parse")
	}
	if c.Code != "175" {
		t.Fatalf("code = %q, want 175 (from the KG suffix)", c.Code)
	}
	if !c.Price.Equal(decimal.RequireFromString("32.90")) {
		t.Fatalf("price = %s, want 32.90", c.Price)
	}
	if c.Name != "Peito De Frango" {
		t.Fatalf("name = %q, want Peito De Frango", c.Name)
	}
	if !c.Active {
		t.Fatalf("parsed candidates must be active")
	}
}

func TestParseLineStructured(t *testing.T) {
	c, ok := ParseLine("010001234001090003QUEIJO MINAS")
	if !ok {
		t.Fatalf("expected line to parse")
	}
	if c.Code != "1234" {
		t.Fatalf("code = %q, want 1234 (structural code, zeros stripped)", c.Code)
	}
	if !c.Price.Equal(decimal.RequireFromString("10.90")) {
		t.Fatalf("price = %s, want 10.90", c.Price)
	}
	if c.Name != "Queijo Minas" {
		t.Fatalf("name = %q", c.Name)
	}
}

func TestParseLineSkips(t *testing.T) {
	if _, ok := ParseLine("too short"); ok {
		t.Fatalf("short line must be skipped")
	}
	if _, ok := ParseLine(""); ok {
		t.Fatalf("empty line must be skipped")
	}
	// long enough for the fallback but the price slot is not numeric
	if _, ok := ParseLine("0143175ABCDEF003PEITO DE FRANGO KG"); ok {
		t.Fatalf("non-numeric price must skip the line")
	}
}

func TestFormatName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"PAO FRANCES", "Pão Francês"},
		{"FILE MIGNON 0012345", "Filé Mignon"},
		{"ACEM BOVINO KG 1234", "Acém Bovino"},
		{"COXAO  MOLE", "Coxão Mole"},
		{"LINGUICA TOSCANA", "Linguiça Toscana"},
		{"MELAO", "Melão"},
	}
	for _, c := range cases {
		if got := FormatName(c.in); got != c.want {
			t.Fatalf("FormatName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseFileLenient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ITENSMGV.TXT")
	// second line carries a raw Latin-1 byte (0xC7, "Ç"), third is garbage
	content := []byte("0143175003290003PEITO DE FRANGO KG 00175\r\n" +
		"0143182001990003CORA\xc7AO DE FRANGO KG 00182\r\n" +
		"###\r\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	got, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("parsed %d candidates, want 2", len(got))
	}
	if got[1].Name != "Coraçao De Frango" {
		t.Fatalf("latin-1 name = %q, want Coraçao De Frango", got[1].Name)
	}
	if got[1].Code != "182" {
		t.Fatalf("code = %q, want 182", got[1].Code)
	}
}

func TestParseFileMissing(t *testing.T) {
	if _, err := ParseFile(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
