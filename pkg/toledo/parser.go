// Package toledo parses the fixed-format item export (ITENSMGV.TXT) that the
// Toledo scale system drops on a network share. Parsing is best-effort: a
// line either yields one candidate record or is skipped, never an error.
package toledo

import (
	"bufio"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/language"
	"golang.org/x/text/transform"
)

// Candidate is one parsed export line. Transient: candidates flow through
// aggregation into the reconciler and are never persisted directly.
type Candidate struct {
	Code   string
	Name   string
	Price  decimal.Decimal
	Active bool
}

var (
	// [2-digit prefix][7-digit code][6-digit price cents][3-digit suffix][name]
	structuredLine = regexp.MustCompile(`^(\d{2})(\d{7})(\d{6})(\d{3})(.+)$`)
	// alternate code after a unit marker at the end of the line, e.g. "KG 00175"
	altCode        = regexp.MustCompile(`(?i)\b(?:KG|UN)\b\s*0*([0-9]{3,6})\s*$`)
	unitToken      = regexp.MustCompile(`(?i)\b(?:KG|UN)\b`)
	trailingDigits = regexp.MustCompile(`(?:\s*[0-9]{4,})+$`)
)

// Fallback offsets for lines that carry fewer digits than the structured
// layout. Observed in exports mixing scale firmware versions.
const (
	fallbackCodeEnd    = 7
	fallbackPriceStart = 7
	fallbackPriceEnd   = 13
	fallbackNameStart  = 16
	fallbackMinLen     = 20
)

// accentFixes is an ordered correction table for names the scale stores
// without accents. Data, not inferred: extend the list, not the parser.
var accentFixes = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`\bPao\b`), "Pão"},
	{regexp.MustCompile(`\bFrances\b`), "Francês"},
	{regexp.MustCompile(`\bFile\b`), "Filé"},
	{regexp.MustCompile(`\bAcem\b`), "Acém"},
	{regexp.MustCompile(`\bCoxao\b`), "Coxão"},
	{regexp.MustCompile(`\bMelao\b`), "Melão"},
	{regexp.MustCompile(`\bLinguica\b`), "Linguiça"},
	{regexp.MustCompile(`\bPerdigao\b`), "Perdigão"},
}

// ParseLine turns one raw export line into at most one candidate.
// The bool reports whether the line produced a record.
func ParseLine(raw string) (Candidate, bool) {
	line := strings.TrimRight(raw, " \t\r\n")

	var code, rawName string
	var cents int64

	if m := structuredLine.FindStringSubmatch(line); m != nil {
		code = stripLeadingZeros(m[2])
		cents, _ = strconv.ParseInt(m[3], 10, 64)
		rawName = m[5]
	} else {
		if len(line) < fallbackMinLen {
			return Candidate{}, false
		}
		var err error
		cents, err = strconv.ParseInt(line[fallbackPriceStart:fallbackPriceEnd], 10, 64)
		if err != nil {
			return Candidate{}, false
		}
		code = stripLeadingZeros(line[:fallbackCodeEnd])
		rawName = line[fallbackNameStart:]
		// older firmware appends the unit and a code echo after the name
		if loc := unitToken.FindStringIndex(rawName); loc != nil {
			rawName = rawName[:loc[0]]
		}
	}

	if m := altCode.FindStringSubmatch(line); m != nil {
		code = stripLeadingZeros(m[1])
	}

	return Candidate{
		Code:   code,
		Name:   FormatName(rawName),
		Price:  decimal.New(cents, -2),
		Active: true,
	}, true
}

// FormatName cleans a raw name: unit markers out, trailing digit-group runs
// out, whitespace collapsed, title case, then the accent table.
func FormatName(raw string) string {
	s := unitToken.ReplaceAllString(raw, " ")
	s = trailingDigits.ReplaceAllString(strings.TrimSpace(s), "")
	s = strings.Join(strings.Fields(s), " ")
	s = cases.Title(language.BrazilianPortuguese).String(s)
	for _, fix := range accentFixes {
		s = fix.re.ReplaceAllString(s, fix.repl)
	}
	return s
}

// ParseFile reads a whole export and returns every candidate it can salvage.
// The file is decoded as Latin-1, so no byte sequence is ever fatal.
func ParseFile(path string) ([]Candidate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(transform.NewReader(f, charmap.ISO8859_1.NewDecoder()))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var out []Candidate
	for sc.Scan() {
		if c, ok := ParseLine(sc.Text()); ok {
			out = append(out, c)
		}
	}
	if err := sc.Err(); err != nil {
		return out, err
	}
	return out, nil
}

func stripLeadingZeros(s string) string {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return strings.TrimSpace(s)
}
