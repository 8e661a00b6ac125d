package kanji

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

//go:embed data/kanji.csv
var defaultDataset []byte

const fieldCount = 4

// RowError describes a dataset row that was skipped.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Catalog is the immutable table of question material. It is safe for
// concurrent use; only the random source is guarded.
type Catalog struct {
	entries []Kanji

	mu  sync.Mutex
	rng *rand.Rand
}

func NewCatalog(entries []Kanji) *Catalog {
	seed := uint64(time.Now().UnixNano())
	return NewCatalogWithSeed(entries, seed, seed>>1|1)
}

// NewCatalogWithSeed builds a catalog whose sampling sequence is reproducible.
func NewCatalogWithSeed(entries []Kanji, seed1, seed2 uint64) *Catalog {
	owned := make([]Kanji, len(entries))
	copy(owned, entries)
	return &Catalog{
		entries: owned,
		rng:     rand.New(rand.NewPCG(seed1, seed2)),
	}
}

func (c *Catalog) Len() int {
	return len(c.entries)
}

func (c *Catalog) All() []Kanji {
	out := make([]Kanji, len(c.entries))
	copy(out, c.entries)
	return out
}

// Sample returns min(n, Len()) distinct entries chosen uniformly at random.
func (c *Catalog) Sample(n int) []Kanji {
	if n <= 0 || len(c.entries) == 0 {
		return []Kanji{}
	}
	if n > len(c.entries) {
		n = len(c.entries)
	}

	c.mu.Lock()
	perm := c.rng.Perm(len(c.entries))
	c.mu.Unlock()

	out := make([]Kanji, n)
	for i := range n {
		out[i] = c.entries[perm[i]]
	}
	return out
}

// Parse reads "unicode,yomi,kanji,difficulty" rows. Malformed rows are skipped
// and reported; they never fail the whole load.
func Parse(r io.Reader) (*Catalog, []error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	var (
		entries []Kanji
		skipped []error
		seen    = make(map[string]bool)
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				skipped = append(skipped, &RowError{Line: parseErr.Line, Err: parseErr.Err})
				continue
			}
			skipped = append(skipped, err)
			break
		}
		line, _ := reader.FieldPos(0)
		if len(entries) == 0 && len(skipped) == 0 && isHeader(record) {
			continue
		}

		k, err := parseRecord(record)
		if err != nil {
			skipped = append(skipped, &RowError{Line: line, Err: err})
			continue
		}
		if seen[k.Unicode] {
			skipped = append(skipped, &RowError{Line: line, Err: fmt.Errorf("duplicate code point %s", k.Unicode)})
			continue
		}
		seen[k.Unicode] = true
		entries = append(entries, k)
	}
	return NewCatalog(entries), skipped
}

// LoadDefault parses the dataset embedded in the binary.
func LoadDefault() (*Catalog, []error) {
	return Parse(bytes.NewReader(defaultDataset))
}

// LoadFile parses an operator supplied dataset. An unreadable file yields an
// empty catalog and the read error.
func LoadFile(path string) (*Catalog, []error) {
	f, err := os.Open(path)
	if err != nil {
		return NewCatalog(nil), []error{fmt.Errorf("opening kanji dataset: %w", err)}
	}
	defer f.Close()
	return Parse(f)
}

func isHeader(record []string) bool {
	return len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "unicode")
}

func parseRecord(record []string) (Kanji, error) {
	if len(record) < fieldCount {
		return Kanji{}, fmt.Errorf("expected %d fields, got %d", fieldCount, len(record))
	}

	cp, err := ParseCodePoint(record[0])
	if err != nil {
		return Kanji{}, err
	}

	yomi := strings.TrimSpace(record[1])
	if yomi == "" {
		return Kanji{}, errors.New("empty reading")
	}

	glyph := strings.TrimSpace(record[2])
	r, size := utf8.DecodeRuneInString(glyph)
	if size == 0 || size != len(glyph) || r != cp {
		return Kanji{}, fmt.Errorf("glyph %q does not match code point %s", glyph, FormatCodePoint(cp))
	}

	difficulty, err := ParseDifficulty(record[3])
	if err != nil {
		return Kanji{}, err
	}

	return Kanji{
		Unicode:    FormatCodePoint(cp),
		Yomi:       yomi,
		Glyph:      glyph,
		Difficulty: difficulty,
	}, nil
}

// ParseCodePoint reads a hex code point with an optional "U+" or "0x" prefix.
func ParseCodePoint(s string) (rune, error) {
	s = strings.TrimSpace(s)
	upper := strings.ToUpper(s)
	switch {
	case strings.HasPrefix(upper, "U+"), strings.HasPrefix(upper, "0X"):
		s = s[2:]
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid code point %q: %w", s, err)
	}
	cp := rune(v)
	if !utf8.ValidRune(cp) {
		return 0, fmt.Errorf("invalid code point %q", s)
	}
	return cp, nil
}

func FormatCodePoint(cp rune) string {
	return fmt.Sprintf("%04X", cp)
}
