package game

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// AnyLine is the claim name meaning "any row, column or diagonal".
const AnyLine = "bingo"

var (
	ErrNoPositions       = errors.New("pattern needs at least one position")
	ErrPositionRange     = errors.New("each position must be an integer between 0 and 24")
	ErrDuplicatePosition = errors.New("pattern repeats a position")
)

// Pattern is a named set of grid indices that must all be marked to win.
type Pattern struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Positions   []int  `json:"positions"`
}

// Title returns the display name, or a title-cased form of the name.
func (p Pattern) Title() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return TitleCase(p.Name)
}

// TitleCase turns "row_1" into "Row 1".
func TitleCase(name string) string {
	// a Caser keeps state, so one is built per call
	return cases.Title(language.Und).String(strings.ReplaceAll(name, "_", " "))
}

// Catalog maps pattern names to patterns.
type Catalog map[string]Pattern

// Names returns the catalog's pattern names in sorted order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for n := range c {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// PatternSource resolves the patterns that may be claimed in an event.
type PatternSource interface {
	PatternsFor(ctx context.Context, eventID uint) (Catalog, error)
}

var lineFamilies = []string{"row_", "col_", "diag_"}

// Lines returns the catalog's line patterns in the order "bingo" claims try
// them: rows, then columns, then diagonals, each by number. Custom lines such
// as "diag_3" take part as soon as the catalog carries them.
func (c Catalog) Lines() []string {
	var lines []string
	for name := range c {
		if IsLine(name) {
			lines = append(lines, name)
		}
	}
	sort.Slice(lines, func(i, j int) bool {
		fi, ni := lineRank(lines[i])
		fj, nj := lineRank(lines[j])
		if fi != fj {
			return fi < fj
		}
		if ni != nj {
			return ni < nj
		}
		return lines[i] < lines[j]
	})
	return lines
}

// lineRank splits a line name into its family and number. A suffix that is
// not a number sorts after the numbered lines of its family.
func lineRank(name string) (family, number int) {
	for i, prefix := range lineFamilies {
		if suffix, ok := strings.CutPrefix(name, prefix); ok {
			n, err := strconv.Atoi(suffix)
			if err != nil {
				n = math.MaxInt
			}
			return i, n
		}
	}
	return len(lineFamilies), 0
}

// IsLine reports whether name belongs to the row/column/diagonal families.
func IsLine(name string) bool {
	return strings.HasPrefix(name, "row_") || strings.HasPrefix(name, "col_") || strings.HasPrefix(name, "diag_")
}

// DefaultPatterns is the built-in pattern set.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{Name: "row_1", DisplayName: "Top Row", Positions: []int{0, 1, 2, 3, 4}},
		{Name: "row_2", DisplayName: "Second Row", Positions: []int{5, 6, 7, 8, 9}},
		{Name: "row_3", DisplayName: "Middle Row", Positions: []int{10, 11, 12, 13, 14}},
		{Name: "row_4", DisplayName: "Fourth Row", Positions: []int{15, 16, 17, 18, 19}},
		{Name: "row_5", DisplayName: "Bottom Row", Positions: []int{20, 21, 22, 23, 24}},
		{Name: "col_1", DisplayName: "First Column", Positions: []int{0, 5, 10, 15, 20}},
		{Name: "col_2", DisplayName: "Second Column", Positions: []int{1, 6, 11, 16, 21}},
		{Name: "col_3", DisplayName: "Middle Column", Positions: []int{2, 7, 12, 17, 22}},
		{Name: "col_4", DisplayName: "Fourth Column", Positions: []int{3, 8, 13, 18, 23}},
		{Name: "col_5", DisplayName: "Last Column", Positions: []int{4, 9, 14, 19, 24}},
		{Name: "diag_1", DisplayName: "Diagonal (Top Left to Bottom Right)", Positions: []int{0, 6, 12, 18, 24}},
		{Name: "diag_2", DisplayName: "Diagonal (Top Right to Bottom Left)", Positions: []int{4, 8, 12, 16, 20}},
		{Name: "corners", DisplayName: "Four Corners", Positions: []int{0, 4, 20, 24}},
		{Name: "center", DisplayName: "Center Square (3x3)", Positions: []int{6, 7, 8, 11, 12, 13, 16, 17, 18}},
		{Name: "blackout", DisplayName: "Blackout (Full Card)", Positions: []int{
			0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24,
		}},
		{Name: "x_shape", DisplayName: "X Shape", Positions: []int{0, 4, 6, 8, 12, 16, 18, 20, 24}},
		{Name: "plus_sign", DisplayName: "Plus Sign", Positions: []int{2, 7, 10, 11, 12, 13, 14, 17, 22}},
	}
}

// DefaultCatalog returns DefaultPatterns keyed by name.
func DefaultCatalog() Catalog {
	c := make(Catalog)
	for _, p := range DefaultPatterns() {
		c[p.Name] = p
	}
	return c
}

// ValidatePositions checks that positions form a usable shape.
func ValidatePositions(positions []int) error {
	if len(positions) == 0 {
		return ErrNoPositions
	}
	seen := make(map[int]bool, len(positions))
	for _, p := range positions {
		if p < 0 || p >= GridSize {
			return fmt.Errorf("%w: got %d", ErrPositionRange, p)
		}
		if seen[p] {
			return fmt.Errorf("%w: %d", ErrDuplicatePosition, p)
		}
		seen[p] = true
	}
	return nil
}

// ParsePositions converts decoded JSON values into positions, rejecting
// anything that is not an integer.
func ParsePositions(raw []any) ([]int, error) {
	out := make([]int, 0, len(raw))
	for _, v := range raw {
		n, ok := integer(v)
		if !ok {
			return nil, fmt.Errorf("%w: got %v", ErrPositionRange, v)
		}
		out = append(out, n)
	}
	return out, nil
}

// SameShape compares two position lists as unordered sets.
func SameShape(a, b []int) bool {
	x := uniqueSorted(a)
	y := uniqueSorted(b)
	return slices.Equal(x, y)
}

func uniqueSorted(in []int) []int {
	out := append([]int(nil), in...)
	slices.Sort(out)
	return slices.Compact(out)
}

// PositionMap renders a pattern as a 5x5 boolean grid.
func PositionMap(positions []int) [Columns][Columns]bool {
	var m [Columns][Columns]bool
	for _, p := range positions {
		if p >= 0 && p < GridSize {
			m[p/Columns][p%Columns] = true
		}
	}
	return m
}

// -------------------- In-memory source --------------------

// MemorySource serves patterns from memory with per-event scoping. It backs
// tests and acts as the fallback when no patterns are stored.
type MemorySource struct {
	mu       sync.RWMutex
	patterns map[string]memoryPattern
	allowed  map[uint]map[string]bool
	disabled map[uint]map[string]bool
}

type memoryPattern struct {
	Pattern
	active bool
}

// NewMemorySource builds a source where every given pattern is active.
func NewMemorySource(patterns ...Pattern) *MemorySource {
	s := &MemorySource{
		patterns: make(map[string]memoryPattern, len(patterns)),
		allowed:  make(map[uint]map[string]bool),
		disabled: make(map[uint]map[string]bool),
	}
	for _, p := range patterns {
		s.patterns[p.Name] = memoryPattern{Pattern: p, active: true}
	}
	return s
}

// NewDefaultSource serves DefaultPatterns.
func NewDefaultSource() *MemorySource { return NewMemorySource(DefaultPatterns()...) }

func (s *MemorySource) SetActive(name string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.patterns[name]; ok {
		p.active = active
		s.patterns[name] = p
	}
}

func (s *MemorySource) Allow(eventID uint, names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.allowed[eventID] == nil {
		s.allowed[eventID] = make(map[string]bool)
	}
	for _, n := range names {
		s.allowed[eventID][n] = true
	}
}

func (s *MemorySource) Disable(eventID uint, names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disabled[eventID] == nil {
		s.disabled[eventID] = make(map[string]bool)
	}
	for _, n := range names {
		s.disabled[eventID][n] = true
	}
}

func (s *MemorySource) PatternsFor(_ context.Context, eventID uint) (Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allowed := s.allowed[eventID]
	out := make(Catalog)
	for name, p := range s.patterns {
		if !p.active {
			continue
		}
		if len(allowed) > 0 && !allowed[name] {
			continue
		}
		if s.disabled[eventID][name] {
			continue
		}
		out[name] = p.Pattern
	}
	return out, nil
}
