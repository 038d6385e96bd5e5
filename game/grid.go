package game

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	GridSize  = 25
	Columns   = 5
	FreeIndex = 12 // row 2, col 2
	Free      = 0
	MinNumber = 1
	MaxNumber = 75
)

// Letters are the column headers in grid order.
var Letters = [Columns]string{"B", "I", "N", "G", "O"}

// Grid is a 5x5 card in row-major order. A zero cell is the free space.
type Grid [GridSize]int

// Band returns the inclusive value range for a column.
func Band(col int) (lo, hi int) {
	lo = col*15 + 1
	return lo, lo + 14
}

// ColumnOf returns the column a called value belongs to, or -1.
func ColumnOf(value int) int {
	if value < MinNumber || value > MaxNumber {
		return -1
	}
	return (value - 1) / 15
}

// Label renders a value the way callers announce it, e.g. "G52".
func Label(value int) string {
	col := ColumnOf(value)
	if col < 0 {
		return strconv.Itoa(value)
	}
	return Letters[col] + strconv.Itoa(value)
}

func (g Grid) At(row, col int) int { return g[row*Columns+col] }

// Key is a stable string form of the grid, used to spot duplicate layouts.
func (g Grid) Key() string {
	parts := make([]string, GridSize)
	for i, v := range g {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// Tokens renders the grid in the token-list shape ("B7", ..., "N0" for free).
func (g Grid) Tokens() []string {
	out := make([]string, GridSize)
	for i, v := range g {
		out[i] = Letters[i%Columns] + strconv.Itoa(v)
	}
	return out
}

var errInvalidGrid = errors.New("invalid grid")

// ErrUnplayable is returned by CheckPlayable.
var ErrUnplayable = errors.New("card cannot be played")

// CheckPlayable is the check every stored card must pass before it is
// judged: exactly one free cell, wherever the layout put it, and no value
// twice. Unlike Validate it does not hold values to their column bands.
func (g Grid) CheckPlayable() error {
	free := 0
	seen := make(map[int]bool, GridSize)
	for i, v := range g {
		if v == Free {
			free++
			continue
		}
		if v < MinNumber || v > MaxNumber {
			return fmt.Errorf("%w: cell %d value %d out of range", ErrUnplayable, i, v)
		}
		if seen[v] {
			return fmt.Errorf("%w: value %d repeated", ErrUnplayable, v)
		}
		seen[v] = true
	}
	if free != 1 {
		return fmt.Errorf("%w: %d free cells, want 1", ErrUnplayable, free)
	}
	return nil
}

// Validate checks the rules of a standard card: a single free cell at
// the center and 24 distinct values, each inside its column band.
func (g Grid) Validate() error {
	seen := make(map[int]bool, GridSize)
	for i, v := range g {
		if i == FreeIndex {
			if v != Free {
				return fmt.Errorf("%w: center cell is %d, want free", errInvalidGrid, v)
			}
			continue
		}
		lo, hi := Band(i % Columns)
		if v < lo || v > hi {
			return fmt.Errorf("%w: cell %d value %d outside %s band %d-%d", errInvalidGrid, i, v, Letters[i%Columns], lo, hi)
		}
		if seen[v] {
			return fmt.Errorf("%w: value %d repeated", errInvalidGrid, v)
		}
		seen[v] = true
	}
	return nil
}

// CalledSet holds the values drawn for an event. Zero and out-of-range values
// are never members.
type CalledSet map[int]struct{}

func NewCalledSet(values ...int) CalledSet {
	s := make(CalledSet, len(values))
	for _, v := range values {
		s.Add(v)
	}
	return s
}

func (s CalledSet) Add(v int) {
	if v < MinNumber || v > MaxNumber {
		return
	}
	s[v] = struct{}{}
}

func (s CalledSet) Has(v int) bool {
	_, ok := s[v]
	return ok
}

// satisfied reports whether cell i counts as marked.
func satisfied(g Grid, called CalledSet, i int) bool {
	return g[i] == Free || called.Has(g[i])
}
