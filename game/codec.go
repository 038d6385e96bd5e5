package game

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ErrUnsupportedCard is returned when the stored card is not one of the
// known shapes at all. Problems inside a known shape only produce warnings.
var ErrUnsupportedCard = errors.New("unsupported card format")

// CellWarning describes a cell that could not be read and was set to 0.
type CellWarning struct {
	Index  int    `json:"index"`
	Token  string `json:"token,omitempty"`
	Reason string `json:"reason"`
}

func (w CellWarning) String() string {
	return fmt.Sprintf("cell %d (%q): %s", w.Index, w.Token, w.Reason)
}

// CardFormat is one of the historical card shapes. Each variant knows how to
// lay itself out as a canonical grid.
type CardFormat interface {
	Grid() (Grid, []CellWarning)
	Name() string
}

// TokenListFormat is 25 tokens like "B7" or "N0", in grid order.
type TokenListFormat []string

// FlatListFormat is a row-major list of raw integers.
type FlatListFormat []int

// PositionMapFormat maps a stringified grid index to a number or token.
type PositionMapFormat map[string]any

// ColumnFormat holds five values per column letter and the free cell location.
type ColumnFormat struct {
	Columns    map[string][]any
	FreeColumn string
	FreeRow    int
}

func (TokenListFormat) Name() string   { return "token_list" }
func (FlatListFormat) Name() string    { return "flat_list" }
func (PositionMapFormat) Name() string { return "position_map" }
func (ColumnFormat) Name() string      { return "columns" }

// Normalize decodes a stored card and returns its canonical grid.
func Normalize(raw []byte) (Grid, []CellWarning, error) {
	f, err := Decode(raw)
	if err != nil {
		return Grid{}, nil, err
	}
	g, warnings := f.Grid()
	return g, warnings, nil
}

// Decode sniffs the JSON shape of a stored card.
func Decode(raw []byte) (CardFormat, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedCard, err)
	}
	// some producers stored the card as a JSON string holding JSON
	if s, ok := v.(string); ok {
		return Decode([]byte(s))
	}
	return FromValue(v)
}

// FromValue classifies an already decoded JSON value.
func FromValue(v any) (CardFormat, error) {
	switch t := v.(type) {
	case []any:
		return listFormat(t), nil
	case map[string]any:
		if isColumnMap(t) {
			return columnFormat(t), nil
		}
		return PositionMapFormat(t), nil
	case []int:
		return FlatListFormat(append([]int(nil), t...)), nil
	case []string:
		return TokenListFormat(append([]string(nil), t...)), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedCard, v)
	}
}

func listFormat(items []any) CardFormat {
	ints := make([]int, 0, len(items))
	for _, it := range items {
		n, ok := integer(it)
		if !ok {
			break
		}
		ints = append(ints, n)
	}
	if len(ints) == len(items) {
		return FlatListFormat(ints)
	}
	tokens := make([]string, len(items))
	for i, it := range items {
		tokens[i] = tokenString(it)
	}
	return TokenListFormat(tokens)
}

func isColumnMap(m map[string]any) bool {
	for _, k := range []string{"B", "b"} {
		if _, ok := m[k].([]any); ok {
			return true
		}
	}
	return false
}

func columnFormat(m map[string]any) ColumnFormat {
	f := ColumnFormat{Columns: make(map[string][]any, Columns), FreeColumn: "N", FreeRow: 2}
	for k, v := range m {
		if vals, ok := v.([]any); ok {
			f.Columns[strings.ToUpper(k)] = vals
		}
	}
	if fs, ok := m["free_space"].(map[string]any); ok {
		if col, ok := fs["column"].(string); ok {
			f.FreeColumn = strings.ToUpper(strings.TrimSpace(col))
		}
		if row, ok := integer(fs["row"]); ok {
			f.FreeRow = row
		}
	}
	return f
}

// -------------------- Variant layouts --------------------

func (f TokenListFormat) Grid() (Grid, []CellWarning) {
	var g Grid
	var warnings []CellWarning
	for i := 0; i < GridSize; i++ {
		if i >= len(f) {
			warnings = append(warnings, CellWarning{Index: i, Reason: "missing"})
			continue
		}
		v, reason := parseToken(f[i])
		if reason != "" {
			warnings = append(warnings, CellWarning{Index: i, Token: f[i], Reason: reason})
			continue
		}
		g[i] = v
	}
	return g, warnings
}

func (f FlatListFormat) Grid() (Grid, []CellWarning) {
	var g Grid
	var warnings []CellWarning
	for i := 0; i < GridSize; i++ {
		if i >= len(f) {
			warnings = append(warnings, CellWarning{Index: i, Reason: "missing"})
			continue
		}
		if reason := checkRange(f[i]); reason != "" {
			warnings = append(warnings, CellWarning{Index: i, Token: strconv.Itoa(f[i]), Reason: reason})
			continue
		}
		g[i] = f[i]
	}
	return g, warnings
}

func (f PositionMapFormat) Grid() (Grid, []CellWarning) {
	var g Grid
	var warnings []CellWarning
	for i := 0; i < GridSize; i++ {
		raw, ok := f[strconv.Itoa(i)]
		if !ok {
			warnings = append(warnings, CellWarning{Index: i, Reason: "missing"})
			continue
		}
		v, reason := cellValue(raw)
		if reason != "" {
			warnings = append(warnings, CellWarning{Index: i, Token: tokenString(raw), Reason: reason})
			continue
		}
		g[i] = v
	}
	return g, warnings
}

func (f ColumnFormat) Grid() (Grid, []CellWarning) {
	var g Grid
	var warnings []CellWarning

	freeCol := letterIndex(f.FreeColumn)
	freeRow := f.FreeRow
	if freeCol < 0 || freeRow < 0 || freeRow >= Columns {
		warnings = append(warnings, CellWarning{Index: FreeIndex, Token: f.FreeColumn, Reason: "invalid free_space, using center"})
		freeCol, freeRow = 2, 2
	}

	for row := 0; row < Columns; row++ {
		for col, letter := range Letters {
			pos := row*Columns + col
			if col == freeCol && row == freeRow {
				g[pos] = Free
				continue
			}
			vals := f.Columns[letter]
			idx := row
			// the free column may omit its placeholder
			if col == freeCol && len(vals) == Columns-1 && row > freeRow {
				idx = row - 1
			}
			if idx >= len(vals) {
				warnings = append(warnings, CellWarning{Index: pos, Reason: "missing number for column " + letter})
				continue
			}
			v, reason := cellValue(vals[idx])
			if reason != "" {
				warnings = append(warnings, CellWarning{Index: pos, Token: tokenString(vals[idx]), Reason: reason})
				continue
			}
			g[pos] = v
		}
	}
	return g, warnings
}

// -------------------- Cell parsing --------------------

func cellValue(v any) (int, string) {
	switch t := v.(type) {
	case nil:
		return 0, "missing"
	case string:
		return parseToken(t)
	default:
		n, ok := integer(t)
		if !ok {
			return 0, "not an integer"
		}
		if reason := checkRange(n); reason != "" {
			return 0, reason
		}
		return n, ""
	}
}

// parseToken strips the leading column letter and keeps the digits.
func parseToken(tok string) (int, string) {
	s := strings.ToUpper(strings.TrimSpace(tok))
	if s == "FREE" {
		return Free, ""
	}
	s = strings.TrimLeftFunc(s, unicode.IsLetter)
	if s == "" {
		return 0, "malformed token"
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, "malformed token"
	}
	if reason := checkRange(n); reason != "" {
		return 0, reason
	}
	return n, ""
}

func checkRange(n int) string {
	if n < 0 || n > MaxNumber {
		return "value out of range"
	}
	return ""
}

func integer(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n), true
		}
		f, err := t.Float64()
		if err != nil || f != math.Trunc(f) {
			return 0, false
		}
		return int(f), true
	case float64:
		if t != math.Trunc(t) {
			return 0, false
		}
		return int(t), true
	case int:
		return t, true
	case int64:
		return int(t), true
	default:
		return 0, false
	}
}

func tokenString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func letterIndex(letter string) int {
	for i, l := range Letters {
		if l == letter {
			return i
		}
	}
	return -1
}
