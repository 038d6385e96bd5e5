package game

import (
	"errors"
	"math"
	"sort"
	"strconv"
)

// ErrNotCalled is returned by CompletedBy when the target value was never drawn.
var ErrNotCalled = errors.New("number was not called in this event")

// MatchDetail describes a winning pattern on a card.
type MatchDetail struct {
	PatternName    string   `json:"pattern_name"`
	DisplayName    string   `json:"display_name"`
	Positions      []int    `json:"positions"`
	MatchedNumbers []string `json:"matched_numbers"`
}

// Evaluate decides whether the grid wins the named pattern with the called
// values. The name AnyLine tries every row, then column, then diagonal present
// in the catalog and reports the first complete one. A nil catalog means the
// default patterns.
func Evaluate(grid Grid, called CalledSet, name string, catalog Catalog) (bool, *MatchDetail) {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if name == AnyLine {
		for _, line := range catalog.Lines() {
			p := catalog[line]
			if complete(grid, called, p.Positions) {
				return true, detail(grid, p)
			}
		}
		return false, nil
	}

	p, ok := catalog[name]
	if !ok || !complete(grid, called, p.Positions) {
		return false, nil
	}
	return true, detail(grid, p)
}

func complete(grid Grid, called CalledSet, positions []int) bool {
	if len(positions) == 0 {
		return false
	}
	for _, pos := range positions {
		if pos < 0 || pos >= GridSize || !satisfied(grid, called, pos) {
			return false
		}
	}
	return true
}

func detail(grid Grid, p Pattern) *MatchDetail {
	d := &MatchDetail{
		PatternName:    p.Name,
		DisplayName:    p.Title(),
		Positions:      append([]int(nil), p.Positions...),
		MatchedNumbers: make([]string, len(p.Positions)),
	}
	for i, pos := range p.Positions {
		d.MatchedNumbers[i] = strconv.Itoa(grid[pos])
	}
	return d
}

// PatternProgress is how far a card is from completing one pattern.
type PatternProgress struct {
	PatternName    string  `json:"pattern_name"`
	DisplayName    string  `json:"display_name"`
	Matched        int     `json:"matched"`
	Total          int     `json:"total"`
	Percent        float64 `json:"completion_percentage"`
	Complete       bool    `json:"is_complete"`
	MissingNumbers []int   `json:"missing_numbers"`
}

// Progress counts the satisfied positions of a pattern.
func Progress(grid Grid, called CalledSet, p Pattern) PatternProgress {
	pr := PatternProgress{
		PatternName:    p.Name,
		DisplayName:    p.Title(),
		Total:          len(p.Positions),
		MissingNumbers: []int{},
	}
	for _, pos := range p.Positions {
		if pos < 0 || pos >= GridSize {
			continue
		}
		if satisfied(grid, called, pos) {
			pr.Matched++
			continue
		}
		pr.MissingNumbers = append(pr.MissingNumbers, grid[pos])
	}
	sort.Ints(pr.MissingNumbers)
	if pr.Total > 0 {
		pr.Percent = math.Round(float64(pr.Matched)/float64(pr.Total)*1000) / 10
	}
	pr.Complete = pr.Total > 0 && pr.Matched == pr.Total
	return pr
}

// ProgressAll reports every pattern of the catalog, most complete first.
func ProgressAll(grid Grid, called CalledSet, catalog Catalog) []PatternProgress {
	out := make([]PatternProgress, 0, len(catalog))
	for _, name := range catalog.Names() {
		out = append(out, Progress(grid, called, catalog[name]))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Percent > out[j].Percent })
	return out
}

// CompletedBy reports the patterns that the call of target completed: each
// one was incomplete with the numbers drawn before target and complete once
// target is added. sequence is the event's called values in call order.
func CompletedBy(grid Grid, sequence []int, target int, catalog Catalog) ([]MatchDetail, error) {
	idx := -1
	for i, v := range sequence {
		if v == target {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrNotCalled
	}
	if catalog == nil {
		catalog = DefaultCatalog()
	}

	before := NewCalledSet(sequence[:idx]...)
	after := NewCalledSet(sequence[:idx+1]...)

	var out []MatchDetail
	for _, name := range catalog.Names() {
		wasWon, _ := Evaluate(grid, before, name, catalog)
		won, d := Evaluate(grid, after, name, catalog)
		if !wasWon && won {
			out = append(out, *d)
		}
	}
	return out, nil
}
