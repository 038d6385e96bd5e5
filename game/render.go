package game

import (
	"fmt"
	"strings"
)

// RenderCard draws the grid as text, one row per line.
func RenderCard(g Grid) string {
	var b strings.Builder
	b.WriteString("   B    I    N    G    O  \n")
	b.WriteString("  ------------------------\n")
	for row := 0; row < Columns; row++ {
		b.WriteString("| ")
		for col := 0; col < Columns; col++ {
			v := g.At(row, col)
			cell := fmt.Sprintf("%2d", v)
			if v == Free {
				cell = "FREE"
			}
			fmt.Fprintf(&b, "%-4s ", cell)
		}
		b.WriteString("|\n")
	}
	b.WriteString("  ------------------------\n")
	return b.String()
}

// RenderPattern marks a pattern's positions with X on a 5x5 board.
func RenderPattern(positions []int) string {
	m := PositionMap(positions)
	var b strings.Builder
	b.WriteString("  B I N G O\n")
	for row := 0; row < Columns; row++ {
		fmt.Fprintf(&b, "%d", row+1)
		for col := 0; col < Columns; col++ {
			mark := "·"
			if m[row][col] {
				mark = "X"
			}
			b.WriteString(" " + mark)
		}
		b.WriteString("\n")
	}
	return b.String()
}
