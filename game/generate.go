package game

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Generator deals random cards. It is safe for concurrent use.
type Generator struct {
	mu sync.Mutex
	r  *rand.Rand
}

func NewGenerator(seed int64) *Generator {
	return &Generator{r: rand.New(rand.NewSource(seed))}
}

// NewRandomGenerator seeds from the clock.
func NewRandomGenerator() *Generator {
	return NewGenerator(time.Now().UnixNano())
}

// Card draws five values per column from its band and frees the center.
func (g *Generator) Card() Grid {
	g.mu.Lock()
	defer g.mu.Unlock()

	var grid Grid
	for col := 0; col < Columns; col++ {
		lo, _ := Band(col)
		perm := g.r.Perm(15)
		for row := 0; row < Columns; row++ {
			grid[row*Columns+col] = lo + perm[row]
		}
	}
	grid[FreeIndex] = Free
	return grid
}

// Draw returns 1..75 in random order.
func (g *Generator) Draw() []int {
	g.mu.Lock()
	defer g.mu.Unlock()

	nums := make([]int, MaxNumber)
	for i := range nums {
		nums[i] = i + 1
	}
	g.r.Shuffle(len(nums), func(i, j int) { nums[i], nums[j] = nums[j], nums[i] })
	return nums
}

// Encode stores a grid in the token-list shape, the format new cards use.
func Encode(grid Grid) ([]byte, error) {
	return json.Marshal(grid.Tokens())
}

// Hash is the content hash stored with a card. salt keeps two identical
// layouts from colliding.
func Hash(owner string, eventID uint, grid Grid, salt string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s-%d-%s-%s", owner, eventID, grid.Key(), salt)))
	return hex.EncodeToString(sum[:])
}

// ColumnMap lays the grid out by column letter, the shape card pickers show.
func (g Grid) ColumnMap() map[string][]int {
	out := make(map[string][]int, Columns)
	for col, letter := range Letters {
		vals := make([]int, Columns)
		for row := 0; row < Columns; row++ {
			vals[row] = g.At(row, col)
		}
		out[letter] = vals
	}
	return out
}
