package orchestration

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aixgo-dev/agentarch/agent"
	"github.com/mudler/xlog"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// Unreached marks a cell the wave has not touched yet.
	Unreached = -1

	waveGridSize      = 5
	waveMaxIterations = 15
	unknownRequest    = "Unknown request"
)

// WaveGrid is a square grid of distances to a target cell. Each cell
// takes one more than its smallest orthogonal neighbour.
type WaveGrid struct {
	Cells     [][]int
	TargetRow int
	TargetCol int
}

// NewWaveGrid creates a size x size grid with only the target set.
func NewWaveGrid(size, targetRow, targetCol int) *WaveGrid {
	cells := make([][]int, size)
	for i := range cells {
		cells[i] = make([]int, size)
		for j := range cells[i] {
			cells[i][j] = Unreached
		}
	}
	cells[targetRow][targetCol] = 0
	return &WaveGrid{Cells: cells, TargetRow: targetRow, TargetCol: targetCol}
}

var neighbours = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

// candidate returns the value cell (i, j) would take from src, or
// Unreached if no neighbour has been reached.
func (g *WaveGrid) candidate(src [][]int, i, j int) int {
	best := Unreached
	for _, d := range neighbours {
		ni, nj := i+d[0], j+d[1]
		if ni < 0 || nj < 0 || ni >= len(src) || nj >= len(src[ni]) {
			continue
		}
		if v := src[ni][nj]; v != Unreached && (best == Unreached || v+1 < best) {
			best = v + 1
		}
	}
	cur := src[i][j]
	if cur != Unreached && (best == Unreached || cur < best) {
		return cur
	}
	return best
}

// Propagate updates cells in place, row by row, so a cell already sees
// the new values of the cells before it. It reports whether anything
// changed.
func (g *WaveGrid) Propagate() bool {
	changed := false
	for i := range g.Cells {
		for j := range g.Cells[i] {
			if i == g.TargetRow && j == g.TargetCol {
				continue
			}
			if v := g.candidate(g.Cells, i, j); v != g.Cells[i][j] {
				g.Cells[i][j] = v
				changed = true
			}
		}
	}
	return changed
}

// Step updates every cell from the previous generation at once. It
// reports whether anything changed.
func (g *WaveGrid) Step() bool {
	prev := make([][]int, len(g.Cells))
	for i := range g.Cells {
		prev[i] = append([]int(nil), g.Cells[i]...)
	}
	changed := false
	for i := range prev {
		for j := range prev[i] {
			if i == g.TargetRow && j == g.TargetCol {
				continue
			}
			if v := g.candidate(prev, i, j); v != prev[i][j] {
				g.Cells[i][j] = v
				changed = true
			}
		}
	}
	return changed
}

// String renders one row per line, "∞" for unreached cells.
func (g *WaveGrid) String() string {
	rows := make([]string, len(g.Cells))
	for i, row := range g.Cells {
		vals := make([]string, len(row))
		for j, v := range row {
			if v == Unreached {
				vals[j] = "∞"
			} else {
				vals[j] = strconv.Itoa(v)
			}
		}
		rows[i] = strings.Join(vals, " ")
	}
	return strings.Join(rows, "\n")
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// CellularAutomataAgent answers by running a distance wave over a 5x5
// grid. It needs no model.
type CellularAutomataAgent struct {
	agent.Base
}

// NewCellularAutomataAgent creates the agent.
func NewCellularAutomataAgent(name string) *CellularAutomataAgent {
	if name == "" {
		name = "CellularAutomata"
	}
	return &CellularAutomataAgent{Base: agent.NewBase(name, "Solves requests by wave propagation over a cell grid")}
}

// Run propagates the wave and emits progress followed by the answer.
func (c *CellularAutomataAgent) Run(ctx context.Context, inv *agent.Invocation) error {
	ctx, span := startSpan(ctx, "cellular_automata", c.Name())
	defer span.End()

	request := inv.UserText()
	if request == "" {
		request = unknownRequest
	}
	emitText(inv, c.Name(), fmt.Sprintf("🌊 Initializing cellular automata grid to solve: '%s'", request))

	last := waveGridSize - 1
	grid := NewWaveGrid(waveGridSize, last, last)
	emitText(inv, c.Name(), fmt.Sprintf("🎯 Target cell set at position %d,%d with value 0", last, last))

	iterations := 0
	for i := 0; i < waveMaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		iterations = i + 1
		changed := grid.Propagate()
		emitText(inv, c.Name(), fmt.Sprintf("🔄 Wave propagation iteration %d - Changes: %s", iterations, pyBool(changed)))
		if !changed {
			emitText(inv, c.Name(), fmt.Sprintf("✅ Wave propagation converged after %d iterations", iterations))
			break
		}
	}
	span.SetAttributes(attribute.Int("cellular.iterations", iterations))
	xlog.Debug("Wave propagation finished", "agent", c.Name(), "iterations", iterations, "invocation", inv.ID)

	summary := grid.String()
	setState(inv, c.Name(), map[string]any{"cellular_grid": summary})
	emitText(inv, c.Name(), cellularResponse(request, summary))
	return nil
}

func cellularResponse(request, grid string) string {
	header := "Cellular automata computation complete!\n\n" +
		"Grid state after wave propagation (distances from target):\n" + grid + "\n\n"
	lower := strings.ToLower(request)
	if strings.Contains(lower, "hello") || strings.Contains(lower, "world") {
		return header +
			"Based on the emergent computation from 25 cells working in parallel:\n\n" +
			"```python\ndef hello_world():\n    print(\"Hello, World!\")\n\nhello_world()\n```\n\n" +
			"Hello, World!\n\n" +
			"The cellular automata has computed optimal paths from every cell to the target through wave propagation."
	}
	return header +
		fmt.Sprintf("Based on the emergent computation from 25 cells working in parallel, here's my response to your request: '%s'\n\n", request) +
		"The cellular automata has processed your request through wave propagation across a 5x5 grid of interconnected cells. " +
		"Each cell represents a computational unit that collaborates with its neighbors to solve complex problems through emergent behavior."
}
