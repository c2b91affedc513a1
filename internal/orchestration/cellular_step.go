package orchestration

import (
	"context"
	"fmt"

	"github.com/aixgo-dev/agentarch/agent"
	"github.com/aixgo-dev/agentarch/internal/jsonx"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// CellularGridKey holds the stepped grid in state.
	CellularGridKey = "ca_grid"
	// CellularStepsKey counts the steps taken so far.
	CellularStepsKey = "ca_steps"

	DefaultStepGridSize = 10
)

// CellularStepAgent advances a wave grid kept in state by one synchronous
// generation per run and escalates once the grid is stable. It is meant to
// sit inside a loop.
type CellularStepAgent struct {
	agent.Base
	size int
}

// NewCellularStepAgent creates a stepper over a size x size grid with the
// target in the bottom-right corner.
func NewCellularStepAgent(name string, size int) *CellularStepAgent {
	if size <= 0 {
		size = DefaultStepGridSize
	}
	return &CellularStepAgent{
		Base: agent.NewBase(name, "Advances a cellular wave grid by one step"),
		size: size,
	}
}

// loadGrid reads the grid from state, starting fresh when it is missing or
// does not match the configured size.
func (c *CellularStepAgent) loadGrid(inv *agent.Invocation) *WaveGrid {
	last := c.size - 1
	grid := NewWaveGrid(c.size, last, last)
	raw, ok := inv.State.Get(CellularGridKey)
	if !ok {
		return grid
	}
	var cells [][]int
	if !jsonx.Decode(agent.Stringify(raw), &cells) || len(cells) != c.size {
		return grid
	}
	for _, row := range cells {
		if len(row) != c.size {
			return grid
		}
	}
	grid.Cells = cells
	return grid
}

// Run performs one step.
func (c *CellularStepAgent) Run(ctx context.Context, inv *agent.Invocation) error {
	_, span := startSpan(ctx, "cellular_step", c.Name())
	defer span.End()
	if err := ctx.Err(); err != nil {
		return err
	}

	grid := c.loadGrid(inv)
	changed := grid.Step()
	steps := 1
	if n, ok := inv.State.Get(CellularStepsKey); ok {
		var prev int
		if jsonx.Decode(agent.Stringify(n), &prev) {
			steps = prev + 1
		}
	}
	span.SetAttributes(
		attribute.Int("cellular.step", steps),
		attribute.Bool("cellular.changed", changed),
	)

	text := fmt.Sprintf("Step %d - Changes: %s\n%s", steps, pyBool(changed), grid.String())
	if !changed {
		text = fmt.Sprintf("Grid stable after %d steps\n%s", steps, grid.String())
	}
	ev := agent.TextEvent(c.Name(), text)
	ev.Actions.StateDelta = map[string]any{
		CellularGridKey:  grid.Cells,
		CellularStepsKey: steps,
	}
	ev.Actions.Escalate = !changed
	inv.Emit(ev)
	return nil
}
