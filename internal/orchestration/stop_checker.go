package orchestration

import (
	"context"

	"github.com/aixgo-dev/agentarch/agent"
	"github.com/aixgo-dev/agentarch/internal/jsonx"
	"github.com/mudler/xlog"
)

// StopCheckerName is the name given to the checker appended to
// plan-execute-verify loops.
const StopCheckerName = "StopChecker"

// StopChecker ends a plan-execute-verify loop once the verifier reports
// success. It reads the verifier's JSON from the "verification" state key
// and, on {"status": "SUCCESS"}, copies final_result into "result" and
// escalates.
type StopChecker struct {
	agent.Base
}

// NewStopChecker creates a checker.
func NewStopChecker(name string) *StopChecker {
	if name == "" {
		name = StopCheckerName
	}
	return &StopChecker{Base: agent.NewBase(name, "Stops the loop when verification succeeds")}
}

type verification struct {
	Status      string `json:"status"`
	FinalResult any    `json:"final_result"`
}

// Run inspects the latest verification.
func (s *StopChecker) Run(ctx context.Context, inv *agent.Invocation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ev := agent.Event{Author: s.Name()}
	var v verification
	if jsonx.Decode(inv.State.GetString("verification", "{}"), &v) && v.Status == "SUCCESS" {
		result := ""
		if v.FinalResult != nil {
			result = agent.Stringify(v.FinalResult)
		}
		ev.Actions.StateDelta = map[string]any{"result": result}
		ev.Actions.Escalate = true
		xlog.Debug("Verification succeeded", "agent", s.Name(), "invocation", inv.ID)
	}
	inv.Emit(ev)
	return nil
}
