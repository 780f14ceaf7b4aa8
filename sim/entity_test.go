package sim

import (
	"math"
	"testing"
)

func TestApplyInputIsDeterministicSum(t *testing.T) {
	e := NewEntity(0, 10, 2)
	cmds := []InputCommand{
		{EntityID: 0, PressTime: 0.02, Seq: 0},
		{EntityID: 0, PressTime: -0.015, Seq: 1},
		{EntityID: 0, PressTime: 0.025, Seq: 2},
	}
	want := 10.0
	for _, cmd := range cmds {
		e.ApplyInput(cmd)
		want += cmd.PressTime * 2
	}
	if math.Abs(e.Position-want) > 1e-12 {
		t.Fatalf("position=%v want=%v", e.Position, want)
	}
}

func TestApplyInputSignEncodesDirection(t *testing.T) {
	e := NewEntity(1, 5, 2)
	e.ApplyInput(InputCommand{EntityID: 1, PressTime: 0.02})
	if e.Position <= 5 {
		t.Fatalf("positive pressTime must move right, got %v", e.Position)
	}
	e.ApplyInput(InputCommand{EntityID: 1, PressTime: -0.02})
	if math.Abs(e.Position-5) > 1e-12 {
		t.Fatalf("opposite presses must cancel, got %v", e.Position)
	}
}
