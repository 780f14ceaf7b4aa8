package sim

import (
	"math"
	"testing"
	"time"
)

// connectClient 测试辅助：零延迟接入一个客户端，返回 id、上行与下行队列
func connectClient(t *testing.T, s *ServerSim, lagMs int) (EntityID, *LagQueue[InputCommand], *LagQueue[WorldSnapshot]) {
	t.Helper()
	inbound := &LagQueue[WorldSnapshot]{}
	params := NewClientParams(lagMs, true, true, false, 0)
	id, outbound := s.Connect(inbound, params)
	return id, outbound, inbound
}

func TestConnectAssignsSpawnPositions(t *testing.T) {
	s := NewServerSim(2, nil)
	id0, _, _ := connectClient(t, s, 0)
	id1, _, _ := connectClient(t, s, 0)
	if id0 != 0 || id1 != 1 {
		t.Fatalf("ids must follow connection order, got %d,%d", id0, id1)
	}
	states := s.RenderStates()
	if states[0].Pos != 4 || states[1].Pos != 6 {
		t.Fatalf("expected spawns 4 and 6, got %v", states)
	}
}

func TestServerAppliesAcceptedInputs(t *testing.T) {
	// 20 条满幅命令累计 +1：4 → 5，确认水位推进到最后一条
	s := NewServerSim(2, nil)
	_, up, down := connectClient(t, s, 0)
	_, _, _ = connectClient(t, s, 0)

	now := testBase
	for seq := int64(0); seq < 20; seq++ {
		up.Send(InputCommand{EntityID: 0, PressTime: MaxPressTime, Seq: seq}, now, 0)
	}
	s.Tick(now)

	snap, ok := down.Receive(now)
	if !ok {
		t.Fatalf("expected a snapshot after the tick")
	}
	if len(snap.States) != 2 {
		t.Fatalf("snapshot must cover every entity, got %d", len(snap.States))
	}
	if math.Abs(snap.States[0].Position-5) > 1e-9 {
		t.Fatalf("entity 0 position=%v want 5", snap.States[0].Position)
	}
	if snap.States[0].LastProcessed != 19 {
		t.Fatalf("lastProcessed=%d want 19", snap.States[0].LastProcessed)
	}
	if snap.States[1].Position != 6 {
		t.Fatalf("entity 1 must be untouched, got %v", snap.States[1].Position)
	}
}

func TestServerSingleCommandScenario(t *testing.T) {
	s := NewServerSim(2, nil)
	_, up, down := connectClient(t, s, 0)

	up.Send(InputCommand{EntityID: 0, PressTime: MaxPressTime, Seq: 0}, testBase, 0)
	s.Tick(testBase)

	snap, _ := down.Receive(testBase)
	want := 4 + MaxPressTime*2
	if math.Abs(snap.States[0].Position-want) > 1e-12 {
		t.Fatalf("position=%v want=%v", snap.States[0].Position, want)
	}
	if snap.States[0].LastProcessed != 0 {
		t.Fatalf("lastProcessed=%d want 0", snap.States[0].LastProcessed)
	}
}

func TestServerRejectsOversizedInput(t *testing.T) {
	m := &Metrics{}
	s := NewServerSim(2, m)
	_, up, down := connectClient(t, s, 0)

	cases := []float64{0.5, -0.5, MaxPressTime * 2, -(MaxPressTime + 1e-9)}
	for i, pt := range cases {
		up.Send(InputCommand{EntityID: 0, PressTime: pt, Seq: int64(i)}, testBase, 0)
	}
	s.Tick(testBase)

	snap, _ := down.Receive(testBase)
	if snap.States[0].Position != 4 {
		t.Fatalf("oversized input must never move the entity, got %v", snap.States[0].Position)
	}
	if snap.States[0].LastProcessed != NoInputProcessed {
		t.Fatalf("rejected input must not advance lastProcessed, got %d", snap.States[0].LastProcessed)
	}
	if got := m.Snapshot()["inputs_rejected"].(int64); got != int64(len(cases)) {
		t.Fatalf("inputs_rejected=%d want %d", got, len(cases))
	}
}

func TestLastProcessedIsMonotonic(t *testing.T) {
	// 乱序到达：seq 1 先于 seq 0 送达，确认水位不得回退
	s := NewServerSim(2, nil)
	_, up, down := connectClient(t, s, 0)

	up.Send(InputCommand{EntityID: 0, PressTime: 0.01, Seq: 0}, testBase, 50*time.Millisecond)
	up.Send(InputCommand{EntityID: 0, PressTime: 0.01, Seq: 1}, testBase.Add(10*time.Millisecond), 0)

	s.Tick(testBase.Add(10 * time.Millisecond))
	snap, _ := down.Receive(testBase.Add(10 * time.Millisecond))
	if snap.States[0].LastProcessed != 1 {
		t.Fatalf("lastProcessed=%d want 1", snap.States[0].LastProcessed)
	}

	s.Tick(testBase.Add(60 * time.Millisecond))
	snap, _ = down.Receive(testBase.Add(60 * time.Millisecond))
	if snap.States[0].LastProcessed != 1 {
		t.Fatalf("late seq 0 regressed lastProcessed to %d", snap.States[0].LastProcessed)
	}
	// 迟到命令依然会被应用，只是不影响确认水位
	want := 4 + 0.02*2
	if math.Abs(snap.States[0].Position-want) > 1e-12 {
		t.Fatalf("position=%v want=%v", snap.States[0].Position, want)
	}
}

func TestBroadcastUsesPerClientLag(t *testing.T) {
	s := NewServerSim(2, nil)
	_, _, down0 := connectClient(t, s, 0)
	_, _, down1 := connectClient(t, s, 100)

	s.Tick(testBase)
	if _, ok := down0.Receive(testBase); !ok {
		t.Fatalf("zero-lag client must receive immediately")
	}
	if _, ok := down1.Receive(testBase.Add(99 * time.Millisecond)); ok {
		t.Fatalf("100ms-lag client must not receive early")
	}
	if _, ok := down1.Receive(testBase.Add(100 * time.Millisecond)); !ok {
		t.Fatalf("100ms-lag client must receive after its lag")
	}
}
