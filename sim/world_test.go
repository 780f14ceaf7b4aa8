package sim

import (
	"math"
	"testing"
	"time"
)

// TestClientServerConverges 手动驱动虚拟时钟的端到端收敛：
// 客户端 0 按住右键一段时间后松开，确认全部到达后，
// 预测+和解的本地位置必须与服务端权威位置一致，
// 客户端 1 懒建镜像并直接跟随权威位置
func TestClientServerConverges(t *testing.T) {
	speed := 2.0
	server := NewServerSim(speed, nil)

	p0 := NewClientParams(0, true, true, false, 0)
	p1 := NewClientParams(0, false, false, false, 0)
	ctl0, ctl1 := &Controls{}, &Controls{}

	in0 := &LagQueue[WorldSnapshot]{}
	id0, out0 := server.Connect(in0, p0)
	c0 := NewClientSim(id0, speed, 10, out0, in0, p0, ctl0, nil)

	in1 := &LagQueue[WorldSnapshot]{}
	id1, out1 := server.Connect(in1, p1)
	c1 := NewClientSim(id1, speed, 10, out1, in1, p1, ctl1, nil)

	// 客户端 50Hz，服务端 10Hz；前 30 帧按住右键
	ctl0.SetKeys(false, true)
	now := testBase
	for i := 1; i <= 50; i++ {
		if i == 31 {
			ctl0.SetKeys(false, false)
		}
		now = testBase.Add(time.Duration(i) * 20 * time.Millisecond)
		c0.Tick(now)
		c1.Tick(now)
		if i%5 == 0 {
			server.Tick(now)
		}
	}
	// 再空转几帧让最后的快照送达
	for i := 51; i <= 55; i++ {
		now = testBase.Add(time.Duration(i) * 20 * time.Millisecond)
		c0.Tick(now)
		c1.Tick(now)
		if i%5 == 0 {
			server.Tick(now)
		}
	}

	authoritative := server.RenderStates()[0].Pos
	if authoritative <= 4 {
		t.Fatalf("held key must have moved the authoritative entity, got %v", authoritative)
	}
	if got := c0.RenderStates()[0].Pos; math.Abs(got-authoritative) > 1e-9 {
		t.Fatalf("client 0 must converge to authoritative %v, got %v", authoritative, got)
	}
	if len(c0.pending) != 0 {
		t.Fatalf("all inputs must be acknowledged, pending=%d", len(c0.pending))
	}

	states := c1.RenderStates()
	if len(states) != 2 {
		t.Fatalf("client 1 must mirror both entities, got %d", len(states))
	}
	if math.Abs(states[0].Pos-authoritative) > 1e-9 {
		t.Fatalf("client 1 view of entity 0 = %v, want %v", states[0].Pos, authoritative)
	}
	if states[1].Pos != 6 {
		t.Fatalf("idle entity 1 must stay at spawn, got %v", states[1].Pos)
	}
}

func TestWorldWiring(t *testing.T) {
	cfg := DefaultConfig()
	w := NewWorld(cfg) // 不 Start：只验证装配
	if w.ClientCount() != 2 {
		t.Fatalf("default config wires 2 clients, got %d", w.ClientCount())
	}
	if w.Params(0) == nil || w.Controls(1) == nil {
		t.Fatalf("params/controls must be reachable per client")
	}
	if w.Params(2) != nil || w.Controls(-1) != nil {
		t.Fatalf("out-of-range accessors must return nil")
	}
	states := w.server.RenderStates()
	if len(states) != 2 || states[0].Pos != 4 || states[1].Pos != 6 {
		t.Fatalf("unexpected spawn layout: %v", states)
	}
}
