package sim

import (
	"sync/atomic"
)

// Metrics 记录仿真运行期的关键指标（用于监控与调试）
type Metrics struct {
	ServerTicks      int64 // 服务端 Tick 次数
	ClientTicks      int64 // 客户端 Tick 总次数（全体客户端合计）
	InputsSent       int64 // 客户端发出的输入数
	InputsAccepted   int64 // 服务端接受并应用的输入数
	InputsRejected   int64 // 因幅值越界被丢弃的输入数
	SnapshotsSent    int64 // 服务端发出的快照份数
	SnapshotsApplied int64 // 客户端处理完的快照数
	TotalTickNs      int64 // 服务端 Tick 累计耗时（纳秒）
}

func (m *Metrics) IncServerTick()      { atomic.AddInt64(&m.ServerTicks, 1) }
func (m *Metrics) IncClientTick()      { atomic.AddInt64(&m.ClientTicks, 1) }
func (m *Metrics) IncInputSent()       { atomic.AddInt64(&m.InputsSent, 1) }
func (m *Metrics) IncInputAccepted()   { atomic.AddInt64(&m.InputsAccepted, 1) }
func (m *Metrics) IncInputRejected()   { atomic.AddInt64(&m.InputsRejected, 1) }
func (m *Metrics) IncSnapshotSent()    { atomic.AddInt64(&m.SnapshotsSent, 1) }
func (m *Metrics) IncSnapshotApplied() { atomic.AddInt64(&m.SnapshotsApplied, 1) }
func (m *Metrics) AddTick(ns int64)    { atomic.AddInt64(&m.TotalTickNs, ns) }

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	ticks := atomic.LoadInt64(&m.ServerTicks)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if ticks > 0 {
		avgMs = float64(total) / float64(ticks) / 1e6
	}
	return map[string]any{
		"server_ticks":      ticks,
		"client_ticks":      atomic.LoadInt64(&m.ClientTicks),
		"inputs_sent":       atomic.LoadInt64(&m.InputsSent),
		"inputs_accepted":   atomic.LoadInt64(&m.InputsAccepted),
		"inputs_rejected":   atomic.LoadInt64(&m.InputsRejected),
		"snapshots_sent":    atomic.LoadInt64(&m.SnapshotsSent),
		"snapshots_applied": atomic.LoadInt64(&m.SnapshotsApplied),
		"avg_tick_ms":       avgMs,
	}
}
