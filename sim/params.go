package sim

import (
	"sync/atomic"
	"time"
)

// ClientParams 单个客户端的运行期参数，按需读取、可热更新
// 读写都走 atomic，Tick 协程与 HTTP 管理端并发访问无需加锁
type ClientParams struct {
	lagMs          atomic.Int64
	prediction     atomic.Bool
	reconciliation atomic.Bool
	interpolation  atomic.Bool
	interpDelayMs  atomic.Int64 // 0 表示取一个服务端 Tick 间隔（参考默认值）
}

// NewClientParams 按配置初始化参数组
// 约束：开启和解（reconciliation）必须同时开启预测，在此边界强制，核心逻辑不再检查
func NewClientParams(lagMs int, prediction, reconciliation, interpolation bool, interpDelayMs int) *ClientParams {
	p := &ClientParams{}
	p.SetLagMs(lagMs)
	if reconciliation {
		prediction = true
	}
	p.prediction.Store(prediction)
	p.reconciliation.Store(reconciliation)
	p.interpolation.Store(interpolation)
	p.SetInterpDelayMs(interpDelayMs)
	return p
}

// SetLagMs 更新模拟延迟；负值视为无效，保持旧值
func (p *ClientParams) SetLagMs(ms int) {
	if ms < 0 {
		return
	}
	p.lagMs.Store(int64(ms))
}

// SetInterpDelayMs 更新插值回看时长；负值视为无效，保持旧值
func (p *ClientParams) SetInterpDelayMs(ms int) {
	if ms < 0 {
		return
	}
	p.interpDelayMs.Store(int64(ms))
}

// SetPrediction 关闭预测时同时关闭和解（和解依赖预测）
func (p *ClientParams) SetPrediction(on bool) {
	p.prediction.Store(on)
	if !on {
		p.reconciliation.Store(false)
	}
}

// SetReconciliation 开启和解时同时开启预测
func (p *ClientParams) SetReconciliation(on bool) {
	p.reconciliation.Store(on)
	if on {
		p.prediction.Store(true)
	}
}

func (p *ClientParams) SetInterpolation(on bool) { p.interpolation.Store(on) }

func (p *ClientParams) Lag() time.Duration { return time.Duration(p.lagMs.Load()) * time.Millisecond }
func (p *ClientParams) LagMs() int { return int(p.lagMs.Load()) }
func (p *ClientParams) Prediction() bool { return p.prediction.Load() }
func (p *ClientParams) Reconciliation() bool { return p.reconciliation.Load() }
func (p *ClientParams) Interpolation() bool { return p.interpolation.Load() }
func (p *ClientParams) InterpDelayMs() int { return int(p.interpDelayMs.Load()) }

// InterpDelay 实际使用的插值回看时长；未设置时退化为一个服务端 Tick 间隔
func (p *ClientParams) InterpDelay(serverHz int) time.Duration {
	if ms := p.interpDelayMs.Load(); ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return time.Second / time.Duration(serverHz)
}

// Controls 客户端方向键状态，由外部输入层异步更新
type Controls struct {
	left  atomic.Bool
	right atomic.Bool
}

// SetKeys 整体更新左右键状态
func (c *Controls) SetKeys(left, right bool) {
	c.left.Store(left)
	c.right.Store(right)
}

// PressDir 当前按键方向：+1 右，-1 左，0 无
// 两键同时按下时右优先（先判者胜），这是一个明确的策略选择
func (c *Controls) PressDir() int {
	if c.right.Load() {
		return 1
	}
	if c.left.Load() {
		return -1
	}
	return 0
}
