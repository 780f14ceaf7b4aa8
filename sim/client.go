package sim

import "time"

// ClientSim 客户端仿真：持有本地实体镜像，按固定频率 Tick
// 每个 Tick：清空入站快照 → 采样输入 → 预测 → 发送并记账 → 远端插值
// 不与服务端共享任何内存，所有耦合经由 LagQueue 消息
type ClientSim struct {
	entityID EntityID
	speed    float64
	serverHz int

	entities map[EntityID]*Entity

	outbound *LagQueue[InputCommand]  // 服务端为本连接持有的入站队列
	inbound  *LagQueue[WorldSnapshot] // 本客户端自己的入站队列

	params   *ClientParams
	controls *Controls
	metrics  *Metrics

	seq      int64
	pending  []InputCommand // 已发送但尚未被服务端确认的输入
	lastTick time.Time
}

// NewClientSim 创建客户端仿真；outbound/inbound 由装配方在连接时接好
func NewClientSim(id EntityID, speed float64, serverHz int,
	outbound *LagQueue[InputCommand], inbound *LagQueue[WorldSnapshot],
	params *ClientParams, controls *Controls, metrics *Metrics) *ClientSim {
	return &ClientSim{
		entityID: id,
		speed:    speed,
		serverHz: serverHz,
		entities: make(map[EntityID]*Entity),
		outbound: outbound,
		inbound:  inbound,
		params:   params,
		controls: controls,
		metrics:  metrics,
	}
}

// EntityID 本客户端拥有的实体 id
func (c *ClientSim) EntityID() EntityID { return c.entityID }

// Tick 推进一帧；now 由调度方注入（真实时钟或测试的虚拟时钟）
func (c *ClientSim) Tick(now time.Time) {
	// 1. 清空入站：逐条完整处理
	for {
		snap, ok := c.inbound.Receive(now)
		if !ok {
			break
		}
		c.processSnapshot(snap, now)
	}

	// 2. 采样输入：按上一帧以来的真实经过时长计 pressTime
	elapsed := 0.0
	if !c.lastTick.IsZero() {
		elapsed = now.Sub(c.lastTick).Seconds()
	}
	c.lastTick = now

	if dir := c.controls.PressDir(); dir != 0 && elapsed > 0 {
		cmd := InputCommand{
			EntityID:  c.entityID,
			PressTime: elapsed * float64(dir),
			Seq:       c.seq,
		}
		c.seq++

		// 3. 预测：未等服务端确认先行应用，掩盖往返延迟
		if c.params.Prediction() {
			c.own().ApplyInput(cmd)
		}

		// 4. 发送并记账：无论是否预测都要入 pending，供和解回放
		c.outbound.Send(cmd, now, c.params.Lag())
		c.pending = append(c.pending, cmd)
		if c.metrics != nil {
			c.metrics.IncInputSent()
		}
	}

	// 5. 远端实体插值
	if c.params.Interpolation() {
		c.interpolate(now)
	}

	if c.metrics != nil {
		c.metrics.IncClientTick()
	}
}

// processSnapshot 按快照逐实体更新本地镜像
func (c *ClientSim) processSnapshot(snap WorldSnapshot, now time.Time) {
	for _, st := range snap.States {
		e := c.ensure(st.EntityID)
		if st.EntityID == c.entityID {
			// 服务端权威：先落权威位置
			e.Position = st.Position
			if c.params.Reconciliation() {
				// 丢弃已确认的输入，把剩余未确认输入按序回放到权威位置上
				kept := c.pending[:0]
				for _, cmd := range c.pending {
					if cmd.Seq <= st.LastProcessed {
						continue
					}
					e.ApplyInput(cmd)
					kept = append(kept, cmd)
				}
				c.pending = kept
			} else {
				// 不和解：直接吞掉全部待确认输入，位置就地跳变
				c.pending = c.pending[:0]
			}
			continue
		}
		// 非本机实体：插值开启时只进缓冲，位置留给插值步骤更新
		if c.params.Interpolation() {
			e.buf = append(e.buf, posSample{at: now, pos: st.Position})
		} else {
			e.Position = st.Position
		}
	}
	if c.metrics != nil {
		c.metrics.IncSnapshotApplied()
	}
}

// interpolate 以固定回看时刻在缓冲样本间线性插值，平滑远端实体
// 不做外推：缺少右侧样本时位置保持上次计算值
func (c *ClientSim) interpolate(now time.Time) {
	renderTime := now.Add(-c.params.InterpDelay(c.serverHz))
	for id, e := range c.entities {
		if id == c.entityID {
			continue
		}
		// 队头裁剪：第二旧样本已不晚于 renderTime 时，最旧样本不可能再作左端点
		for len(e.buf) >= 2 && !e.buf[1].at.After(renderTime) {
			e.buf = e.buf[1:]
		}
		if len(e.buf) >= 2 &&
			!e.buf[0].at.After(renderTime) && !renderTime.After(e.buf[1].at) {
			t0, x0 := e.buf[0].at, e.buf[0].pos
			t1, x1 := e.buf[1].at, e.buf[1].pos
			frac := renderTime.Sub(t0).Seconds() / t1.Sub(t0).Seconds()
			e.Position = x0 + (x1-x0)*frac
		}
	}
}

// ensure 懒建实体镜像：快照里首次出现的 id 就地补上
func (c *ClientSim) ensure(id EntityID) *Entity {
	e, ok := c.entities[id]
	if !ok {
		e = NewEntity(id, 0, c.speed)
		c.entities[id] = e
	}
	return e
}

func (c *ClientSim) own() *Entity { return c.ensure(c.entityID) }

// RenderStates 给渲染端的只读位置视图，按 id 升序
func (c *ClientSim) RenderStates() []RenderState {
	return renderStates(c.entities)
}
