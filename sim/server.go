package sim

import "time"

// MaxPressTime 单条输入允许的最大按键时长（秒）
// 按最小合法 Tick 间隔 1/40 秒推导，限制单条命令能移动的位移上限，
// 也是服务端唯一的防作弊校验
const MaxPressTime = 1.0 / 40

// conn 服务端视角的一条客户端连接
type conn struct {
	entityID      EntityID
	inbound       *LagQueue[InputCommand]  // 客户端 → 服务端
	outbound      *LagQueue[WorldSnapshot] // 服务端 → 客户端（即客户端的入站队列）
	params        *ClientParams            // 广播采用该客户端配置的延迟
	lastProcessed int64                    // 已应用的最大输入序列号（单调，乱序到达不得回退）
}

// ServerSim 服务端仿真：持有全部实体的权威状态
// 每个 Tick：清空各连接入站 → 校验 → 应用 → 广播快照
// 纯权威应用与广播，不做预测也不做插值
type ServerSim struct {
	speed    float64
	entities map[EntityID]*Entity
	conns    []*conn // 连接顺序即轮询顺序与快照顺序
	metrics  *Metrics
}

// NewServerSim 创建服务端仿真；speed 为所有实体的统一移动速度
func NewServerSim(speed float64, metrics *Metrics) *ServerSim {
	return &ServerSim{
		speed:    speed,
		entities: make(map[EntityID]*Entity),
		metrics:  metrics,
	}
}

// Connect 接入一个客户端：分配实体 id 与出生点，接好双向队列
// 返回分配的 id 与服务端为该连接持有的入站队列（客户端以此为 outbound）
// 实体一经创建不再销毁（本设计无断线/退场）
func (s *ServerSim) Connect(clientInbound *LagQueue[WorldSnapshot], params *ClientParams) (EntityID, *LagQueue[InputCommand]) {
	id := EntityID(len(s.conns))
	spawn := 4 + 2*float64(id) // 出生点依连接顺序错开
	s.entities[id] = NewEntity(id, spawn, s.speed)
	c := &conn{
		entityID:      id,
		inbound:       &LagQueue[InputCommand]{},
		outbound:      clientInbound,
		params:        params,
		lastProcessed: NoInputProcessed,
	}
	s.conns = append(s.conns, c)
	Log.Infof("client connected: entity=%d spawn=%.1f lag=%dms", id, spawn, params.LagMs())
	return id, c.inbound
}

// Tick 推进一帧；now 由调度方注入
func (s *ServerSim) Tick(now time.Time) {
	s.processInputs(now)
	s.broadcast(now)
	if s.metrics != nil {
		s.metrics.IncServerTick()
	}
}

// processInputs 按连接顺序清空每条连接的入站队列并应用合法输入
func (s *ServerSim) processInputs(now time.Time) {
	for _, c := range s.conns {
		for {
			cmd, ok := c.inbound.Receive(now)
			if !ok {
				break
			}
			if !validInput(cmd) {
				// 非法输入静默丢弃：不回错、不响应，权威状态不受影响
				if s.metrics != nil {
					s.metrics.IncInputRejected()
				}
				Log.Debugf("input rejected: entity=%d seq=%d pressTime=%.4f", cmd.EntityID, cmd.Seq, cmd.PressTime)
				continue
			}
			e, ok := s.entities[cmd.EntityID]
			if !ok {
				continue
			}
			e.ApplyInput(cmd)
			// 乱序到达的旧命令不得拉低确认水位
			if cmd.Seq > c.lastProcessed {
				c.lastProcessed = cmd.Seq
			}
			if s.metrics != nil {
				s.metrics.IncInputAccepted()
			}
		}
	}
}

// validInput 按键时长幅值越界即拒绝
func validInput(cmd InputCommand) bool {
	pt := cmd.PressTime
	if pt < 0 {
		pt = -pt
	}
	return pt <= MaxPressTime
}

// broadcast 构建一份完整世界快照，对每条连接按其配置延迟各发一份
func (s *ServerSim) broadcast(now time.Time) {
	states := make([]EntityState, 0, len(s.conns))
	for _, c := range s.conns {
		states = append(states, EntityState{
			EntityID:      c.entityID,
			Position:      s.entities[c.entityID].Position,
			LastProcessed: c.lastProcessed,
		})
	}
	snap := WorldSnapshot{States: states}
	for _, c := range s.conns {
		c.outbound.Send(snap, now, c.params.Lag())
		if s.metrics != nil {
			s.metrics.IncSnapshotSent()
		}
	}
}

// RenderStates 给渲染端的只读权威位置视图，按 id 升序
func (s *ServerSim) RenderStates() []RenderState {
	return renderStates(s.entities)
}
