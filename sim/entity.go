package sim

import "time"

// posSample 远端实体的历史位置采样（插值用）
type posSample struct {
	at  time.Time // 本地收到该快照的虚拟时间
	pos float64
}

// Entity 可移动实体：位置为一维标量，速度单位为 单位/秒
// 服务端持有权威副本；客户端副本要么是预测值，要么由快照推导
type Entity struct {
	ID       EntityID
	Position float64
	Speed    float64

	// buf 仅非本机实体使用：按时间非降序追加，只从队头裁剪
	buf []posSample
}

// NewEntity 创建实体
func NewEntity(id EntityID, pos, speed float64) *Entity {
	return &Entity{ID: id, Position: pos, Speed: speed}
}

// ApplyInput 应用一次输入：position += pressTime * speed
// 纯确定性变换，服务端权威应用与客户端预测/回放共用同一实现
func (e *Entity) ApplyInput(cmd InputCommand) {
	e.Position += cmd.PressTime * e.Speed
}
