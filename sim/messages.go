package sim

// EntityID 实体唯一标识，由服务端在连接时分配
type EntityID int

// NoInputProcessed 表示服务端尚未处理过该实体的任何输入
const NoInputProcessed int64 = -1

// InputCommand 客户端输入命令（客户端 → 服务端）
// PressTime 为按键持续时长（秒），符号表示方向：正为向右，负为向左
type InputCommand struct {
	EntityID  EntityID
	PressTime float64
	Seq       int64 // 客户端本地序列号，严格递增，用于预测回放与确认
}

// EntityState 快照中单个实体的权威状态
type EntityState struct {
	EntityID      EntityID
	Position      float64
	LastProcessed int64 // 服务端已应用的最大输入序列号；NoInputProcessed 表示尚无
}

// WorldSnapshot 世界快照（服务端 → 客户端），按连接顺序排列
type WorldSnapshot struct {
	States []EntityState
}
