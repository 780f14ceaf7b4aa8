package sim

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// RenderState 渲染端消费的只读位置条目
type RenderState struct {
	ID  EntityID `json:"id"`
	Pos float64  `json:"pos"`
}

// renderStates 把实体表整理为按 id 升序的位置切片
func renderStates(entities map[EntityID]*Entity) []RenderState {
	out := make([]RenderState, 0, len(entities))
	for _, e := range entities {
		out = append(out, RenderState{ID: e.ID, Pos: e.Position})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// World 显式装配的仿真世界：一个服务端 + N 个客户端
// 每个角色独占一个 goroutine 按各自频率 Tick，角色间只经 LagQueue 通信
type World struct {
	cfg     Config
	server  *ServerSim
	clients []*ClientSim

	params   []*ClientParams
	controls []*Controls

	metrics *Metrics
	hub     *ViewerHub

	stop    chan struct{}
	wg      sync.WaitGroup
	started bool
}

// NewWorld 按配置构建并接线：先建服务端，再逐个建客户端并 Connect
// 不依赖任何全局单例，装配关系全部显式传递
func NewWorld(cfg Config) *World {
	w := &World{
		cfg:     cfg,
		metrics: &Metrics{},
		hub:     NewViewerHub(),
		stop:    make(chan struct{}),
	}
	w.server = NewServerSim(cfg.Speed, w.metrics)
	for _, cc := range cfg.Clients {
		params := NewClientParams(cc.LagMs, cc.Prediction, cc.Reconciliation, cc.Interpolation, cc.InterpDelayMs)
		controls := &Controls{}
		inbound := &LagQueue[WorldSnapshot]{}
		id, outbound := w.server.Connect(inbound, params)
		client := NewClientSim(id, cfg.Speed, cfg.ServerHz, outbound, inbound, params, controls, w.metrics)
		w.clients = append(w.clients, client)
		w.params = append(w.params, params)
		w.controls = append(w.controls, controls)
	}
	return w
}

// Start 启动各角色的 Tick 循环；重复调用无效果
func (w *World) Start() {
	if w.started {
		return
	}
	w.started = true

	w.wg.Add(1)
	go w.runServer()
	for i := range w.clients {
		w.wg.Add(1)
		go w.runClient(i)
	}
	Log.Infof("world started: server=%dHz clients=%d@%dHz", w.cfg.ServerHz, len(w.clients), w.cfg.ClientHz)
}

// Stop 停止全部 Tick 循环并等待退出
func (w *World) Stop() {
	if !w.started {
		return
	}
	close(w.stop)
	w.wg.Wait()
}

// runServer 服务端循环：处理输入 → 广播快照 → 发布渲染帧
func (w *World) runServer() {
	defer w.wg.Done()
	ticker := time.NewTicker(time.Second / time.Duration(w.cfg.ServerHz))
	defer ticker.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			start := time.Now()
			w.server.Tick(start)
			w.metrics.AddTick(time.Since(start).Nanoseconds())
			w.hub.PublishFrame("server", w.server.RenderStates())
		}
	}
}

// runClient 客户端循环：Tick 即完成收包、预测、发送与插值
func (w *World) runClient(i int) {
	defer w.wg.Done()
	c := w.clients[i]
	ticker := time.NewTicker(time.Second / time.Duration(w.cfg.ClientHz))
	defer ticker.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			c.Tick(time.Now())
			w.hub.PublishFrame(roleName(i), c.RenderStates())
		}
	}
}

func roleName(i int) string {
	return fmt.Sprintf("client%d", i)
}

// ClientCount 已接入的客户端数量
func (w *World) ClientCount() int { return len(w.clients) }

// Params 第 i 个客户端的参数组；越界返回 nil
func (w *World) Params(i int) *ClientParams {
	if i < 0 || i >= len(w.params) {
		return nil
	}
	return w.params[i]
}

// Controls 第 i 个客户端的按键状态；越界返回 nil
func (w *World) Controls(i int) *Controls {
	if i < 0 || i >= len(w.controls) {
		return nil
	}
	return w.controls[i]
}
