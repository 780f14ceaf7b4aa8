package sim

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ViewerConn 负责发送（写）渲染帧到观察端的轻量包装
type ViewerConn struct {
	ws        *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

func NewViewerConn(ws *websocket.Conn) *ViewerConn {
	return &ViewerConn{
		ws:   ws,
		send: make(chan []byte, 64),
	}
}

// Close 关闭底层连接，并关闭发送通道以结束写协程；可安全重复调用
func (v *ViewerConn) Close() {
	v.closeOnce.Do(func() {
		close(v.send)
	})
	_ = v.ws.Close()
}

// Enqueue 将要发送的帧压入队列（非阻塞，满则丢弃旧帧保实时）
func (v *ViewerConn) Enqueue(b []byte) {
	select {
	case v.send <- b:
	default:
		// 丢弃：渲染帧只有最新值有意义，不值得为旧帧阻塞 Tick
	}
}

// writePump 独立协程，负责从 send 队列写出到 WS
func (v *ViewerConn) writePump() {
	defer v.ws.Close()
	for msg := range v.send {
		v.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := v.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// KeyMessage 观察端上行的按键消息
// 示例：{"type":"key","left":false,"right":true}
type KeyMessage struct {
	Type  string `json:"type"`
	Left  bool   `json:"left"`
	Right bool   `json:"right"`
}

// readPump 读取观察端按键消息，更新绑定客户端的方向键状态
// 退出时关闭连接（含发送通道，使 writePump 一并退出）并从 hub 摘除
func (v *ViewerConn) readPump(hub *ViewerHub, controls *Controls) {
	defer v.Close()
	defer hub.remove(v)
	v.ws.SetReadLimit(1 << 16)
	v.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	v.ws.SetPongHandler(func(string) error { v.ws.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	for {
		_, payload, err := v.ws.ReadMessage()
		if err != nil {
			return
		}
		var km KeyMessage
		if err := json.Unmarshal(payload, &km); err != nil {
			continue
		}
		if strings.ToLower(km.Type) != "key" {
			continue
		}
		if controls != nil {
			controls.SetKeys(km.Left, km.Right)
		}
	}
}

// ViewerHub 渲染帧的扇出中心：各角色 Tick 后发布，全部观察端接收
type ViewerHub struct {
	mu      sync.Mutex
	viewers map[*ViewerConn]struct{}
}

func NewViewerHub() *ViewerHub {
	return &ViewerHub{viewers: make(map[*ViewerConn]struct{})}
}

func (h *ViewerHub) add(v *ViewerConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.viewers[v] = struct{}{}
}

func (h *ViewerHub) remove(v *ViewerConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.viewers, v)
}

// PublishFrame 将某角色的当前位置视图编码为 JSON 帧并广播
func (h *ViewerHub) PublishFrame(role string, states []RenderState) {
	payload := struct {
		Type     string        `json:"type"`
		Role     string        `json:"role"`
		Entities []RenderState `json:"entities"`
	}{Type: "state", Role: role, Entities: states}

	b, _ := json.Marshal(payload)
	h.mu.Lock()
	defer h.mu.Unlock()
	for v := range h.viewers {
		v.Enqueue(b)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 演示环境：允许所有来源（生产环境需严格限制）
		return true
	},
}

// HandleWS WebSocket 接入：?client=0 把该观察端的按键绑到第 N 个仿真客户端
func (w *World) HandleWS(rw http.ResponseWriter, r *http.Request) {
	idx := 0
	if q := r.URL.Query().Get("client"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 || n >= w.ClientCount() {
			http.Error(rw, "bad client index", http.StatusBadRequest)
			return
		}
		idx = n
	}

	ws, err := upgrader.Upgrade(rw, r, nil)
	if err != nil {
		Log.Warnf("upgrade error: %v", err)
		return
	}

	viewer := NewViewerConn(ws)
	w.hub.add(viewer)

	go viewer.writePump()
	go viewer.readPump(w.hub, w.Controls(idx))
}
