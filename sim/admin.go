package sim

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// adminSchema 约束 /admin/config 的 POST 载荷：字段可省略但类型必须正确
// 载荷先过 Schema 再应用，畸形输入不会改动任何参数（保持旧值）
const adminSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "lag_ms":          {"type": "integer", "minimum": 0},
    "prediction":      {"type": "boolean"},
    "reconciliation":  {"type": "boolean"},
    "interpolation":   {"type": "boolean"},
    "interp_delay_ms": {"type": "integer", "minimum": 0}
  }
}`

var adminConfigSchema = jsonschema.MustCompileString("admin_config.schema.json", adminSchema)

// HandleAdminConfig 提供客户端参数的读取与热更新
// GET  /admin/config?client=0  返回当前参数
// POST /admin/config?client=0  以 JSON 载荷更新部分字段
func (w *World) HandleAdminConfig(rw http.ResponseWriter, r *http.Request) {
	idx := 0
	if q := r.URL.Query().Get("client"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 || n >= w.ClientCount() {
			http.Error(rw, "bad client index", http.StatusBadRequest)
			return
		}
		idx = n
	}
	params := w.Params(idx)
	if params == nil {
		http.Error(rw, "no such client", http.StatusBadRequest)
		return
	}

	type cfg struct {
		LagMs          *int  `json:"lag_ms,omitempty"`
		Prediction     *bool `json:"prediction,omitempty"`
		Reconciliation *bool `json:"reconciliation,omitempty"`
		Interpolation  *bool `json:"interpolation,omitempty"`
		InterpDelayMs  *int  `json:"interp_delay_ms,omitempty"`
	}

	switch r.Method {
	case http.MethodGet:
		lag := params.LagMs()
		pred := params.Prediction()
		rec := params.Reconciliation()
		interp := params.Interpolation()
		delay := params.InterpDelayMs()
		cur := cfg{
			LagMs:          &lag,
			Prediction:     &pred,
			Reconciliation: &rec,
			Interpolation:  &interp,
			InterpDelayMs:  &delay,
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(cur)
		return
	case http.MethodPost:
		var raw any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			http.Error(rw, "invalid json", http.StatusBadRequest)
			return
		}
		if err := adminConfigSchema.Validate(raw); err != nil {
			http.Error(rw, "schema violation", http.StatusBadRequest)
			return
		}
		b, _ := json.Marshal(raw)
		var body cfg
		_ = json.Unmarshal(b, &body)

		if body.LagMs != nil {
			params.SetLagMs(*body.LagMs)
		}
		if body.Prediction != nil {
			params.SetPrediction(*body.Prediction)
		}
		if body.Reconciliation != nil {
			params.SetReconciliation(*body.Reconciliation)
		}
		if body.Interpolation != nil {
			params.SetInterpolation(*body.Interpolation)
		}
		if body.InterpDelayMs != nil {
			params.SetInterpDelayMs(*body.InterpDelayMs)
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true})
		Log.Infof("config updated: client=%d lag=%dms prediction=%v reconciliation=%v interpolation=%v delay=%dms",
			idx, params.LagMs(), params.Prediction(), params.Reconciliation(), params.Interpolation(), params.InterpDelayMs())
		return
	default:
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
}

// HandleMetrics 输出运行指标
// GET /metrics
func (w *World) HandleMetrics(rw http.ResponseWriter, r *http.Request) {
	// 在途消息数：双向延迟队列里尚未送达的消息合计
	inFlight := 0
	for _, c := range w.clients {
		inFlight += c.inbound.Len() + c.outbound.Len()
	}
	payload := map[string]any{
		"clients":   w.ClientCount(),
		"in_flight": inFlight,
		"metrics":   w.metrics.Snapshot(),
	}
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(payload)
}
