package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config 全局仿真配置（YAML 文件加载）
type Config struct {
	LogFile  string  `yaml:"log_file"`
	ServerHz int     `yaml:"server_hz"` // 服务端 Tick 频率，>0
	ClientHz int     `yaml:"client_hz"` // 客户端 Tick 频率，>0
	Speed    float64 `yaml:"speed"`     // 实体移动速度，单位/秒

	Clients []ClientConfig `yaml:"clients"`
}

// ClientConfig 单个客户端的初始参数
type ClientConfig struct {
	LagMs          int  `yaml:"lag_ms"`
	Prediction     bool `yaml:"prediction"`
	Reconciliation bool `yaml:"reconciliation"`
	Interpolation  bool `yaml:"interpolation"`
	InterpDelayMs  int  `yaml:"interp_delay_ms"` // 0 表示取一个服务端 Tick 间隔
}

// DefaultConfig 两个客户端、全特性开启的默认配置，便于快速试跑
func DefaultConfig() Config {
	return Config{
		LogFile:  "app.log",
		ServerHz: 10,
		ClientHz: 50,
		Speed:    2,
		Clients: []ClientConfig{
			{LagMs: 250, Prediction: true, Reconciliation: true, Interpolation: true},
			{LagMs: 150, Prediction: true, Reconciliation: true, Interpolation: true},
		},
	}
}

// LoadConfig 读取 YAML 配置文件并补全缺省值
func LoadConfig(path string) (Config, error) {
	var c Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("config: %w", err)
	}
	c.normalize()
	return c, nil
}

// normalize 非法或缺省字段回退到默认值，并在配置边界收紧参数约束
func (c *Config) normalize() {
	def := DefaultConfig()
	if c.LogFile == "" {
		c.LogFile = def.LogFile
	}
	if c.ServerHz <= 0 {
		c.ServerHz = def.ServerHz
	}
	if c.ClientHz <= 0 {
		c.ClientHz = def.ClientHz
	}
	if c.Speed <= 0 {
		c.Speed = def.Speed
	}
	if len(c.Clients) == 0 {
		c.Clients = def.Clients
	}
	for i := range c.Clients {
		cc := &c.Clients[i]
		if cc.LagMs < 0 {
			cc.LagMs = 0
		}
		if cc.InterpDelayMs < 0 {
			cc.InterpDelayMs = 0
		}
		// 和解依赖预测，在配置边界强制而非核心逻辑内检查
		if cc.Reconciliation {
			cc.Prediction = true
		}
	}
}
