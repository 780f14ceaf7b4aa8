package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"lagsim/sim"
)

// lagsim 入口：装配仿真世界，启动 HTTP + WebSocket 观察面
func main() {
	var addr, cfgPath string
	flag.StringVar(&addr, "addr", ":8080", "server listen address, e.g. :8080")
	flag.StringVar(&cfgPath, "config", "", "path to YAML config; empty uses built-in defaults")
	flag.Parse()

	cfg := sim.DefaultConfig()
	if cfgPath != "" {
		loaded, err := sim.LoadConfig(cfgPath)
		if err != nil {
			panic(err)
		}
		cfg = loaded
	}

	// 使用第三方 zap 日志库写入文件（带滚动）
	if err := sim.InitLogger(cfg.LogFile); err != nil {
		panic(err)
	}
	defer sim.SyncLogger()

	// 显式装配：服务端、客户端与延迟信道全部在此接线，无全局单例
	world := sim.NewWorld(cfg)
	world.Start()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", world.HandleWS)
	// 前后端分离：将 / 映射到 web 目录的静态资源
	mux.Handle("/", http.FileServer(http.Dir("web")))
	// 管理与监控接口
	mux.HandleFunc("/admin/config", world.HandleAdminConfig)
	mux.HandleFunc("/metrics", world.HandleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		sim.Log.Infof("lagsim listening on %s; open http://localhost%v/", addr, addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sim.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	sim.Log.Info("Shutting down...")
	world.Stop()
}
