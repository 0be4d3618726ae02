package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-momentum/internal/api"
	"github.com/wonny/aegis-momentum/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST/WebSocket API 서버를 시작합니다.

Endpoints:
  GET  /health                     - Health check (DB 상태 포함)
  GET  /metrics                    - Prometheus metrics (METRICS_ENABLED)
  GET  /api/lookback/resolve       - 기간 해석 (?spec=60|2020-01-01)
  POST /api/backtest/task          - 단일 태스크 실행
  POST /api/backtest/batch         - 배치 실행
  GET  /api/backtest/batches       - 저장된 배치 목록 (DATABASE_URL)
  GET  /api/backtest/batches/{id}  - 저장된 배치 요약
  GET  /ws/backtest                - 배치 실행 스트리밍 (WebSocket)

Example:
  go run ./cmd/quant api
  go run ./cmd/quant api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Aegis Momentum API Server ===")

	a, err := newApp(context.Background(), appOptions{useStore: true})
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	// nil 포인터가 인터페이스에 담기지 않도록
	var batchStore handlers.BatchStore
	var dbHealth api.HealthChecker
	if a.store != nil {
		batchStore = a.store
		dbHealth = a.db
	}

	var metricsHandler http.Handler
	if a.metrics != nil {
		metricsHandler = a.metrics.Handler()
	}

	router := api.NewRouter(api.Handlers{
		Lookback: handlers.NewLookbackHandler(a.resolver),
		Backtest: handlers.NewBacktestHandler(a.runner, a.orchestrator, batchStore, a.log),
		Metrics:  metricsHandler,
		Database: dbHealth,
	}, a.log)

	server := api.New(a.cfg, a.log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	a.log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-quit:
	}

	a.log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
