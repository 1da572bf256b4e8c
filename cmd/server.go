/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/talent-gin/internal/api"
	"github.com/mautops/talent-gin/internal/config"
	"github.com/mautops/talent-gin/internal/container"
	"github.com/mautops/talent-gin/internal/logger"
	"github.com/spf13/cobra"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Long: `Start the Talent Gin API server.
The server listens on the configured host and port, runs schema migrations
on startup and serves the job lifecycle, dashboard and notification APIs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 加载配置
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("host") {
			cfg.Server.Host, _ = cmd.Flags().GetString("host")
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}
		if config.IsProduction(cfg) {
			gin.SetMode(gin.ReleaseMode)
		}

		// 2. 链路追踪
		if err := api.InitTracing(cfg.Tracing); err != nil {
			log.WithError(err).Warn("Failed to initialize tracing")
		}

		// 3. 初始化容器
		ctr, err := container.NewContainer(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer ctr.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := ctr.Start(ctx); err != nil {
			return err
		}

		// 4. 配置热更新（仅日志级别）
		if configPath != "" {
			watcher := config.NewConfigWatcher(cfg, configPath)
			watcher.OnConfigChange(func(newCfg *config.Config) {
				logger.SetLevel(newCfg.Log.Level)
				log.WithField("level", newCfg.Log.Level).Info("Config reloaded")
			})
			watcher.OnError(func(err error) {
				log.WithError(err).Warn("Config reload failed, keeping previous config")
			})
			if err := watcher.Start(); err != nil {
				log.WithError(err).Warn("Failed to watch config file")
			}
			defer watcher.Stop()
		}

		// 5. 设置路由
		router := api.SetupRoutes(cfg, api.Dependencies{
			DB:            ctr.DB(),
			Validator:     ctr.TokenValidator(),
			Permissions:   ctr.Permissions(),
			Jobs:          ctr.JobService(),
			Dashboard:     ctr.DashboardService(),
			Notifications: ctr.NotificationService(),
			Converter:     ctr.Converter(),
			Hub:           ctr.Hub(),
		})

		// 6. 启动服务器
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}

		errCh := make(chan error, 1)
		go func() {
			log.WithField("addr", addr).Info("Server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		// 等待中断信号
		select {
		case <-ctx.Done():
		case err := <-errCh:
			return fmt.Errorf("failed to start server: %w", err)
		}

		log.Info("Shutting down server...")

		// 优雅关闭
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Server forced to shutdown")
		}
		if err := api.ShutdownTracing(shutdownCtx); err != nil {
			log.WithError(err).Warn("Failed to flush traces")
		}

		log.Info("Server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// 服务器配置标志，覆盖配置文件
	serverCmd.Flags().String("host", "0.0.0.0", "Server host")
	serverCmd.Flags().Int("port", 8080, "Server port")
}
