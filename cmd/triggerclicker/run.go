package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"

	"github.com/zoeyai/triggerclicker/internal/logger"
	"github.com/zoeyai/triggerclicker/pkg/auto/screen"
	"github.com/zoeyai/triggerclicker/pkg/config"
	"github.com/zoeyai/triggerclicker/pkg/control"
	"github.com/zoeyai/triggerclicker/pkg/engine"
	"github.com/zoeyai/triggerclicker/pkg/process"
	"github.com/zoeyai/triggerclicker/pkg/registry"
)

var (
	runControlAddr string
	runFeedAddr    string
	runNoFeed      bool
	runAutostart   bool
	runFolder      string
	runLogFile     string
	runNoLogFile   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "启动点击服务",
	Long: `加载设置中的模板，启动本地 gRPC 控制服务与 WebSocket 日志推送。
使用 --autostart 时立即以保存的参数开始点击循环。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runService(cmd.Context())
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runControlAddr, "control-addr", "", "gRPC 控制服务地址 (默认 "+config.DefaultControlAddr+")")
	f.StringVar(&runFeedAddr, "feed-addr", "", "WebSocket 日志推送地址 (默认 "+config.DefaultFeedAddr+")")
	f.BoolVar(&runNoFeed, "no-feed", false, "不启动 WebSocket 日志推送")
	f.BoolVar(&runAutostart, "autostart", false, "启动后立即开始点击循环")
	f.StringVar(&runFolder, "folder", "", "从文件夹加载模板 (替换已保存的模板列表)")
	f.StringVar(&runLogFile, "log-file", "", "日志文件路径 (默认位于用户状态目录)")
	f.BoolVar(&runNoLogFile, "no-log-file", false, "不写日志文件")
}

// setupLogFile 打开轮转日志文件
func setupLogFile() {
	if runNoLogFile {
		return
	}
	path := runLogFile
	if path == "" {
		p, err := xdg.StateFile(filepath.Join(config.AppName, config.AppName+".log"))
		if err != nil {
			logger.Warn("[main] Cannot resolve log file path: %v", err)
			return
		}
		path = p
	}
	if err := logger.Default().SetFile(true, path); err != nil {
		logger.Warn("[main] Cannot open log file: %v", err)
		return
	}
	logger.Debug("[main] Logging to %s", path)
}

// warnOtherInstances 多个实例会争抢鼠标
func warnOtherInstances() {
	others, err := process.FindOtherInstances()
	if err != nil {
		logger.Debug("[main] Instance check failed: %v", err)
		return
	}
	for _, p := range others {
		logger.Warn("[main] Another instance is running: pid=%d", p.PID)
	}
}

func runService(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	setupLogFile()
	defer logger.Default().Close()

	logger.Info("========================================")
	logger.Info("  Trigger Clicker v%s", Version)
	logger.Info("========================================")

	checkPermissions()
	warnOtherInstances()

	manager := settingsManager()
	settings, err := manager.Load()
	if err != nil {
		logger.Warn("[main] Failed to load settings, using defaults: %v", err)
	}
	logger.Info("[main] Settings: %s", manager.GetConfigFile())

	eng := engine.New(registry.New(settings.ScaleFactor))
	defer eng.Close()

	if runFolder != "" {
		settings.TemplateFolder = runFolder
		eng.LoadFromFolder(runFolder)
	} else if len(settings.Templates) > 0 {
		n, skipped := settings.Apply(eng.Registry())
		for _, path := range skipped {
			logger.Warn("[main] Skipped template %s", path)
		}
		logger.Info("[main] Restored %d templates", n)
	} else {
		eng.LoadFromFolder(settings.TemplateFolder)
	}
	settings.CaptureTemplates(eng.Registry())

	svc := control.NewService(eng, settings, manager)
	svc.SetPreviewer(screen.NewSampler())

	controlAddr := firstNonEmpty(runControlAddr, settings.ControlAddr, config.DefaultControlAddr)
	errCh := make(chan error, 2)
	go func() {
		errCh <- control.ServeGRPC(ctx, controlAddr, svc)
	}()

	if !runNoFeed {
		feed := control.NewFeed()
		defer feed.AttachEngine(eng)()
		feed.AttachLogger(logger.Default())

		feedAddr := firstNonEmpty(runFeedAddr, settings.FeedAddr, config.DefaultFeedAddr)
		go func() {
			errCh <- control.ServeFeed(ctx, feedAddr, feed)
		}()
	}

	if runAutostart {
		if err := eng.Start(settings.EngineConfig()); err != nil {
			logger.Error("[main] Autostart failed: %v", err)
		}
	}

	logger.Info("[main] Ready, press Ctrl+C to exit")

	select {
	case <-ctx.Done():
	case err = <-errCh:
		if err != nil {
			err = fmt.Errorf("服务异常退出: %w", err)
		}
	}
	stop()

	logger.Info("[main] Shutting down...")
	eng.StopLoop()
	eng.Wait()

	settings.CaptureTemplates(eng.Registry())
	if saveErr := manager.Save(settings); saveErr != nil {
		logger.Warn("[main] Failed to save settings: %v", saveErr)
	}
	logger.Info("[main] Bye")
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
