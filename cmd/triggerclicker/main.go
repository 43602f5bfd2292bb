package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/zoeyai/triggerclicker/internal/logger"
	"github.com/zoeyai/triggerclicker/pkg/config"
)

// 版本信息 (可通过 ldflags 注入)
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configFile string
	logLevel   string

	rootCmd = &cobra.Command{
		Use:   "triggerclicker",
		Short: "屏幕模板匹配自动点击",
		Long: `Trigger Clicker 定时截取屏幕，与模板图片做归一化相关匹配，
在匹配位置的中心执行左键、右键或双击。

run 启动点击服务，ctl 通过本地 gRPC 控制正在运行的服务。`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Default().SetLevel(logger.ParseLevel(logLevel))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "设置文件路径 (.json/.yaml，默认位于用户配置目录)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "日志级别 (debug/info/warn/error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(ctlCmd)
	rootCmd.AddCommand(permissionsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Trigger Clicker v%s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		fmt.Printf("Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

// settingsManager 按 --config 选择设置文件
func settingsManager() *config.Manager {
	if configFile != "" {
		return config.NewManagerWithFile(configFile)
	}
	return config.GetDefaultManager()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		os.Exit(1)
	}
}
