package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zoeyai/triggerclicker/internal/logger"
	"github.com/zoeyai/triggerclicker/pkg/permissions"
)

var (
	permOpen    bool
	permRequest bool
	permReset   bool
)

var permissionsCmd = &cobra.Command{
	Use:   "permissions",
	Short: "检查截屏与鼠标控制权限 (macOS)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if permReset {
			if err := permissions.Reset(); err != nil {
				return err
			}
			fmt.Println("[INFO] 权限记录已重置，请重新授权")
			return nil
		}
		if permRequest {
			permissions.RequestAccessibility()
		}

		status := permissions.Check()
		fmt.Printf("辅助功能: %v\n", status.Accessibility)
		fmt.Printf("屏幕录制: %v\n", status.ScreenRecording)
		if status.AllGranted {
			return nil
		}

		fmt.Println()
		fmt.Println(status.Instructions())
		if permOpen {
			permissions.OpenSettings(status)
		}
		return nil
	},
}

func init() {
	permissionsCmd.Flags().BoolVar(&permOpen, "open", false, "打开缺少权限对应的系统设置")
	permissionsCmd.Flags().BoolVar(&permRequest, "request", false, "请求辅助功能权限 (触发系统弹窗)")
	permissionsCmd.Flags().BoolVar(&permReset, "reset", false, "重置本应用的权限记录")
}

// checkPermissions 启动时检查权限，缺少时只告警
func checkPermissions() {
	ok, instructions := permissions.Ensure()
	if ok {
		logger.Debug("[perm] All permissions granted")
		return
	}
	logger.Warn("[perm] Missing permissions: %v", permissions.Check().Missing())
	for _, line := range strings.Split(instructions, "\n") {
		if line != "" {
			logger.Warn("[perm] %s", line)
		}
	}
}
