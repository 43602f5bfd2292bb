// Package permissions 检查截屏与鼠标控制所需的系统权限（macOS 需要授权）
package permissions

import (
	"strconv"
	"strings"
)

// Status 权限状态
type Status struct {
	Accessibility   bool `json:"accessibility"`
	ScreenRecording bool `json:"screen_recording"`
	AllGranted      bool `json:"all_granted"`
}

func newStatus(accessibility, screenRecording bool) *Status {
	return &Status{
		Accessibility:   accessibility,
		ScreenRecording: screenRecording,
		AllGranted:      accessibility && screenRecording,
	}
}

// Missing 缺少的权限名称
func (s *Status) Missing() []string {
	var missing []string
	if !s.Accessibility {
		missing = append(missing, "accessibility")
	}
	if !s.ScreenRecording {
		missing = append(missing, "screen_recording")
	}
	return missing
}

// Instructions 授权说明，权限齐全时返回空字符串
func (s *Status) Instructions() string {
	if s.AllGranted {
		return ""
	}

	var b strings.Builder
	b.WriteString("需要授权以下权限才能正常工作:\n\n")
	n := 1
	if !s.Accessibility {
		b.WriteString(strconv.Itoa(n) + ". 辅助功能权限 (用于移动鼠标和点击)\n")
		b.WriteString("   系统设置 > 隐私与安全性 > 辅助功能\n\n")
		n++
	}
	if !s.ScreenRecording {
		b.WriteString(strconv.Itoa(n) + ". 屏幕录制权限 (用于截屏和模板匹配)\n")
		b.WriteString("   系统设置 > 隐私与安全性 > 屏幕录制\n\n")
	}
	b.WriteString("授权后需要重启应用才能生效。")
	return b.String()
}

// Ensure 检查权限，未授权时返回说明
func Ensure() (bool, string) {
	status := Check()
	return status.AllGranted, status.Instructions()
}
