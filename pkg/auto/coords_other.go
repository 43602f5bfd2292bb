//go:build !windows

package auto

import "github.com/go-vgo/robotgo"

// NormalizePointForInput 非 Windows 平台无需缩放
func NormalizePointForInput(x, y int) (int, int) {
	return x, y
}

// NormalizePointForScreen 非 Windows 平台无需缩放
func NormalizePointForScreen(x, y int) (int, int) {
	return x, y
}

// ResetCoordinateScaleCache 非 Windows 平台无操作
func ResetCoordinateScaleCache() {}

// GetPhysicalScreenSize 获取物理屏幕尺寸
// 非 Windows 平台等同于 robotgo.GetScreenSize()（macOS Retina 由 robotgo 自行处理）
func GetPhysicalScreenSize() (width, height int) {
	return robotgo.GetScreenSize()
}
