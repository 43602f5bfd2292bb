//go:build windows

package auto

import (
	"sync"

	"github.com/go-vgo/robotgo"

	"github.com/zoeyai/triggerclicker/internal/logger"
)

// 在 DPI Aware 进程中 robotgo.CaptureImg() 始终返回物理像素，
// 而 robotgo.GetScreenSize() / Move() 在不同版本下可能使用逻辑坐标。
// 这里不做假设，首次使用时对比两者尺寸来探测。

var (
	coordinateScaleMu sync.Mutex
	cachedScaleX      float64
	cachedScaleY      float64
	coordsDetected    bool
)

func getCoordinateScale() (float64, float64) {
	coordinateScaleMu.Lock()
	defer coordinateScaleMu.Unlock()

	if coordsDetected {
		return cachedScaleX, cachedScaleY
	}

	reportedW, reportedH := robotgo.GetScreenSize()
	img, err := robotgo.CaptureImg()
	if err != nil || img == nil {
		// 截图失败时不缓存，下次再探测
		return 1.0, 1.0
	}

	b := img.Bounds()
	cachedScaleX, cachedScaleY = coordScaleFromSizes(b.Dx(), b.Dy(), reportedW, reportedH)
	coordsDetected = true
	logger.Debug("[coords] robotgo_screen=%dx%d capture=%dx%d coordScale=%.3f",
		reportedW, reportedH, b.Dx(), b.Dy(), cachedScaleX)

	return cachedScaleX, cachedScaleY
}

// ResetCoordinateScaleCache 重置坐标缩放缓存（分辨率或 DPI 变化后调用）
func ResetCoordinateScaleCache() {
	coordinateScaleMu.Lock()
	defer coordinateScaleMu.Unlock()
	cachedScaleX = 0
	cachedScaleY = 0
	coordsDetected = false
}

// NormalizePointForInput 将截图物理坐标转换为 robotgo 输入坐标
func NormalizePointForInput(x, y int) (int, int) {
	scaleX, scaleY := getCoordinateScale()
	return ScaleInt(x, 1.0/scaleX), ScaleInt(y, 1.0/scaleY)
}

// NormalizePointForScreen 将 robotgo 坐标转换为截图物理坐标
func NormalizePointForScreen(x, y int) (int, int) {
	scaleX, scaleY := getCoordinateScale()
	return ScaleInt(x, scaleX), ScaleInt(y, scaleY)
}

// GetPhysicalScreenSize 获取物理屏幕尺寸（与截图分辨率一致）
func GetPhysicalScreenSize() (width, height int) {
	w, h := robotgo.GetScreenSize()
	scaleX, scaleY := getCoordinateScale()
	return ScaleInt(w, scaleX), ScaleInt(h, scaleY)
}
