package auto

import "math"

// 截图像素与 robotgo 输入坐标可能处在不同的坐标空间（Windows 高 DPI）。
// coordScale = 截图像素尺寸 / robotgo 报告的屏幕尺寸
//   - 截图坐标 → 输入坐标: x / coordScale
//   - 输入坐标 → 截图坐标: x * coordScale

// coordScaleFromSizes 根据截图尺寸与报告的屏幕尺寸计算坐标缩放比
func coordScaleFromSizes(captureW, captureH, reportedW, reportedH int) (float64, float64) {
	if captureW <= 0 || captureH <= 0 || reportedW <= 0 || reportedH <= 0 {
		return 1.0, 1.0
	}
	return normalizeScale(float64(captureW) / float64(reportedW)),
		normalizeScale(float64(captureH) / float64(reportedH))
}

// normalizeScale 过滤异常比例，接近 1 的值视为 1
func normalizeScale(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 1.0
	}
	if v < 0.5 || v > 4.0 {
		return 1.0
	}
	if math.Abs(v-1.0) < 0.05 {
		return 1.0
	}
	return v
}
