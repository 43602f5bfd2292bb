// Package cv 提供模板匹配功能
//
// 只实现一种算法：灰度图上的归一化相关系数匹配 (TM_CCOEFF_NORMED)，
// 每个模板只取全局最佳位置。
//
// 基本用法:
//
//	screen, _ := cv.ReadImageGray("screen.png")
//	tmpl, _ := cv.ReadImageGray("button.png")
//	m, err := cv.MatchBest(screen, tmpl)
//	if err == nil && cv.Accept(m.Confidence, 0.8) {
//	    fmt.Printf("找到位置: (%d, %d)\n", m.Location.X, m.Location.Y)
//	}
package cv
