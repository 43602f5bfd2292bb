package cv

import "fmt"

// Point 表示二维坐标点
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Size 图像尺寸
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Match 单个模板的最佳匹配结果
type Match struct {
	// Location 最佳位置的左上角（搜索图坐标系）
	Location Point `json:"location"`
	// Confidence 匹配得分，理论范围 [-1, 1]
	Confidence float64 `json:"confidence"`
	// Time 匹配耗时（毫秒）
	Time float64 `json:"time,omitempty"`
}

// ImageSizeError 图像尺寸错误：模板比搜索图大
type ImageSizeError struct {
	SourceSize [2]int
	SearchSize [2]int
}

func (e *ImageSizeError) Error() string {
	return fmt.Sprintf("搜索图像尺寸大于源图像: 模板 %dx%d, 源 %dx%d",
		e.SearchSize[0], e.SearchSize[1], e.SourceSize[0], e.SourceSize[1])
}
