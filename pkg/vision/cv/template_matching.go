package cv

import (
	"errors"
	"math"
	"time"

	"gocv.io/x/gocv"
)

// MatchBest 在 source 中查找 search 的最佳位置
//
// 两张图都应是同一缩放比例下的单通道灰度图。模板大于源图时返回 *ImageSizeError，
// 调用方应当视为"未匹配"。
func MatchBest(source, search gocv.Mat) (Match, error) {
	startTime := time.Now()

	if source.Empty() || search.Empty() {
		return Match{}, errors.New("图像为空")
	}

	// 检查图像尺寸
	if err := checkSourceLargerThanSearch(source, search); err != nil {
		return Match{}, err
	}

	srcGray := ToGray(source)
	searchGray := ToGray(search)
	defer srcGray.Close()
	defer searchGray.Close()

	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	gocv.MatchTemplate(srcGray, searchGray, &result, gocv.TmCcoeffNormed, mask)

	// 获取最佳匹配位置
	_, maxVal, _, maxLoc := gocv.MinMaxLoc(result)

	return Match{
		Location:   Point{X: maxLoc.X, Y: maxLoc.Y},
		Confidence: sanitizeScore(float64(maxVal)),
		Time:       float64(time.Since(startTime).Microseconds()) / 1000,
	}, nil
}

// Accept 判断得分是否达到阈值（包含等于）
func Accept(score, threshold float64) bool {
	return score >= threshold
}

// sanitizeScore 纯色模板的方差为 0，OpenCV 会给出 NaN/Inf，统一视为 0 分
func sanitizeScore(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// checkSourceLargerThanSearch 检查源图像是否大于搜索图像
func checkSourceLargerThanSearch(source, search gocv.Mat) error {
	if source.Rows() < search.Rows() || source.Cols() < search.Cols() {
		return &ImageSizeError{
			SourceSize: [2]int{source.Cols(), source.Rows()},
			SearchSize: [2]int{search.Cols(), search.Rows()},
		}
	}
	return nil
}

// IsSizeError 判断错误是否为模板尺寸错误
func IsSizeError(err error) bool {
	var sizeErr *ImageSizeError
	return errors.As(err, &sizeErr)
}
