package cv

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ReadImageGray 读取灰度图像
func ReadImageGray(filename string) (gocv.Mat, error) {
	mat := gocv.IMRead(filename, gocv.IMReadGrayScale)
	if mat.Empty() {
		mat.Close()
		return gocv.Mat{}, fmt.Errorf("无法读取图像: %s", filename)
	}
	return mat, nil
}

// ToGray 转换为灰度图
func ToGray(src gocv.Mat) gocv.Mat {
	if src.Channels() == 1 {
		return src.Clone()
	}
	dst := gocv.NewMat()
	if src.Channels() == 4 {
		gocv.CvtColor(src, &dst, gocv.ColorBGRAToGray)
	} else {
		gocv.CvtColor(src, &dst, gocv.ColorBGRToGray)
	}
	return dst
}

// GetResolution 获取图像分辨率 (width, height)
func GetResolution(img gocv.Mat) Size {
	return Size{Width: img.Cols(), Height: img.Rows()}
}

// ScaledSize 按比例缩放后的尺寸，向下取整，最小为 1
func ScaledSize(width, height int, scale float64) Size {
	return Size{
		Width:  max(1, int(float64(width)*scale)),
		Height: max(1, int(float64(height)*scale)),
	}
}

// ScaleImage 按比例缩放图像，返回新的 Mat
func ScaleImage(img gocv.Mat, scale float64) gocv.Mat {
	if scale == 1.0 {
		return img.Clone()
	}
	size := ScaledSize(img.Cols(), img.Rows(), scale)
	return ResizeImage(img, size.Width, size.Height)
}

// ResizeImage 调整图像大小
func ResizeImage(img gocv.Mat, width, height int) gocv.Mat {
	dst := gocv.NewMat()
	gocv.Resize(img, &dst, image.Point{X: width, Y: height}, 0, 0, gocv.InterpolationArea)
	return dst
}

// ImageToGray 将 image.Image 转换为单通道灰度 Mat
func ImageToGray(img image.Image) (gocv.Mat, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("图像转换失败: %w", err)
	}
	defer mat.Close()

	// ImageToMatRGB 实际按 BGR 顺序写入像素
	dst := gocv.NewMat()
	gocv.CvtColor(mat, &dst, gocv.ColorBGRToGray)
	return dst, nil
}
