package vo

// PhotoDimensions 为压缩后全尺寸图片的像素宽高。
type PhotoDimensions struct {
	Width  int
	Height int
}
