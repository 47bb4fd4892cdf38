// SPDX-License-Identifier: BSD-3-Clause

package videosrv

import (
	"bytes"
	"image"
	"image/color"

	"github.com/pixiv/go-libjpeg/jpeg"

	"github.com/one-kvm/one-kvm/pkg/video"
)

// decodeOptions configures the libjpeg-turbo binding to hand back raw YCbCr
// planes without RGB conversion.
var decodeOptions = jpeg.DecoderOptions{}

// toYUV420 materializes the single canonical 4:2:0 image every encoder
// shares. Compressed frames are decoded; packed YUV and RGB frames are
// downsampled in one pass.
func toYUV420(f *video.Frame) (*image.YCbCr, error) {
	res := f.Resolution()
	rect := image.Rect(0, 0, int(res.Width), int(res.Height))

	switch f.Format() {
	case video.FormatMJPEG, video.FormatJPEG:
		img, err := jpeg.Decode(bytes.NewReader(f.Bytes()), &decodeOptions)
		if err != nil {
			return nil, ErrDecodeError
		}
		if ycbcr, ok := img.(*image.YCbCr); ok && ycbcr.SubsampleRatio == image.YCbCrSubsampleRatio420 {
			return ycbcr, nil
		}
		return resample420(img, rect), nil

	case video.FormatYUYV:
		return packedToYUV420(f.Bytes(), rect, 0, 1, 3), nil
	case video.FormatYVYU:
		return packedToYUV420(f.Bytes(), rect, 0, 3, 1), nil
	case video.FormatUYVY:
		return packedToYUV420(f.Bytes(), rect, 1, 0, 2), nil

	case video.FormatYUV420:
		return planesToYUV420(f.Bytes(), rect, false), nil
	case video.FormatYVU420:
		return planesToYUV420(f.Bytes(), rect, true), nil

	case video.FormatNV12:
		return nv12ToYUV420(f.Bytes(), rect), nil

	case video.FormatRGB24:
		return rgbToYUV420(f.Bytes(), rect, 0, 1, 2), nil
	case video.FormatBGR24:
		return rgbToYUV420(f.Bytes(), rect, 2, 1, 0), nil

	default:
		return nil, ErrDecodeError
	}
}

// packedToYUV420 converts 4:2:2 packed formats. yOff is the offset of the
// first luma byte in each 4-byte pair; cbOff/crOff address the chroma bytes.
func packedToYUV420(data []byte, rect image.Rectangle, yOff, cbOff, crOff int) *image.YCbCr {
	w, h := rect.Dx(), rect.Dy()
	img := image.NewYCbCr(rect, image.YCbCrSubsampleRatio420)

	for y := 0; y < h; y++ {
		row := data[y*w*2:]
		for x := 0; x+1 < w; x += 2 {
			base := x * 2
			img.Y[y*img.YStride+x] = row[base+yOff]
			img.Y[y*img.YStride+x+1] = row[base+yOff+2]

			// Chroma is taken from even rows only; odd rows' chroma is
			// dropped.
			if y%2 == 0 {
				ci := (y/2)*img.CStride + x/2
				img.Cb[ci] = row[base+cbOff]
				img.Cr[ci] = row[base+crOff]
			}
		}
	}
	return img
}

func planesToYUV420(data []byte, rect image.Rectangle, swapped bool) *image.YCbCr {
	w, h := rect.Dx(), rect.Dy()
	img := image.NewYCbCr(rect, image.YCbCrSubsampleRatio420)

	luma := w * h
	chroma := luma / 4

	copy(img.Y, data[:luma])
	if swapped {
		copy(img.Cr, data[luma:luma+chroma])
		copy(img.Cb, data[luma+chroma:luma+2*chroma])
	} else {
		copy(img.Cb, data[luma:luma+chroma])
		copy(img.Cr, data[luma+chroma:luma+2*chroma])
	}
	return img
}

func nv12ToYUV420(data []byte, rect image.Rectangle) *image.YCbCr {
	w, h := rect.Dx(), rect.Dy()
	img := image.NewYCbCr(rect, image.YCbCrSubsampleRatio420)

	luma := w * h
	copy(img.Y, data[:luma])

	interleaved := data[luma:]
	for i := 0; i+1 < len(interleaved) && i/2 < len(img.Cb); i += 2 {
		img.Cb[i/2] = interleaved[i]
		img.Cr[i/2] = interleaved[i+1]
	}
	return img
}

func rgbToYUV420(data []byte, rect image.Rectangle, rOff, gOff, bOff int) *image.YCbCr {
	w, h := rect.Dx(), rect.Dy()
	img := image.NewYCbCr(rect, image.YCbCrSubsampleRatio420)

	for y := 0; y < h; y++ {
		row := data[y*w*3:]
		for x := 0; x < w; x++ {
			r := row[x*3+rOff]
			g := row[x*3+gOff]
			b := row[x*3+bOff]

			yy, cb, cr := color.RGBToYCbCr(r, g, b)
			img.Y[y*img.YStride+x] = yy
			if y%2 == 0 && x%2 == 0 {
				ci := (y/2)*img.CStride + x/2
				img.Cb[ci] = cb
				img.Cr[ci] = cr
			}
		}
	}
	return img
}

// resample420 is the slow path for decoders that hand back non-4:2:0
// images.
func resample420(src image.Image, rect image.Rectangle) *image.YCbCr {
	img := image.NewYCbCr(rect, image.YCbCrSubsampleRatio420)

	for y := 0; y < rect.Dy(); y++ {
		for x := 0; x < rect.Dx(); x++ {
			r, g, b, _ := src.At(x, y).RGBA()
			yy, cb, cr := color.RGBToYCbCr(uint8(r>>8), uint8(g>>8), uint8(b>>8))
			img.Y[y*img.YStride+x] = yy
			if y%2 == 0 && x%2 == 0 {
				ci := (y/2)*img.CStride + x/2
				img.Cb[ci] = cb
				img.Cr[ci] = cr
			}
		}
	}
	return img
}
