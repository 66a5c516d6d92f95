// Package imageenc turns raw image uploads into data URLs that can be stored inline with a record.
package imageenc

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/cmlabs-hris/employee-directory/internal/domain/employee"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
)

const jpegQuality = 85

// Encoder implements employee.ImageEncoder.
type Encoder struct {
	// MaxDimension bounds the longest side in pixels. Zero keeps the original size.
	MaxDimension int
	// MaxBytes bounds the raw upload size. Zero disables the check.
	MaxBytes int64
}

func New(maxDimension int, maxBytes int64) *Encoder {
	return &Encoder{MaxDimension: maxDimension, MaxBytes: maxBytes}
}

// Encode sniffs the upload, downscales it when it exceeds MaxDimension and returns a
// data URL of the form data:<mime>;base64,<payload>.
func (e *Encoder) Encode(ctx context.Context, upload *employee.Upload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", employee.ErrImageEncodingFailed, err)
	}
	if upload == nil || len(upload.Data) == 0 {
		return "", fmt.Errorf("%w: empty upload", employee.ErrImageEncodingFailed)
	}
	if e.MaxBytes > 0 && int64(len(upload.Data)) > e.MaxBytes {
		return "", fmt.Errorf("%w: upload is %d bytes, limit is %d", employee.ErrImageEncodingFailed, len(upload.Data), e.MaxBytes)
	}

	mime, err := sniff(upload.Data)
	if err != nil {
		return "", err
	}

	data := upload.Data
	if e.MaxDimension > 0 {
		data, err = e.downscale(ctx, data, mime)
		if err != nil {
			return "", err
		}
	}

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", employee.ErrImageEncodingFailed, err)
	}

	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// sniff trusts the bytes, not the declared content type.
func sniff(data []byte) (string, error) {
	mt := mimetype.Detect(data)
	switch {
	case mt.Is("image/jpeg"):
		return "image/jpeg", nil
	case mt.Is("image/png"):
		return "image/png", nil
	}
	return "", fmt.Errorf("%w: %w: content is %s", employee.ErrImageEncodingFailed, employee.ErrUnsupportedImageType, mt.String())
}

func (e *Encoder) downscale(ctx context.Context, data []byte, mime string) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image: %w", employee.ErrImageEncodingFailed, err)
	}
	width, height := fit(cfg.Width, cfg.Height, e.MaxDimension)
	if width == cfg.Width && height == cfg.Height {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image: %w", employee.ErrImageEncodingFailed, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", employee.ErrImageEncodingFailed, err)
	}

	resized := resizeImage(img, width, height)

	buf := new(bytes.Buffer)
	switch mime {
	case "image/png":
		err = png.Encode(buf, resized)
	default:
		err = jpeg.Encode(buf, resized, &jpeg.Options{Quality: jpegQuality})
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode resized image: %w", employee.ErrImageEncodingFailed, err)
	}
	return buf.Bytes(), nil
}

// fit scales width and height so the longest side is at most limit, keeping the aspect ratio.
func fit(width, height, limit int) (int, int) {
	if width <= limit && height <= limit {
		return width, height
	}
	if width >= height {
		return limit, max(1, height*limit/width)
	}
	return max(1, width*limit/height), limit
}

func resizeImage(src image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
