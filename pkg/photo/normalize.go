package photo

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/jakechorley/legacy-migrator/pkg/core/model"
)

// OutputMimeType is the format every normalized photo is re-encoded to
const OutputMimeType = "image/jpeg"

// Normalize center-crops an image to a square, scales it to size x size and re-encodes it as JPEG
func Normalize(data []byte, size, quality int) (*model.EmbeddedImage, error) {
	if len(data) == 0 {
		return nil, errors.New("empty image body")
	}

	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return nil, fmt.Errorf("content is %s, not an image", detected.String())
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s image: %w", detected.String(), err)
	}

	bounds := src.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("%s image has no pixels", format)
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	// Transparent sources are flattened onto white
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, squareCrop(bounds), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode photo: %w", err)
	}

	return &model.EmbeddedImage{
		MimeType: OutputMimeType,
		Data:     buf.Bytes(),
		Width:    size,
		Height:   size,
	}, nil
}

// squareCrop returns the largest centered square inside bounds
func squareCrop(bounds image.Rectangle) image.Rectangle {
	w, h := bounds.Dx(), bounds.Dy()
	side := min(w, h)
	x0 := bounds.Min.X + (w-side)/2
	y0 := bounds.Min.Y + (h-side)/2
	return image.Rect(x0, y0, x0+side, y0+side)
}
