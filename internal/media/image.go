package media

import (
	"bytes"
	"encoding/base64"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	"github.com/Rogue-Bear-Innovations/foodgram-back/internal/config"
)

const defaultMaxPixels = 40_000_000

var ErrInvalidImage = errors.New("invalid image")

var formats = map[string]imaging.Format{
	"image/jpeg": imaging.JPEG,
	"image/png":  imaging.PNG,
	"image/gif":  imaging.GIF,
}

type (
	Image struct {
		Data        []byte
		ContentType string
	}

	// Decoder turns base64 data-URIs into re-encoded images no larger than maxSide on
	// either edge. Sources above maxPixels are refused before decoding.
	Decoder struct {
		maxSide   int
		maxPixels int
	}
)

func NewDecoder(cfg *config.Config) *Decoder {
	maxPixels := cfg.ImageMaxPixels
	if maxPixels <= 0 {
		maxPixels = defaultMaxPixels
	}
	return &Decoder{maxSide: cfg.ImageMaxSide, maxPixels: maxPixels}
}

func (d *Decoder) DecodeDataURI(uri string) (*Image, error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, errors.Wrap(ErrInvalidImage, "not a data URI")
	}
	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, errors.Wrap(ErrInvalidImage, "data URI is not base64")
	}
	contentType := strings.ToLower(strings.TrimSuffix(meta, ";base64"))
	format, ok := formats[contentType]
	if !ok {
		return nil, errors.Wrapf(ErrInvalidImage, "unsupported type %q", contentType)
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if raw, err = base64.RawStdEncoding.DecodeString(payload); err != nil {
			return nil, errors.Wrap(ErrInvalidImage, "bad base64 payload")
		}
	}

	conf, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(ErrInvalidImage, err.Error())
	}
	if conf.Width*conf.Height > d.maxPixels {
		return nil, errors.Wrapf(ErrInvalidImage, "image is %dx%d, limit is %d pixels", conf.Width, conf.Height, d.maxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrap(ErrInvalidImage, err.Error())
	}
	b := img.Bounds()
	if b.Dx() > d.maxSide || b.Dy() > d.maxSide {
		img = imaging.Fit(img, d.maxSide, d.maxSide, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(85)); err != nil {
		return nil, errors.Wrap(err, "encode image")
	}
	return &Image{Data: buf.Bytes(), ContentType: contentType}, nil
}
