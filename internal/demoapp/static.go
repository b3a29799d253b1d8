package demoapp

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"log/slog"
	"net/http"
	"path"
	"sync"

	"github.com/go-chi/chi/v5"
)

// images served under /static, keyed by file name.
var images = map[string]color.RGBA{
	"logo.png":   {R: 0x25, G: 0x63, B: 0xeb, A: 0xff},
	"banner.jpg": {R: 0x16, G: 0xa3, B: 0x4a, A: 0xff},
	"photo.jpeg": {R: 0xdc, G: 0x26, B: 0x26, A: 0xff},
}

var (
	imageOnce  sync.Once
	imageCache map[string][]byte
	imageErr   error
)

func renderImages() (map[string][]byte, error) {
	imageOnce.Do(func() {
		imageCache = make(map[string][]byte, len(images))
		for name, c := range images {
			img := image.NewRGBA(image.Rect(0, 0, 120, 60))
			for y := 0; y < 60; y++ {
				for x := 0; x < 120; x++ {
					img.SetRGBA(x, y, c)
				}
			}
			var buf bytes.Buffer
			var err error
			if path.Ext(name) == ".png" {
				err = png.Encode(&buf, img)
			} else {
				err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80})
			}
			if err != nil {
				imageErr = err
				return
			}
			imageCache[name] = buf.Bytes()
		}
	})
	return imageCache, imageErr
}

func serveImage(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		cache, err := renderImages()
		if err != nil {
			logger.Error("demo image render failed", "error", err)
			http.Error(w, "image unavailable", http.StatusInternalServerError)
			return
		}
		data, ok := cache[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		contentType := "image/jpeg"
		if path.Ext(name) == ".png" {
			contentType = "image/png"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "no-store")
		if _, err := w.Write(data); err != nil {
			logger.Debug("image response write failed", "name", name, "error", err)
		}
	}
}
