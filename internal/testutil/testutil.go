// Package testutil provides shared test helpers for export directories and sessions.
package testutil

import (
	"context"
	"image"
	"image/draw"
	"testing"

	"github.com/starford/tally/internal/preview"
	"github.com/starford/tally/internal/session"
	"github.com/starford/tally/internal/storage"
)

// StubCapturer returns a white bitmap of a fixed logical size, scaled.
type StubCapturer struct {
	Width, Height int
}

// Capture implements export.Capturer.
func (c StubCapturer) Capture(ctx context.Context, _ preview.Layout, scale float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, h := c.Width, c.Height
	if w == 0 {
		w, h = 80, 60
	}
	img := image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	return img, nil
}

// TestOutputDir creates a temporary export directory with a storage.Provider.
func TestOutputDir(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestService creates a session service that exports into a temporary
// directory through StubCapturer.
func TestService(t *testing.T) (*session.Service, storage.Provider) {
	t.Helper()
	_, store := TestOutputDir(t)
	svc, err := session.NewService(StubCapturer{}, store)
	if err != nil {
		t.Fatal(err)
	}
	return svc, store
}
