package render

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
)

// Asset file names looked up in the assets directory
const (
	BackgroundFile = "background.png"
	LogoFile       = "logo.png"
	HoloFile       = "holo.png"
	StampFile      = "stamp.png"
)

// Assets are the static decorative images of the page; any may be nil
type Assets struct {
	Background image.Image
	Logo       image.Image
	Holo       image.Image
	Stamp      image.Image
}

// LoadAssets reads the page artwork from dir. Missing files are skipped;
// unreadable or undecodable files are an error.
func LoadAssets(dir string) (*Assets, error) {
	assets := &Assets{}
	if dir == "" {
		return assets, nil
	}

	slots := []struct {
		name string
		dst  *image.Image
	}{
		{BackgroundFile, &assets.Background},
		{LogoFile, &assets.Logo},
		{HoloFile, &assets.Holo},
		{StampFile, &assets.Stamp},
	}

	loaded := 0
	for _, slot := range slots {
		path := filepath.Join(dir, slot.name)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			slog.Debug("page asset not found", "file", path)
			continue
		}

		img, err := gg.LoadImage(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load asset %s: %w", slot.name, err)
		}
		*slot.dst = img
		loaded++
	}

	slog.Info("page assets loaded", "dir", dir, "count", loaded)
	return assets, nil
}
