package convert

import (
	"context"
	"errors"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/remeh/sizedwaitgroup"

	"github.com/byteblender21/bg3-modding-utilities/internal/utils"
)

// PNGPath returns where the PNG for a texture is written. With an empty
// outDir it sits next to the texture; otherwise the path below root is
// mirrored under outDir.
func PNGPath(root, outDir, texturePath string) string {
	base := strings.TrimSuffix(texturePath, filepath.Ext(texturePath)) + ".png"
	if outDir == "" {
		return base
	}
	rel, err := filepath.Rel(root, base)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Join(outDir, filepath.Base(base))
	}
	return filepath.Join(outDir, rel)
}

// ConvertDDS decodes one DDS texture and writes it as PNG to pngPath.
func ConvertDDS(path, pngPath string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	img, err := DecodeDDS(f)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(pngPath), 0755); err != nil {
		return err
	}
	out, err := os.Create(pngPath)
	if err != nil {
		return err
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		os.Remove(pngPath)
		return err
	}
	return out.Close()
}

// BulkConvertDDS converts every .dds file below root to PNG using at most
// workers goroutines. Textures in formats that cannot be decoded are skipped;
// per-file failures are logged and do not stop the walk. It returns the
// number of PNGs written.
func BulkConvertDDS(ctx context.Context, root, outDir string, workers int) (int, error) {
	utils.Info("Starting bulk DDS conversion in %s...", root)
	if workers < 1 {
		workers = 1
	}

	var convertedCount int32
	swg := sizedwaitgroup.New(workers)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".dds") {
			return nil
		}
		if err := swg.AddWithContext(ctx); err != nil {
			return err
		}
		go func(p string) {
			defer swg.Done()
			err := ConvertDDS(p, PNGPath(root, outDir, p))
			switch {
			case errors.Is(err, ErrUnsupportedFormat):
				utils.Debug("Skipping %s: %v", p, err)
			case err != nil:
				utils.Error("Failed to convert %s: %v", p, err)
			default:
				atomic.AddInt32(&convertedCount, 1)
			}
		}(path)
		return nil
	})

	swg.Wait()
	utils.Info("Bulk conversion finished. Processed %d textures.", convertedCount)
	return int(convertedCount), err
}
