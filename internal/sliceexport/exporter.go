package sliceexport

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/stat"

	"reslice/internal/imaging"
	"reslice/internal/logging"
	"reslice/internal/services"
)

// View names the three orthogonal export orientations.
type View string

const (
	ViewAxial    View = "axial"
	ViewCoronal  View = "coronal"
	ViewSagittal View = "sagittal"
)

// Views lists the export orientations in their fixed processing order.
var Views = []View{ViewAxial, ViewCoronal, ViewSagittal}

// Options tune the exporter. Zero values fall back to the documented
// defaults so tests can construct Options sparsely.
type Options struct {
	// JPEGQuality in [1,100]; 0 means the default of 85.
	JPEGQuality int
	// StdDevThreshold is the population standard deviation a plane must
	// exceed to be retained; 0 means the default of 1.0.
	StdDevThreshold float64
	// ProgressInterval is how many retained planes pass between progress
	// callbacks inside a view; 0 means every 10.
	ProgressInterval int
}

func (o Options) withDefaults() Options {
	if o.JPEGQuality <= 0 {
		o.JPEGQuality = 85
	}
	if o.StdDevThreshold <= 0 {
		o.StdDevThreshold = 1.0
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = 10
	}
	return o
}

// Result reports what one export produced. Counts holds retained plane
// totals per view; SourceIndices maps each compacted output index back to
// the plane's position along its axis in the reconstructed volume.
type Result struct {
	Counts        map[View]int
	SourceIndices map[View][]int
	Files         []string
}

// Exporter writes the orthogonal views of a normalized volume as sequences
// of JPEG files under a per-view subdirectory.
type Exporter struct {
	opts   Options
	logger *slog.Logger

	// Progress receives export progress in [0,100] over all three views.
	Progress func(percent int, message string)
}

// New constructs an exporter with the given options.
func New(opts Options, logger *slog.Logger) *Exporter {
	return &Exporter{
		opts:   opts.withDefaults(),
		logger: logging.NewComponentLogger(logger, "slice-exporter"),
	}
}

// Export renders every retained plane of every view under baseDir. Planes
// that are entirely zero or nearly uniform are dropped; the survivors are
// renumbered 0..n-1 within their view so the output sequence has no gaps.
func (e *Exporter) Export(ctx context.Context, volume *imaging.GrayVolume, baseDir string) (*Result, error) {
	result := &Result{
		Counts:        make(map[View]int, len(Views)),
		SourceIndices: make(map[View][]int, len(Views)),
	}

	total := volume.NZ + volume.NY + volume.NX
	if total == 0 {
		return nil, services.Wrap(services.ErrReconstruction, "processing", "export slices", "empty volume", nil)
	}

	visited := 0
	for _, view := range Views {
		dir := filepath.Join(baseDir, string(view))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, services.Wrap(services.ErrStorage, "processing", "export slices", "", err)
		}

		count := planeCount(volume, view)
		kept := 0
		for idx := 0; idx < count; idx++ {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			plane := extractPlane(volume, view, idx)
			if !e.retain(plane) {
				visited++
				continue
			}

			path := filepath.Join(dir, fmt.Sprintf("%d.jpg", kept))
			if err := e.writeJPEG(path, plane); err != nil {
				return nil, err
			}
			result.SourceIndices[view] = append(result.SourceIndices[view], idx)
			result.Files = append(result.Files, path)
			kept++
			visited++

			if e.Progress != nil && kept%e.opts.ProgressInterval == 0 {
				e.Progress(visited*100/total, fmt.Sprintf("Exporting %s view...", view))
			}
		}
		result.Counts[view] = kept

		e.logger.Info("view exported",
			logging.String(logging.FieldView, string(view)),
			logging.Int("retained", kept),
			logging.Int("scanned", count))
		if e.Progress != nil {
			e.Progress(visited*100/total, fmt.Sprintf("Finished %s view", view))
		}
	}
	return result, nil
}

func planeCount(volume *imaging.GrayVolume, view View) int {
	switch view {
	case ViewAxial:
		return volume.NZ
	case ViewCoronal:
		return volume.NY
	default:
		return volume.NX
	}
}

// extractPlane materializes one plane as a grayscale image. The axial view
// is transposed so its width runs along the acquisition rows, matching how
// downstream viewers expect the in-plane orientation.
func extractPlane(volume *imaging.GrayVolume, view View, idx int) *image.Gray {
	var img *image.Gray
	switch view {
	case ViewAxial:
		img = image.NewGray(image.Rect(0, 0, volume.NX, volume.NY))
		for y := 0; y < volume.NY; y++ {
			for x := 0; x < volume.NX; x++ {
				img.Pix[y*img.Stride+x] = volume.At(x, y, idx)
			}
		}
	case ViewCoronal:
		img = image.NewGray(image.Rect(0, 0, volume.NZ, volume.NX))
		for x := 0; x < volume.NX; x++ {
			for z := 0; z < volume.NZ; z++ {
				img.Pix[x*img.Stride+z] = volume.At(x, idx, z)
			}
		}
	default:
		img = image.NewGray(image.Rect(0, 0, volume.NZ, volume.NY))
		for y := 0; y < volume.NY; y++ {
			for z := 0; z < volume.NZ; z++ {
				img.Pix[y*img.Stride+z] = volume.At(idx, y, z)
			}
		}
	}
	return img
}

// retain reports whether a plane carries enough signal to keep: at least one
// nonzero sample and a population standard deviation above the threshold.
func (e *Exporter) retain(plane *image.Gray) bool {
	anyNonzero := false
	samples := make([]float64, len(plane.Pix))
	for i, p := range plane.Pix {
		if p != 0 {
			anyNonzero = true
		}
		samples[i] = float64(p)
	}
	if !anyNonzero {
		return false
	}
	return stat.PopStdDev(samples, nil) > e.opts.StdDevThreshold
}

func (e *Exporter) writeJPEG(path string, img *image.Gray) error {
	file, err := os.Create(path)
	if err != nil {
		return services.Wrap(services.ErrStorage, "processing", "export slices", "", err)
	}
	if err := jpeg.Encode(file, img, &jpeg.Options{Quality: e.opts.JPEGQuality}); err != nil {
		file.Close()
		return services.Wrap(services.ErrStorage, "processing", "export slices", "", err)
	}
	if err := file.Close(); err != nil {
		return services.Wrap(services.ErrStorage, "processing", "export slices", "", err)
	}
	return nil
}
