package dicomfile

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"reslice/internal/imaging"
	"reslice/internal/logging"
	"reslice/internal/services"
)

// Loader reads a directory of DICOM files into acquisition slices.
type Loader struct {
	dir    string
	logger *slog.Logger

	// Progress receives coarse load progress in [0,100] scaled to the
	// loader's own work, plus a short message.
	Progress func(percent int, message string)
}

// NewLoader constructs a loader for the directory containing a study.
func NewLoader(dir string, logger *slog.Logger) *Loader {
	return &Loader{dir: dir, logger: logging.NewComponentLogger(logger, "dicom-loader")}
}

// Load discovers, parses, and converts every readable DICOM file under the
// loader's directory. Unreadable or pixel-less files are skipped; an empty
// result is an input error. Spacing metadata comes from the first slice.
func (l *Loader) Load(ctx context.Context) ([]imaging.Slice, imaging.Spacing, error) {
	files, err := l.findFiles()
	if err != nil {
		return nil, imaging.Spacing{}, services.Wrap(services.ErrInput, "processing", "scan directory", "", err)
	}
	if len(files) == 0 {
		return nil, imaging.Spacing{}, services.Wrap(services.ErrInput, "processing", "scan directory", "no valid DICOM files found in directory", nil)
	}

	spacing := imaging.DefaultSpacing()
	spacingSet := false
	slices := make([]imaging.Slice, 0, len(files))
	for i, path := range files {
		select {
		case <-ctx.Done():
			return nil, imaging.Spacing{}, ctx.Err()
		default:
		}

		slice, sp, ok := l.loadOne(path)
		if !ok {
			continue
		}
		if !spacingSet {
			spacing = sp
			spacingSet = true
		}
		slices = append(slices, slice)

		if l.Progress != nil && i%10 == 0 {
			percent := int(float64(i) / float64(len(files)) * 100)
			l.Progress(percent, "Loading DICOM files...")
		}
	}

	if len(slices) == 0 {
		return nil, imaging.Spacing{}, services.Wrap(services.ErrInput, "processing", "load slices", "no valid DICOM files found", nil)
	}
	return slices, spacing, nil
}

func (l *Loader) findFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if imaging.IsDICOMFile(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func (l *Loader) loadOne(path string) (imaging.Slice, imaging.Spacing, bool) {
	dataset, err := dicom.ParseFile(path, nil)
	if err != nil {
		l.logger.Debug("skipping unreadable file", logging.String("path", path), logging.Error(err))
		return imaging.Slice{}, imaging.Spacing{}, false
	}

	pixels, rows, cols, ok := extractPixels(&dataset)
	if !ok || len(pixels) == 0 {
		l.logger.Debug("skipping file without pixel data", logging.String("path", path))
		return imaging.Slice{}, imaging.Spacing{}, false
	}

	slice := imaging.Slice{
		Pixels:     pixels,
		Rows:       rows,
		Cols:       cols,
		SourcePath: path,
	}
	if loc, ok := floatValue(&dataset, tag.SliceLocation); ok {
		v := loc
		slice.Location = &v
	}
	if pos, ok := floatValues(&dataset, tag.ImagePositionPatient); ok && len(pos) >= 3 {
		slice.Position = pos
	}
	if inst, ok := floatValue(&dataset, tag.InstanceNumber); ok {
		v := int(inst)
		slice.Instance = &v
	}
	slope, hasSlope := floatValue(&dataset, tag.RescaleSlope)
	intercept, hasIntercept := floatValue(&dataset, tag.RescaleIntercept)
	if hasSlope || hasIntercept {
		slice.Slope = slope
		slice.Intercept = intercept
	}

	return slice, extractSpacing(&dataset), true
}

func extractPixels(dataset *dicom.Dataset) ([]float64, int, int, bool) {
	element, err := dataset.FindElementByTag(tag.PixelData)
	if err != nil {
		return nil, 0, 0, false
	}
	info := dicom.MustGetPixelDataInfo(element.Value)
	if info.IsEncapsulated || len(info.Frames) == 0 {
		return nil, 0, 0, false
	}
	native, err := info.Frames[0].GetNativeFrame()
	if err != nil {
		return nil, 0, 0, false
	}
	if native.Rows <= 0 || native.Cols <= 0 || len(native.Data) != native.Rows*native.Cols {
		return nil, 0, 0, false
	}
	pixels := make([]float64, len(native.Data))
	for i, sample := range native.Data {
		if len(sample) == 0 {
			return nil, 0, 0, false
		}
		pixels[i] = float64(sample[0])
	}
	return pixels, native.Rows, native.Cols, true
}

func extractSpacing(dataset *dicom.Dataset) imaging.Spacing {
	spacing := imaging.DefaultSpacing()
	if values, ok := floatValues(dataset, tag.PixelSpacing); ok && len(values) >= 2 {
		spacing.X = values[0]
		spacing.Y = values[1]
	}
	if thickness, ok := floatValue(dataset, tag.SliceThickness); ok && thickness != 0 {
		spacing.Z = thickness
	}
	return spacing
}

func floatValue(dataset *dicom.Dataset, t tag.Tag) (float64, bool) {
	values, ok := floatValues(dataset, t)
	if !ok || len(values) == 0 {
		return 0, false
	}
	return values[0], true
}

// floatValues tolerates the value shapes the parser produces for numeric
// tags: decimal strings, integer strings, and native numeric slices.
func floatValues(dataset *dicom.Dataset, t tag.Tag) ([]float64, bool) {
	element, err := dataset.FindElementByTag(t)
	if err != nil || element == nil {
		return nil, false
	}
	switch raw := element.Value.GetValue().(type) {
	case []string:
		values := make([]float64, 0, len(raw))
		for _, s := range raw {
			parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, false
			}
			values = append(values, parsed)
		}
		if len(values) == 0 {
			return nil, false
		}
		return values, true
	case []int:
		values := make([]float64, len(raw))
		for i, v := range raw {
			values[i] = float64(v)
		}
		return values, len(values) > 0
	case []float64:
		return raw, len(raw) > 0
	default:
		return nil, false
	}
}
