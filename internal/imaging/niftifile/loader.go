package niftifile

import (
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"reslice/internal/imaging"
	"reslice/internal/services"
)

const headerSize = 348

// header carries the NIfTI-1 fields the loader needs. The on-disk header is
// 348 bytes; everything outside these offsets is ignored.
type header struct {
	dim       [8]int16
	datatype  int16
	bitpix    int16
	pixdim    [8]float32
	voxOffset float32
	sclSlope  float32
	sclInter  float32
}

// Load reads a .nii or .nii.gz file and splits the first 3D volume into
// per-plane slices along the third axis. Rescale calibration from the header
// is attached to every slice rather than applied eagerly.
func Load(path string) ([]imaging.Slice, imaging.Spacing, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, imaging.Spacing{}, services.Wrap(services.ErrInput, "processing", "open nifti", "", err)
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return nil, imaging.Spacing{}, services.Wrap(services.ErrInput, "processing", "open nifti", "not a valid gzip stream", err)
		}
		defer gz.Close()
		reader = gz
	}

	raw := make([]byte, headerSize)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return nil, imaging.Spacing{}, services.Wrap(services.ErrInput, "processing", "read nifti header", "truncated header", err)
	}

	order, err := byteOrder(raw)
	if err != nil {
		return nil, imaging.Spacing{}, err
	}
	hdr := parseHeader(raw, order)

	if hdr.dim[0] < 3 || hdr.dim[1] <= 0 || hdr.dim[2] <= 0 || hdr.dim[3] <= 0 {
		return nil, imaging.Spacing{}, services.Wrap(services.ErrInput, "processing", "read nifti header",
			fmt.Sprintf("unsupported dimensionality %d", hdr.dim[0]), nil)
	}

	nx, ny, nz := int(hdr.dim[1]), int(hdr.dim[2]), int(hdr.dim[3])
	voxels := nx * ny * nz

	// Skip the gap between the header and the voxel data. vox_offset is 352
	// for single-file NIfTI; anything smaller than the header is malformed.
	offset := int64(hdr.voxOffset)
	if offset < headerSize {
		return nil, imaging.Spacing{}, services.Wrap(services.ErrInput, "processing", "read nifti header",
			fmt.Sprintf("invalid vox_offset %d", offset), nil)
	}
	if _, err := io.CopyN(io.Discard, reader, offset-headerSize); err != nil {
		return nil, imaging.Spacing{}, services.Wrap(services.ErrInput, "processing", "read nifti data", "truncated file", err)
	}

	data, err := readVoxels(reader, hdr.datatype, voxels, order)
	if err != nil {
		return nil, imaging.Spacing{}, err
	}

	spacing := imaging.DefaultSpacing()
	if hdr.pixdim[1] > 0 {
		spacing.X = float64(hdr.pixdim[1])
	}
	if hdr.pixdim[2] > 0 {
		spacing.Y = float64(hdr.pixdim[2])
	}
	if hdr.pixdim[3] > 0 {
		spacing.Z = float64(hdr.pixdim[3])
	}

	slope := float64(hdr.sclSlope)
	inter := float64(hdr.sclInter)
	if math.IsNaN(slope) || math.IsInf(slope, 0) {
		slope, inter = 0, 0
	}

	// Voxel data is column-major: index = x + y*nx + z*nx*ny. Each output
	// slice is row-major with rows along x.
	slices := make([]imaging.Slice, nz)
	for z := 0; z < nz; z++ {
		pixels := make([]float64, nx*ny)
		base := z * nx * ny
		for y := 0; y < ny; y++ {
			col := base + y*nx
			for x := 0; x < nx; x++ {
				pixels[x*ny+y] = data[col+x]
			}
		}
		loc := float64(z) * spacing.Z
		slices[z] = imaging.Slice{
			Pixels:     pixels,
			Rows:       nx,
			Cols:       ny,
			Location:   &loc,
			Slope:      slope,
			Intercept:  inter,
			SourcePath: fmt.Sprintf("%s#%d", path, z),
		}
	}
	return slices, spacing, nil
}

// byteOrder detects endianness from sizeof_hdr, which must decode to 348.
func byteOrder(raw []byte) (binary.ByteOrder, error) {
	if binary.LittleEndian.Uint32(raw[0:4]) == headerSize {
		return binary.LittleEndian, nil
	}
	if binary.BigEndian.Uint32(raw[0:4]) == headerSize {
		return binary.BigEndian, nil
	}
	return nil, services.Wrap(services.ErrInput, "processing", "read nifti header", "not a NIfTI-1 file", nil)
}

func parseHeader(raw []byte, order binary.ByteOrder) header {
	var hdr header
	for i := 0; i < 8; i++ {
		hdr.dim[i] = int16(order.Uint16(raw[40+2*i : 42+2*i]))
		hdr.pixdim[i] = math.Float32frombits(order.Uint32(raw[76+4*i : 80+4*i]))
	}
	hdr.datatype = int16(order.Uint16(raw[70:72]))
	hdr.bitpix = int16(order.Uint16(raw[72:74]))
	hdr.voxOffset = math.Float32frombits(order.Uint32(raw[108:112]))
	hdr.sclSlope = math.Float32frombits(order.Uint32(raw[112:116]))
	hdr.sclInter = math.Float32frombits(order.Uint32(raw[116:120]))
	return hdr
}

func readVoxels(reader io.Reader, datatype int16, voxels int, order binary.ByteOrder) ([]float64, error) {
	width, ok := map[int16]int{2: 1, 256: 1, 4: 2, 512: 2, 8: 4, 768: 4, 16: 4, 64: 8}[datatype]
	if !ok {
		return nil, services.Wrap(services.ErrInput, "processing", "read nifti data",
			fmt.Sprintf("unsupported datatype %d", datatype), nil)
	}

	raw := make([]byte, voxels*width)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return nil, services.Wrap(services.ErrInput, "processing", "read nifti data", "truncated voxel data", err)
	}

	data := make([]float64, voxels)
	for i := 0; i < voxels; i++ {
		chunk := raw[i*width:]
		switch datatype {
		case 2:
			data[i] = float64(chunk[0])
		case 256:
			data[i] = float64(int8(chunk[0]))
		case 4:
			data[i] = float64(int16(order.Uint16(chunk)))
		case 512:
			data[i] = float64(order.Uint16(chunk))
		case 8:
			data[i] = float64(int32(order.Uint32(chunk)))
		case 768:
			data[i] = float64(order.Uint32(chunk))
		case 16:
			data[i] = float64(math.Float32frombits(order.Uint32(chunk)))
		case 64:
			data[i] = math.Float64frombits(order.Uint64(chunk))
		}
	}
	return data, nil
}
