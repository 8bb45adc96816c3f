// Package audit measures built script artifacts, optionally collects page
// performance scores and writes the JSON benchmark report.
package audit

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrBuildMissing reports that the build output directory does not exist.
var ErrBuildMissing = errors.New("build output not found")

// DefaultVendorMarker classifies a file as a vendor chunk when its name
// contains it.
const DefaultVendorMarker = "vendor"

// BundleOptions controls which files are counted.
type BundleOptions struct {
	// Extensions lists accepted file suffixes. Empty means ".js".
	Extensions []string
	// VendorMarker is the filename substring marking vendor chunks.
	VendorMarker string
}

func (o BundleOptions) withDefaults() BundleOptions {
	if len(o.Extensions) == 0 {
		o.Extensions = []string{".js"}
	}
	if o.VendorMarker == "" {
		o.VendorMarker = DefaultVendorMarker
	}
	return o
}

// FileSize is one counted artifact.
type FileSize struct {
	Path   string  `json:"path"`
	Bytes  int64   `json:"bytes"`
	SizeKB float64 `json:"sizeKB"`
	Vendor bool    `json:"vendor"`
}

// BundleAnalysis summarizes the script artifacts of a build.
type BundleAnalysis struct {
	TotalSize    float64    `json:"totalSize"`
	JSFiles      int        `json:"jsFiles"`
	VendorChunks int        `json:"vendorChunks"`
	AppChunks    int        `json:"appChunks"`
	Files        []FileSize `json:"files"`
}

// AnalyzeBundle walks dir and sums the sizes of script artifacts. Sizes are
// reported in KB (bytes / 1024). Files are sorted by path.
func AnalyzeBundle(dir string, opts BundleOptions) (*BundleAnalysis, error) {
	opts = opts.withDefaults()
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrBuildMissing, dir)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrBuildMissing, dir)
	}

	a := &BundleAnalysis{Files: []FileSize{}}
	var total int64
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !hasExtension(d.Name(), opts.Extensions) {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = d.Name()
		}
		vendor := strings.Contains(d.Name(), opts.VendorMarker)
		a.Files = append(a.Files, FileSize{
			Path:   filepath.ToSlash(rel),
			Bytes:  fi.Size(),
			SizeKB: float64(fi.Size()) / 1024,
			Vendor: vendor,
		})
		total += fi.Size()
		if vendor {
			a.VendorChunks++
		} else {
			a.AppChunks++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Slice(a.Files, func(i, j int) bool { return a.Files[i].Path < a.Files[j].Path })
	a.JSFiles = len(a.Files)
	a.TotalSize = float64(total) / 1024
	return a, nil
}

func hasExtension(name string, exts []string) bool {
	for _, e := range exts {
		if strings.HasSuffix(name, e) {
			return true
		}
	}
	return false
}
