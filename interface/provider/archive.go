package provider

import (
	"archive/tar"
	"archive/zip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/airbusgeo/landsat-acquirer/service"
	"github.com/airbusgeo/landsat-acquirer/service/log"
	"github.com/google/uuid"
	"github.com/mholt/archiver"
)

// RasterExtensions are the extensions of the raster members returned by Expand
var RasterExtensions = []string{".tif", ".TIF", ".tiff", ".TIFF"}

// IsRaster returns true if the file has one of the RasterExtensions
func IsRaster(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range RasterExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ArchiveExpander extracts archives in place
type ArchiveExpander struct{}

// IsArchive returns true if the extension of the file is a supported archive format
func (ArchiveExpander) IsArchive(path string) bool {
	_, err := archiver.ByExtension(path)
	return err == nil
}

// ExtractDir returns the directory the members of archive are extracted to:
// the archive path without its archive extensions (E1.tar.gz extracts to E1/).
func ExtractDir(archive string) string {
	dir, name := filepath.Split(archive)
	for {
		if _, err := archiver.ByExtension(name); err != nil {
			break
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if stem == "" || stem == name {
			break
		}
		name = stem
	}
	if filepath.Join(dir, name) == filepath.Clean(archive) {
		name += ".d"
	}
	return filepath.Join(dir, name)
}

// Members lists the relative paths of the files of the archive
func (ArchiveExpander) Members(archive string) ([]string, error) {
	var members []string
	err := archiver.Walk(archive, func(f archiver.File) error {
		if f.IsDir() {
			return nil
		}
		members = append(members, memberName(f))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Members.Walk: %w", err)
	}
	return members, nil
}

func memberName(f archiver.File) string {
	switch h := f.Header.(type) {
	case *tar.Header:
		return filepath.Clean(h.Name)
	case zip.FileHeader:
		return filepath.Clean(h.Name)
	}
	return f.Name()
}

// Expand extracts archive into destDir and returns the paths of its raster members.
// The extraction goes through a temporary directory, then the members are moved in place.
func (e ArchiveExpander) Expand(ctx context.Context, archive, destDir string) ([]string, error) {
	members, err := e.Members(archive)
	if err != nil {
		return nil, fmt.Errorf("Expand.%w", err)
	}
	if err := unarchive(archive, destDir); err != nil {
		return nil, fmt.Errorf("Expand.%w", err)
	}

	var rasters []string
	for _, m := range members {
		if strings.HasPrefix(m, "..") {
			continue
		}
		if IsRaster(m) {
			rasters = append(rasters, filepath.Join(destDir, m))
		}
	}
	log.Logger(ctx).Sugar().Debugf("%s: %d members extracted, %d rasters", filepath.Base(archive), len(members), len(rasters))
	return rasters, nil
}

// unarchive file with basic check. All errors are temporary.
func unarchive(archive, localDir string) error {
	tmpdir := filepath.Join(localDir, ".unarchive-"+uuid.New().String())
	if err := os.MkdirAll(tmpdir, 0755); err != nil {
		return service.MakeTemporary(err)
	}
	defer os.RemoveAll(tmpdir)
	if err := archiver.Unarchive(archive, tmpdir); err != nil {
		return service.MakeTemporary(fmt.Errorf("unarchive: %w", err))
	}
	files, err := os.ReadDir(tmpdir)
	if err != nil {
		return service.MakeTemporary(err)
	}
	if len(files) == 0 {
		return service.MakeTemporary(fmt.Errorf("unarchive: empty archive %s", filepath.Base(archive)))
	}
	for _, f := range files {
		dst := filepath.Join(localDir, f.Name())
		if err := os.RemoveAll(dst); err != nil {
			return service.MakeTemporary(err)
		}
		if err := os.Rename(filepath.Join(tmpdir, f.Name()), dst); err != nil {
			return service.MakeTemporary(err)
		}
	}
	return nil
}
