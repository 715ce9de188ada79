package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

// Reserved filenames of a directory archive, and the marker entry of a
// legacy zip bundle. The main stream filename predates this
// implementation and is kept for compatibility with existing archives.
const (
	// VersionFileName holds exactly the archive version string
	VersionFileName = "version"

	// MainStreamFileName is the generic codec main stream
	MainStreamFileName = "pickle_archive"

	// legacyMarkerEntry is the zip entry whose content names the
	// embedded main-stream entry
	legacyMarkerEntry = "pickle_file"

	// CurrentVersion is written to every new archive
	CurrentVersion = "1.0"
)

// supportedVersions gates directory archives on read. A version outside
// this set fails with ErrUnsupportedVersion, never a best-effort parse.
var supportedVersions = map[string]bool{
	CurrentVersion: true,
}

// Mode classifies an input as one of the supported archive formats.
type Mode int

const (
	// ModeDirectory is the current format: version marker, main stream
	// and side artifacts in one directory
	ModeDirectory Mode = iota

	// ModeLegacyBundle is the read-only zip format of early releases
	ModeLegacyBundle

	// ModePlainStream is a bare main stream with no references possible
	ModePlainStream
)

func (m Mode) String() string {
	switch m {
	case ModeDirectory:
		return "directory"
	case ModeLegacyBundle:
		return "legacy-bundle"
	case ModePlainStream:
		return "plain-stream"
	default:
		return "unknown"
	}
}

// layout is the outcome of classifying a staged local input.
type layout struct {
	mode        Mode
	version     string // empty for plain streams and unversioned bundles
	mainStream  string // absolute path of the main stream file
	stagingRoot string // directory side-file paths resolve against
	extracted   bool   // stagingRoot was created by extracting a bundle
}

// classifyAndValidate identifies which archive format localPath holds and
// validates it. Directory archives must carry both reserved files and a
// supported version. Legacy bundles are extracted wholesale into a fresh
// staging directory. Anything else readable is a plain stream.
func classifyAndValidate(localPath string) (layout, error) {
	fi, err := os.Stat(localPath)
	if err != nil {
		return layout{}, ErrConstruction.Wrap(err)
	}

	if fi.IsDir() {
		return classifyDirectory(localPath)
	}

	zr, err := zip.OpenReader(localPath)
	if err == nil {
		defer zr.Close()
		return extractLegacyBundle(zr)
	}

	// a bare readable stream
	return layout{
		mode:       ModePlainStream,
		mainStream: localPath,
	}, nil
}

func classifyDirectory(dir string) (layout, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return layout{}, ErrConstruction.Wrap(err)
	}
	mainStream := filepath.Join(abs, MainStreamFileName)
	if _, err := os.Stat(mainStream); err != nil {
		return layout{}, ErrConstruction.Wrap(
			fmt.Errorf("corrupted archive: missing main stream %s: %v", mainStream, err))
	}
	versionFile := filepath.Join(abs, VersionFileName)
	data, err := os.ReadFile(versionFile)
	if err != nil {
		return layout{}, ErrConstruction.Wrap(
			fmt.Errorf("corrupted archive: missing version marker: %v", err))
	}
	version := strings.TrimSpace(string(data))
	if !supportedVersions[version] {
		return layout{}, ErrUnsupportedVersion.Wrap(
			fmt.Errorf("version %q is not in the supported set", version))
	}
	return layout{
		mode:        ModeDirectory,
		version:     version,
		mainStream:  mainStream,
		stagingRoot: abs,
	}, nil
}

func extractLegacyBundle(zr *zip.ReadCloser) (layout, error) {
	var markerContent string
	for _, f := range zr.File {
		if f.Name != legacyMarkerEntry {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return layout{}, ErrConstruction.Wrap(err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return layout{}, ErrConstruction.Wrap(err)
		}
		markerContent = strings.TrimSpace(string(content))
	}
	if markerContent == "" {
		return layout{}, ErrConstruction.Wrap(
			fmt.Errorf("bundle has no %q marker entry", legacyMarkerEntry))
	}

	// The bundle comment historically carried the version. Absent means
	// the earliest format.
	version := strings.TrimSpace(zr.Comment)
	if version != "" && !supportedVersions[version] {
		return layout{}, ErrUnsupportedVersion.Wrap(
			fmt.Errorf("bundle version %q is not in the supported set", version))
	}

	staging, err := os.MkdirTemp("", "glarchive-")
	if err != nil {
		return layout{}, ErrConstruction.Wrap(err)
	}
	for _, f := range zr.File {
		if err := extractEntry(staging, f); err != nil {
			return layout{}, ErrConstruction.Wrap(err)
		}
	}

	mainStream := filepath.Join(staging, filepath.FromSlash(markerContent))
	if _, err := os.Stat(mainStream); err != nil {
		return layout{}, ErrConstruction.Wrap(
			fmt.Errorf("bundle marker names %q but the entry is missing: %v", markerContent, err))
	}
	return layout{
		mode:        ModeLegacyBundle,
		version:     version,
		mainStream:  mainStream,
		stagingRoot: staging,
		extracted:   true,
	}, nil
}

func extractEntry(staging string, f *zip.File) error {
	name := filepath.FromSlash(f.Name)
	if !filepath.IsLocal(name) {
		return fmt.Errorf("bundle entry %q escapes the staging directory", f.Name)
	}
	target := filepath.Join(staging, name)
	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0700)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0700); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := out.ReadFrom(rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
