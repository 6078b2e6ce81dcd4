// Package archive extracts gzip-compressed tar layers into a directory.
package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
)

// ExtractTarGz extracts a tar.gz stream into destDir, aborting if the
// extracted content exceeds maxBytes. Returns the total extracted bytes.
//
// Entries that would land outside destDir (absolute paths, ".." segments,
// escaping link targets) are rejected rather than skipped. Later entries
// overwrite earlier files at the same path, so extracting several layers
// into the same destDir gives last-write-wins semantics.
func ExtractTarGz(r io.Reader, destDir string, maxBytes int64) (int64, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return 0, fmt.Errorf("create dest dir: %w", err)
	}

	gzr, err := gzip.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDecompress, err)
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)

	var extractedBytes int64

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return extractedBytes, readErr(err)
		}

		targetPath, err := sanitizePath(destDir, header.Name)
		if err != nil {
			return extractedBytes, err
		}

		if extractedBytes+header.Size > maxBytes {
			return extractedBytes, fmt.Errorf("%w: would exceed %d bytes", ErrArchiveTooLarge, maxBytes)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(targetPath, os.FileMode(header.Mode)); err != nil {
				return extractedBytes, fmt.Errorf("create dir %s: %w", header.Name, err)
			}

		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
				return extractedBytes, fmt.Errorf("create parent dir: %w", err)
			}

			f, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode))
			if err != nil {
				return extractedBytes, fmt.Errorf("create file %s: %w", header.Name, err)
			}

			// Limit as secondary protection against lying headers
			remaining := maxBytes - extractedBytes
			limitedReader := io.LimitReader(tr, remaining+1)

			n, err := io.Copy(f, limitedReader)
			f.Close()

			if err != nil {
				return extractedBytes, readErr(err)
			}

			extractedBytes += n

			if extractedBytes > maxBytes {
				return extractedBytes, fmt.Errorf("%w: exceeded %d bytes", ErrArchiveTooLarge, maxBytes)
			}

		case tar.TypeSymlink:
			// An absolute target (etc/mtab -> /proc/mounts in alpine) is
			// rooted at the new filesystem root once it is entered, so it
			// is validated against destDir rather than rejected. Nothing
			// follows the link during extraction.
			linkTarget := header.Linkname
			var resolvedTarget string
			if filepath.IsAbs(linkTarget) {
				resolvedTarget = filepath.Clean(filepath.Join(destDir, linkTarget))
			} else {
				resolvedTarget = filepath.Clean(filepath.Join(filepath.Dir(targetPath), linkTarget))
			}
			if !within(destDir, resolvedTarget) {
				return extractedBytes, fmt.Errorf("%w: symlink in %s escapes destination", ErrInvalidArchivePath, header.Name)
			}

			if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
				return extractedBytes, fmt.Errorf("create parent dir for symlink: %w", err)
			}
			// Layers may legitimately replace an earlier layer's entry
			os.Remove(targetPath)
			if err := os.Symlink(linkTarget, targetPath); err != nil {
				return extractedBytes, fmt.Errorf("create symlink %s: %w", header.Name, err)
			}

		case tar.TypeLink:
			linkTarget, err := sanitizePath(destDir, header.Linkname)
			if err != nil {
				return extractedBytes, err
			}

			if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
				return extractedBytes, fmt.Errorf("create parent dir for hardlink: %w", err)
			}
			os.Remove(targetPath)
			if err := os.Link(linkTarget, targetPath); err != nil {
				return extractedBytes, fmt.Errorf("create hardlink %s: %w", header.Name, err)
			}

		default:
			// Skip device nodes, fifos, etc.
			continue
		}
	}

	return extractedBytes, nil
}

// sanitizePath validates an archive entry name and returns a safe path
// strictly within destDir.
func sanitizePath(destDir, name string) (string, error) {
	name = filepath.Clean(name)

	if filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: absolute path %s", ErrInvalidArchivePath, name)
	}
	// Segment-wise so names like "foo..bar" stay legal
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: path traversal in %s", ErrInvalidArchivePath, name)
		}
	}

	targetPath, err := securejoin.SecureJoin(destDir, name)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidArchivePath, name, err)
	}
	if !within(destDir, targetPath) {
		return "", fmt.Errorf("%w: path escapes destination: %s", ErrInvalidArchivePath, name)
	}

	return targetPath, nil
}

// within reports whether path is destDir itself or inside it.
func within(destDir, path string) bool {
	destDir = filepath.Clean(destDir)
	path = filepath.Clean(path)
	return path == destDir || strings.HasPrefix(path, destDir+string(os.PathSeparator))
}

// readErr wraps a mid-stream read failure, distinguishing corrupt gzip
// data from a malformed tar archive.
func readErr(err error) error {
	var corrupt flate.CorruptInputError
	if errors.Is(err, gzip.ErrHeader) || errors.Is(err, gzip.ErrChecksum) || errors.As(err, &corrupt) {
		return fmt.Errorf("%w: %v", ErrDecompress, err)
	}
	return fmt.Errorf("read archive: %w", err)
}
