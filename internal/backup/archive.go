// Daftar - Invoicing and Accounting Platform
// Copyright 2026 Daftar Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/daftarhq/daftar

/*
archive.go - Archive Construction and Extraction

Builds compressed tar archives from one or more source paths, applying
exclusion filters, and extracts them again on restore.

Archive layouts:

	Full / files-only:  entries stored under the basename of each source path
	Incremental:        entries stored relative to the single source path

Compression is selected by kind (gzip, bzip2, none); unknown kinds fall
back to uncompressed. Extraction sniffs the compression from the file
magic rather than trusting the file name, so plain-tar artifacts with a
.tar.gz name still restore.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"archive/tar"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	dbzip2 "github.com/dsnet/compress/bzip2"
)

// Archiver builds compressed archives from file trees
type Archiver struct {
	// Compression algorithm for produced archives
	Kind CompressionKind

	// Entries whose archive name contains any of these substrings are skipped
	ExcludePatterns []string
}

// archiveWriters holds the stacked writers for archive creation
type archiveWriters struct {
	tarWriter *tar.Writer
	closers   []io.Closer
}

// Close closes all writers in reverse order, returning the first error encountered
func (aw *archiveWriters) Close() error {
	var firstErr error
	for i := len(aw.closers) - 1; i >= 0; i-- {
		if err := aw.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// setupArchiveWriters creates the file, compression, and tar writers
//
//nolint:gosec // G304: archivePath is from internal backup configuration
func (a *Archiver) setupArchiveWriters(archivePath string) (*archiveWriters, error) {
	outFile, err := os.Create(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive file: %w", err)
	}

	aw := &archiveWriters{
		closers: []io.Closer{outFile},
	}

	var tarDest io.Writer = outFile
	switch a.Kind {
	case CompressionGzip:
		gzWriter := gzip.NewWriter(outFile)
		aw.closers = append(aw.closers, gzWriter)
		tarDest = gzWriter
	case CompressionBzip2:
		bzWriter, err := dbzip2.NewWriter(outFile, &dbzip2.WriterConfig{Level: dbzip2.DefaultCompression})
		if err != nil {
			outFile.Close() //nolint:errcheck // Best effort cleanup on error
			return nil, fmt.Errorf("failed to create bzip2 writer: %w", err)
		}
		aw.closers = append(aw.closers, bzWriter)
		tarDest = bzWriter
	default:
		// CompressionNone and unknown kinds produce a plain tar
	}

	aw.tarWriter = tar.NewWriter(tarDest)
	aw.closers = append(aw.closers, aw.tarWriter)

	return aw, nil
}

// excluded reports whether an archive entry name matches an exclusion substring
func (a *Archiver) excluded(name string) bool {
	for _, pattern := range a.ExcludePatterns {
		if pattern != "" && strings.Contains(name, pattern) {
			return true
		}
	}
	return false
}

// Build creates an archive at archivePath from the given source paths.
// Source paths that do not exist are skipped. Entries are stored under the
// basename of each source path.
func (a *Archiver) Build(sourcePaths []string, archivePath string) (err error) {
	aw, err := a.setupArchiveWriters(archivePath)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := aw.Close()
		if err == nil {
			err = closeErr
		}
	}()

	for _, sourcePath := range sourcePaths {
		info, statErr := os.Stat(sourcePath)
		if statErr != nil {
			continue
		}

		base := filepath.Base(sourcePath)
		if info.IsDir() {
			if err := a.addTree(aw.tarWriter, sourcePath, base); err != nil {
				return err
			}
			continue
		}
		if a.excluded(base) {
			continue
		}
		if err := addFileToArchive(aw.tarWriter, sourcePath, base); err != nil {
			return err
		}
	}

	return nil
}

// BuildIncremental creates an archive at archivePath containing only the
// files under the source paths modified strictly after since. Entry names
// are stored relative to their source path. Source paths that do not exist
// are skipped. A cutoff with no qualifying files yields a valid empty
// archive and a zero count, not an error.
func (a *Archiver) BuildIncremental(sourcePaths []string, archivePath string, since time.Time) (count int, err error) {
	aw, err := a.setupArchiveWriters(archivePath)
	if err != nil {
		return 0, err
	}
	defer func() {
		closeErr := aw.Close()
		if err == nil {
			err = closeErr
		}
	}()

	for _, sourcePath := range sourcePaths {
		if _, statErr := os.Stat(sourcePath); statErr != nil {
			continue
		}

		err = filepath.WalkDir(sourcePath, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if !d.Type().IsRegular() {
				return nil
			}

			info, infoErr := d.Info()
			if infoErr != nil {
				return infoErr
			}
			if !info.ModTime().After(since) {
				return nil
			}

			arcname, relErr := filepath.Rel(sourcePath, path)
			if relErr != nil {
				return relErr
			}
			if arcname == "." {
				// Source path is itself a regular file
				arcname = filepath.Base(path)
			}
			arcname = filepath.ToSlash(arcname)
			if a.excluded(arcname) {
				return nil
			}

			if err := addFileToArchive(aw.tarWriter, path, arcname); err != nil {
				return err
			}
			count++
			return nil
		})
		if err != nil {
			return count, fmt.Errorf("failed to build incremental archive: %w", err)
		}
	}

	return count, nil
}

// addTree walks a directory and adds its regular files under the given prefix
func (a *Archiver) addTree(tw *tar.Writer, root, prefix string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		arcname := prefix
		if rel != "." {
			arcname = prefix + "/" + filepath.ToSlash(rel)
		}
		if a.excluded(arcname) {
			return nil
		}

		return addFileToArchive(tw, path, arcname)
	})
}

// addFileToArchive adds a single file to the tar archive
//
//nolint:gosec // G304: srcPath is validated by the caller's walk
func addFileToArchive(tw *tar.Writer, srcPath, arcname string) error {
	file, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", srcPath, err)
	}
	defer file.Close() //nolint:errcheck // Best effort cleanup

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", srcPath, err)
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("failed to create tar header for %s: %w", srcPath, err)
	}
	header.Name = arcname

	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", srcPath, err)
	}

	if _, err := io.Copy(tw, file); err != nil {
		return fmt.Errorf("failed to copy %s to archive: %w", srcPath, err)
	}

	return nil
}

// openArchiveReader opens an archive and returns a tar reader over its
// decompressed contents. Compression is sniffed from the file magic.
// The caller closes the returned closers in reverse order.
//
//nolint:gosec // G304: archivePath is from internal backup storage
func openArchiveReader(archivePath string) (*tar.Reader, []io.Closer, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open archive %s: %w", archivePath, err)
	}
	closers := []io.Closer{file}

	magic := make([]byte, 3)
	n, _ := io.ReadFull(file, magic)
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		closeAll(closers)
		return nil, nil, fmt.Errorf("failed to rewind archive %s: %w", archivePath, err)
	}

	var src io.Reader = file
	switch {
	case n >= 2 && magic[0] == 0x1f && magic[1] == 0x8b:
		gzReader, err := gzip.NewReader(file)
		if err != nil {
			closeAll(closers)
			return nil, nil, fmt.Errorf("failed to open gzip stream in %s: %w", archivePath, err)
		}
		closers = append(closers, gzReader)
		src = gzReader
	case n >= 3 && magic[0] == 'B' && magic[1] == 'Z' && magic[2] == 'h':
		src = bzip2.NewReader(file)
	}

	return tar.NewReader(src), closers, nil
}

// closeAll closes a closer stack in reverse order
func closeAll(closers []io.Closer) {
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i].Close() //nolint:errcheck // Best effort cleanup
	}
}

// extractArchive unpacks an archive into targetDir, refusing entries that
// would escape the target directory.
func extractArchive(archivePath, targetDir string) error {
	tarReader, closers, err := openArchiveReader(archivePath)
	if err != nil {
		return err
	}
	defer closeAll(closers)

	if err := os.MkdirAll(targetDir, 0o750); err != nil {
		return fmt.Errorf("failed to create restore target %s: %w", targetDir, err)
	}

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read archive entry: %w", err)
		}

		destPath, err := validateDestPath(targetDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(destPath, 0o750); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", destPath, err)
			}
		case tar.TypeReg:
			if err := extractRegularFile(tarReader, destPath, header); err != nil {
				return err
			}
		default:
			// Symlinks and special files are not produced by the archiver
			// and are skipped on extraction.
		}
	}
}

// validateDestPath joins an archive entry name onto targetDir and rejects
// path traversal.
func validateDestPath(targetDir, name string) (string, error) {
	destPath := filepath.Join(targetDir, filepath.FromSlash(name))
	if !strings.HasPrefix(destPath, filepath.Clean(targetDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry %s escapes restore target", name)
	}
	return destPath, nil
}

// extractRegularFile writes one tar entry to disk
//
//nolint:gosec // G304,G110: destPath is validated, archives are self-produced
func extractRegularFile(tarReader *tar.Reader, destPath string, header *tar.Header) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", destPath, err)
	}

	outFile, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode)&0o777)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", destPath, err)
	}
	defer outFile.Close() //nolint:errcheck // Best effort cleanup

	if _, err := io.Copy(outFile, tarReader); err != nil {
		return fmt.Errorf("failed to extract %s: %w", destPath, err)
	}

	return nil
}
