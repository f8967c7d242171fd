package extract

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Archive extracts archivePath into outputDir using the batch (whole
// file already on disk) path appropriate to its detected type. This is
// the path used for standalone codec files and non-tar archives, per
// spec.md §6: only tar.<codec> forms get the live streaming bridge.
func Archive(archivePath, outputDir string) (Result, error) {
	switch FromFilename(archivePath) {
	case Tar:
		return extractTarPlain(archivePath, outputDir)
	case TarGz:
		return extractTarGz(archivePath, outputDir)
	case TarLz4:
		return extractTarLz4(archivePath, outputDir)
	case TarZst:
		return extractTarZst(archivePath, outputDir)
	case Lz4:
		return extractLz4(archivePath, outputDir)
	case Zip:
		return extractZip(archivePath, outputDir)
	default:
		return Result{}, fmt.Errorf("extract: %s: unrecognized archive format", archivePath)
	}
}

func extractTarPlain(archivePath, outputDir string) (Result, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()
	return unpackTar(f, outputDir)
}

func extractTarGz(archivePath, outputDir string) (Result, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return Result{}, err
	}
	defer gz.Close()
	return unpackTar(gz, outputDir)
}

func extractTarLz4(archivePath, outputDir string) (Result, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()
	return unpackTar(lz4.NewReader(f), outputDir)
}

func extractTarZst(archivePath, outputDir string) (Result, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return Result{}, err
	}
	defer dec.Close()
	return unpackTar(dec.IOReadCloser(), outputDir)
}

func extractLz4(archivePath, outputDir string) (Result, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	name := filepath.Base(archivePath)
	outputName := name
	if strings.HasSuffix(strings.ToLower(name), ".lz4") {
		outputName = name[:len(name)-4]
	}
	outPath := filepath.Join(outputDir, outputName)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return Result{}, err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return Result{}, err
	}
	defer out.Close()

	n, err := io.Copy(out, lz4.NewReader(f))
	if err != nil {
		return Result{}, err
	}
	return Result{FilesCount: 1, TotalSize: uint64(n)}, nil
}

func extractZip(archivePath, outputDir string) (Result, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return Result{}, err
	}
	defer r.Close()

	var result Result
	for _, f := range r.File {
		dest, err := safeJoin(outputDir, f.Name)
		if err != nil {
			return Result{}, err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return Result{}, err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return Result{}, err
		}
		rc, err := f.Open()
		if err != nil {
			return Result{}, err
		}
		out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode())
		if err != nil {
			rc.Close()
			return Result{}, err
		}
		n, err := io.Copy(out, rc)
		rc.Close()
		out.Close()
		if err != nil {
			return Result{}, err
		}
		result.FilesCount++
		result.TotalSize += uint64(n)
	}
	return result, nil
}

// unpackTar walks a tar stream (already decompressed, if applicable)
// and writes every regular file/directory entry under outputDir,
// rejecting any entry whose path would escape outputDir.
func unpackTar(r io.Reader, outputDir string) (Result, error) {
	tr := tar.NewReader(r)
	var result Result
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return result, err
		}
		dest, err := safeJoin(outputDir, hdr.Name)
		if err != nil {
			return result, err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return result, err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return result, err
			}
			out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return result, err
			}
			n, err := io.Copy(out, tr)
			out.Close()
			if err != nil {
				return result, err
			}
			result.FilesCount++
			result.TotalSize += uint64(n)
		}
	}
	return result, nil
}

// safeJoin joins root and rel, rejecting any result that escapes root
// (spec.md §4.7/§4.8 mandate path-traversal protection both on the wire
// and inside archives). It is looser than receiver.SafeJoin, which the
// streaming bridge and the plain file-write path use: ".." segments that
// stay inside root are accepted here, and the error does not wrap
// engine.ErrPathEscape.
func safeJoin(root, rel string) (string, error) {
	rel = filepath.FromSlash(rel)
	cleaned := filepath.Clean(filepath.Join(root, rel))
	rootClean := filepath.Clean(root)
	if cleaned != rootClean && !strings.HasPrefix(cleaned, rootClean+string(os.PathSeparator)) {
		return "", fmt.Errorf("extract: archive entry %q escapes output directory", rel)
	}
	return cleaned, nil
}
