// Package extract detects archive formats by filename suffix and
// provides two extraction modes: a batch mode (this file's extractors,
// used for standalone codec files and non-tar archives) and a streaming
// mode (in the receiver package's extractor bridge, used only for
// tar.<codec> forms arriving live off the wire).
package extract

import "strings"

// ArchiveType is the detected format of an incoming or on-disk file.
type ArchiveType int

const (
	Unknown ArchiveType = iota
	TarLz4
	TarZst
	Lz4
	Tar
	TarGz
	Zip
)

// FromFilename determines the archive type from a case-insensitive
// suffix match. Rar and 7z are deliberately absent: spec.md's external
// interface only names tar.lz4/tlz4, lz4, tar.gz/tgz, tar, zip, and the
// original's own Rar/SevenZip variants are unsupported stubs anyway.
func FromFilename(filename string) ArchiveType {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".tar.lz4"), strings.HasSuffix(lower, ".tlz4"):
		return TarLz4
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		return TarZst
	case strings.HasSuffix(lower, ".lz4"):
		return Lz4
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return TarGz
	case strings.HasSuffix(lower, ".tar"):
		return Tar
	case strings.HasSuffix(lower, ".zip"):
		return Zip
	default:
		return Unknown
	}
}

// Name returns the human-readable format name.
func (t ArchiveType) Name() string {
	switch t {
	case TarLz4:
		return "tar.lz4"
	case TarZst:
		return "tar.zst"
	case Lz4:
		return "lz4"
	case Tar:
		return "tar"
	case TarGz:
		return "tar.gz"
	case Zip:
		return "zip"
	default:
		return "unknown"
	}
}

// IsStreamable reports whether this type uses the streaming extractor
// bridge (only tar.<codec> forms) rather than the batch path.
func (t ArchiveType) IsStreamable() bool {
	return t == TarLz4 || t == TarZst
}

// Result summarizes a completed extraction.
type Result struct {
	FilesCount int
	TotalSize  uint64
}

// Options controls which archive types are auto-extracted on receive.
type Options struct {
	TarLz4 bool
	TarZst bool
	Lz4    bool
	Tar    bool // also governs TarGz
	Zip    bool
}

func (o Options) ShouldExtract(t ArchiveType) bool {
	switch t {
	case TarLz4:
		return o.TarLz4
	case TarZst:
		return o.TarZst
	case Lz4:
		return o.Lz4
	case Tar, TarGz:
		return o.Tar
	case Zip:
		return o.Zip
	default:
		return false
	}
}

func (o Options) AnyEnabled() bool {
	return o.TarLz4 || o.TarZst || o.Lz4 || o.Tar || o.Zip
}
