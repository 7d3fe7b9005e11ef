// Package artifact turns a built front-end artifact into a C header that
// embeds the gzip-compressed bytes as a PROGMEM array.
//
// The transformation is a single deterministic pass: read the artifact,
// compress it at maximum gzip level, and write the header. The header is
// consumed by a firmware build, which serves the array directly with a
// Content-Encoding: gzip response.
package artifact

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
)

// DefaultSymbol is the array name firmware code expects. The length
// constant is DefaultSymbol + "_len".
const DefaultSymbol = "index_html_gz"

// ErrSourceNotFound indicates the input artifact does not exist or cannot
// be read.
var ErrSourceNotFound = errors.New("source artifact not found")

// WriteError reports a failure to create or write the destination header.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string { return fmt.Sprintf("writing %s: %v", e.Path, e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }

// Stats describes one embedding run.
type Stats struct {
	OriginalBytes   int
	CompressedBytes int

	// Digest is the hex BLAKE3-256 of the original artifact.
	Digest string
}

// Ratio returns compressed/original, or 0 for an empty artifact.
func (s Stats) Ratio() float64 {
	if s.OriginalBytes == 0 {
		return 0
	}
	return float64(s.CompressedBytes) / float64(s.OriginalBytes)
}

// Options tunes the generated header.
type Options struct {
	// Symbol names the byte array. Empty means DefaultSymbol.
	Symbol string
}

func (o Options) symbol() string {
	if o.Symbol == "" {
		return DefaultSymbol
	}
	return o.Symbol
}

// Embed compresses sourcePath and writes the header to destPath using the
// default symbol.
func Embed(sourcePath, destPath string) (Stats, error) {
	return EmbedWithOptions(sourcePath, destPath, Options{})
}

// EmbedWithOptions compresses sourcePath and writes the header to destPath.
// Missing parent directories of destPath are created. If the source does
// not exist or cannot be read (a directory, no permission) the destination
// is left untouched and ErrSourceNotFound is returned. Every other failure
// is a *WriteError.
func EmbedWithOptions(sourcePath, destPath string, opts Options) (Stats, error) {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Stats{}, fmt.Errorf("%w: %s", ErrSourceNotFound, sourcePath)
		}
		return Stats{}, fmt.Errorf("%w: %s: %w", ErrSourceNotFound, sourcePath, err)
	}

	compressed, err := Compress(data)
	if err != nil {
		return Stats{}, err
	}

	var buf bytes.Buffer
	if err := Render(&buf, len(data), compressed, opts.symbol()); err != nil {
		return Stats{}, err
	}
	if err := writeFileAtomic(destPath, buf.Bytes()); err != nil {
		return Stats{}, &WriteError{Path: destPath, Err: err}
	}

	sum := blake3.Sum256(data)
	return Stats{
		OriginalBytes:   len(data),
		CompressedBytes: len(compressed),
		Digest:          hex.EncodeToString(sum[:]),
	}, nil
}

// writeFileAtomic writes data next to path and renames it into place so
// readers never observe a partially written header.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
