// Package source loads LaTeX source trees from directories and archives
// into an ordered corpus.
//
// Loading is lenient: invalid UTF-8 is dropped, text is NFC-normalised and
// line endings become "\n". Corpus keys are forward-slash paths relative
// to the directory or archive root.
package source

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/dshills/texmerge/internal/expander"
	"github.com/dshills/texmerge/pkg/types"
)

// Format is the kind of input a path holds.
type Format string

// Supported input formats
const (
	FormatDir   Format = "dir"
	FormatTar   Format = "tar"
	FormatTarGz Format = "tar.gz"
	FormatZip   Format = "zip"
	FormatFile  Format = "file"
)

// DefaultExtensions are the file suffixes loaded into a corpus.
var DefaultExtensions = []string{".tex"}

// DefaultMaxFileSize caps a single source file.
const DefaultMaxFileSize = 10 << 20

// ErrUnsupportedFormat is returned for inputs that are neither a
// directory, a supported archive nor a source file.
var ErrUnsupportedFormat = errors.New("unsupported input format")

// Options controls which files are loaded.
type Options struct {
	Extensions  []string // file suffixes to keep (default: DefaultExtensions)
	MaxFileSize int64    // larger files are skipped (default: DefaultMaxFileSize)
}

func (o *Options) defaults() {
	if len(o.Extensions) == 0 {
		o.Extensions = DefaultExtensions
	}
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = DefaultMaxFileSize
	}
}

func (o *Options) wanted(name string) bool {
	lo := strings.ToLower(name)
	for _, ext := range o.Extensions {
		if strings.HasSuffix(lo, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// Detect returns the input format of p.
func Detect(p string) (Format, error) {
	info, err := os.Stat(p)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", p, err)
	}
	if info.IsDir() {
		return FormatDir, nil
	}

	lo := strings.ToLower(p)
	switch {
	case strings.HasSuffix(lo, ".tar.gz"), strings.HasSuffix(lo, ".tgz"):
		return FormatTarGz, nil
	case strings.HasSuffix(lo, ".tar"):
		return FormatTar, nil
	case strings.HasSuffix(lo, ".zip"):
		return FormatZip, nil
	case strings.HasSuffix(lo, ".tex"):
		return FormatFile, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(p))
	}
}

// Load reads p as a directory, archive or single source file.
func Load(p string, opts Options) (*types.Corpus, error) {
	format, err := Detect(p)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatDir:
		return LoadDir(p, opts)
	case FormatTar, FormatTarGz, FormatZip:
		return LoadArchive(p, opts)
	default:
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		return types.NewCorpus(types.SourceFile{Name: filepath.Base(p), Content: Decode(data)}), nil
	}
}

// LoadDir walks root and loads matching files in lexical path order.
// Hidden directories are skipped.
func LoadDir(root string, opts Options) (*types.Corpus, error) {
	opts.defaults()

	var names []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !opts.wanted(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > opts.MaxFileSize {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.Strings(names)
	corpus := types.NewCorpus()
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(name)))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		corpus.Add(name, Decode(data))
	}
	return corpus, nil
}

// LoadArchive loads matching entries of a tar, tar.gz or zip archive in
// archive order.
func LoadArchive(p string, opts Options) (*types.Corpus, error) {
	opts.defaults()

	format, err := Detect(p)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatZip:
		return loadZip(p, opts)
	case FormatTar, FormatTarGz:
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", p, err)
		}
		defer func() { _ = f.Close() }()

		var r io.Reader = f
		if format == FormatTarGz {
			gz, err := gzip.NewReader(f)
			if err != nil {
				return nil, fmt.Errorf("gzip %s: %w", p, err)
			}
			defer func() { _ = gz.Close() }()
			r = gz
		}
		return loadTar(r, opts)
	default:
		return nil, fmt.Errorf("%w: %s is not an archive", ErrUnsupportedFormat, p)
	}
}

func loadTar(r io.Reader, opts Options) (*types.Corpus, error) {
	corpus := types.NewCorpus()
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return corpus, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read tar: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name, ok := entryName(hdr.Name)
		if !ok || !opts.wanted(name) || hdr.Size > opts.MaxFileSize {
			continue
		}
		data, err := io.ReadAll(io.LimitReader(tr, opts.MaxFileSize))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		corpus.Add(name, Decode(data))
	}
}

func loadZip(p string, opts Options) (*types.Corpus, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open zip %s: %w", p, err)
	}
	defer func() { _ = zr.Close() }()

	corpus := types.NewCorpus()
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name, ok := entryName(f.Name)
		if !ok || !opts.wanted(name) || int64(f.UncompressedSize64) > opts.MaxFileSize {
			continue
		}
		data, err := readZipFile(f, opts.MaxFileSize)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		corpus.Add(name, Decode(data))
	}
	return corpus, nil
}

func readZipFile(f *zip.File, limit int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(io.LimitReader(rc, limit))
}

// entryName cleans an archive entry name into a corpus key. Entries that
// escape the archive root are rejected.
func entryName(raw string) (string, bool) {
	name := path.Clean(strings.TrimLeft(strings.ReplaceAll(raw, `\`, "/"), "/"))
	if name == "." || name == ".." || strings.HasPrefix(name, "../") {
		return "", false
	}
	return name, true
}

// Decode turns raw file bytes into corpus text.
func Decode(data []byte) string {
	s := strings.ToValidUTF8(string(data), "")
	s = strings.TrimPrefix(s, "\uFEFF")
	s = norm.NFC.String(s)
	return expander.NormalizeNewlines(s)
}

// ContentHash returns a hex SHA-256 digest over the names and contents of
// corpus in order. Equal corpora hash equally.
func ContentHash(corpus *types.Corpus) string {
	h := sha256.New()
	for _, f := range corpus.Files() {
		_, _ = io.WriteString(h, f.Name)
		_, _ = h.Write([]byte{0})
		_, _ = io.WriteString(h, f.Content)
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// HashBytes returns the hex SHA-256 digest of b.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
