package source

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/texmerge/pkg/types"
)

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

type entry struct {
	name    string
	content string
}

func writeTar(t *testing.T, w io.Writer, entries []entry) {
	t.Helper()
	tw := tar.NewWriter(w)
	for _, e := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     e.name,
			Mode:     0644,
			Size:     int64(len(e.content)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(e.content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
}

var archiveEntries = []entry{
	{"paper/main.tex", "\\input{intro}"},
	{"paper/intro.tex", "Intro"},
	{"paper/figure.png", "binary"},
	{"./paper/zeta.tex", "Z"},
}

func TestDetect(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"a.tar", "b.tgz", "c.tar.gz", "d.zip", "e.tex", "f.pdf"} {
		writeFile(t, dir, n, "")
	}

	tests := []struct {
		name string
		want Format
	}{
		{"a.tar", FormatTar},
		{"b.tgz", FormatTarGz},
		{"c.tar.gz", FormatTarGz},
		{"d.zip", FormatZip},
		{"e.tex", FormatFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Detect(filepath.Join(dir, tt.name))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	got, err := Detect(dir)
	require.NoError(t, err)
	assert.Equal(t, FormatDir, got)

	_, err = Detect(filepath.Join(dir, "f.pdf"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Detect(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.tex", "\\documentclass{article}\r\n")
	writeFile(t, dir, "sec/b.tex", "B")
	writeFile(t, dir, "sec/a.TEX", "A")
	writeFile(t, dir, "notes.txt", "skip")
	writeFile(t, dir, ".git/x.tex", "hidden")

	c, err := LoadDir(dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"main.tex", "sec/a.TEX", "sec/b.tex"}, c.Names())

	main, ok := c.Get("main.tex")
	require.True(t, ok)
	assert.Equal(t, "\\documentclass{article}\n", main)
}

func TestLoadDir_ExtensionsAndSizeLimit(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.tex", "small")
	writeFile(t, dir, "b.ltx", "other")
	writeFile(t, dir, "big.tex", "0123456789")

	c, err := LoadDir(dir, Options{Extensions: []string{".tex", ".ltx"}, MaxFileSize: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.tex", "b.ltx"}, c.Names())
}

func TestLoadArchive_Tar(t *testing.T) {
	p := filepath.Join(t.TempDir(), "src.tar")
	f, err := os.Create(p)
	require.NoError(t, err)
	writeTar(t, f, archiveEntries)
	require.NoError(t, f.Close())

	c, err := LoadArchive(p, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"paper/main.tex", "paper/intro.tex", "paper/zeta.tex"}, c.Names())
}

func TestLoadArchive_TarGz(t *testing.T) {
	p := filepath.Join(t.TempDir(), "src.tar.gz")
	f, err := os.Create(p)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	writeTar(t, gz, archiveEntries)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	c, err := Load(p, Options{})
	require.NoError(t, err)
	intro, ok := c.Get("paper/intro.tex")
	require.True(t, ok)
	assert.Equal(t, "Intro", intro)
}

func TestLoadArchive_Zip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "src.zip")
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, e := range archiveEntries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(e.content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	c, err := Load(p, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"paper/main.tex", "paper/intro.tex", "paper/zeta.tex"}, c.Names())
}

func TestLoadArchive_NotAnArchive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.tex", "x")

	_, err := LoadArchive(filepath.Join(dir, "main.tex"), Options{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoad_SingleFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "paper.tex", "body")

	c, err := Load(filepath.Join(dir, "paper.tex"), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"paper.tex"}, c.Names())
}

func TestEntryName(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"paper/main.tex", "paper/main.tex", true},
		{"./a//b.tex", "a/b.tex", true},
		{"/abs.tex", "abs.tex", true},
		{"win\\sec.tex", "win/sec.tex", true},
		{"../escape.tex", "", false},
		{"a/../../x.tex", "", false},
		{".", "", false},
	}
	for _, tt := range tests {
		got, ok := entryName(tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"plain", []byte("abc"), "abc"},
		{"invalid utf8 dropped", []byte("a\xffb"), "ab"},
		{"bom stripped", []byte("\xef\xbb\xbfx"), "x"},
		{"nfc", []byte("e\u0301"), "\u00e9"},
		{"newlines", []byte("a\r\nb\rc"), "a\nb\nc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode(tt.in))
		})
	}
}

func TestContentHash(t *testing.T) {
	a := types.NewCorpus(types.SourceFile{Name: "a", Content: "bc"})
	b := types.NewCorpus(types.SourceFile{Name: "ab", Content: "c"})
	a2 := types.NewCorpus(types.SourceFile{Name: "a", Content: "bc"})

	assert.Equal(t, ContentHash(a), ContentHash(a2))
	assert.NotEqual(t, ContentHash(a), ContentHash(b))
	assert.Len(t, ContentHash(a), 64)
	assert.Len(t, ContentHash(types.NewCorpus()), 64)
}

func TestHashBytes(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", HashBytes(nil))
}
