package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/riskscope/pkg/normalize"
)

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan.zip")
	f, err := os.Create(path)
	require.NoError(t, err)

	w := zip.NewWriter(f)
	for name, body := range entries {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	return path
}

func TestExtractAndCollect(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"b/scan.xml":   "<scan/>",
		"a/scan.json":  "{}",
		"notes.txt":    "hello",
		"c/report.XML": "<x/>",
	})

	dest := filepath.Join(t.TempDir(), "out")
	dir, err := Extract(zipPath, dest)
	require.NoError(t, err)

	docs, skipped, err := Collect(dir)
	require.NoError(t, err)

	require.Len(t, docs, 3)
	assert.Equal(t, filepath.Join("a", "scan.json"), docs[0].Name)
	assert.Equal(t, normalize.FormatJSON, docs[0].Format)
	assert.Equal(t, filepath.Join("b", "scan.xml"), docs[1].Name)
	assert.Equal(t, "<scan/>", string(docs[1].Content))
	assert.Equal(t, normalize.FormatXML, docs[2].Format)
	assert.Equal(t, "scan.json", docs[0].Source())
	assert.Equal(t, []string{"notes.txt"}, skipped)
}

func TestExtractToTempDir(t *testing.T) {
	zipPath := writeZip(t, map[string]string{"x.json": "[]"})
	dir, err := Extract(zipPath, "")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	assert.Contains(t, filepath.Base(dir), "riskscope-")
	assert.FileExists(t, filepath.Join(dir, "x.json"))
}

func TestExtractRejectsTraversal(t *testing.T) {
	zipPath := writeZip(t, map[string]string{"../../evil.json": "{}"})
	_, err := Extract(zipPath, t.TempDir())
	assert.ErrorIs(t, err, ErrUnsafePath)
}

func TestExtractRemovesTempDirOnFailure(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"ok.json":        "{}",
		"../escape.json": "{}",
	})
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	_, err := Extract(zipPath, "")
	assert.ErrorIs(t, err, ErrUnsafePath)

	_, err = Load([]string{zipPath})
	assert.ErrorIs(t, err, ErrUnsafePath)

	left, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestExtractKeepsCallerDirOnFailure(t *testing.T) {
	zipPath := writeZip(t, map[string]string{"../escape.json": "{}"})
	dest := filepath.Join(t.TempDir(), "out")

	_, err := Extract(zipPath, dest)
	assert.ErrorIs(t, err, ErrUnsafePath)
	assert.DirExists(t, dest)
}

func TestExtractNotZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.zip")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a zip"), 0644))
	_, err := Extract(path, t.TempDir())
	assert.ErrorIs(t, err, ErrNotZip)
}

func TestLoadMixedInputs(t *testing.T) {
	dir := t.TempDir()
	single := filepath.Join(dir, "single.json")
	require.NoError(t, os.WriteFile(single, []byte(`{"vulnerabilities": []}`), 0644))
	other := filepath.Join(dir, "readme.md")
	require.NoError(t, os.WriteFile(other, []byte("#"), 0644))

	zipPath := writeZip(t, map[string]string{"inner.xml": "<scan/>"})

	in, err := Load([]string{single, zipPath, other})
	require.NoError(t, err)

	require.Len(t, in.Documents, 2)
	assert.Equal(t, "single.json", in.Documents[0].Source())
	assert.Equal(t, "inner.xml", in.Documents[1].Source())
	assert.Equal(t, []string{other}, in.Skipped)

	require.Len(t, in.tempDirs, 1)
	extracted := in.tempDirs[0]
	in.Cleanup()
	assert.NoDirExists(t, extracted)
}

func TestLoadMissingPath(t *testing.T) {
	_, err := Load([]string{filepath.Join(t.TempDir(), "nope.json")})
	assert.Error(t, err)
}
