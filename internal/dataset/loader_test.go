package dataset_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/evdata/evdata/internal/common"
	"github.com/evdata/evdata/internal/dataset"
	"github.com/evdata/evdata/internal/dataset/datasettest"
)

func TestRootDir_ContainsGoMod(t *testing.T) {
	root := dataset.RootDir()
	_, err := os.Stat(filepath.Join(root, "go.mod"))
	assert.NoError(t, err, "root %s should be the module root", root)
}

func TestLoad_DefaultFile(t *testing.T) {
	dir := datasettest.WriteSample(t, dataset.DefaultFile)

	tbl, err := dataset.NewLoader(dir).Load("")
	require.NoError(t, err)

	assert.Equal(t, datasettest.SampleRows, tbl.Len())
	assert.Equal(t, "utf-8", tbl.Encoding)
	assert.Contains(t, tbl.Columns, dataset.ColMake)
	v, ok := tbl.Value(0, dataset.ColMake)
	assert.True(t, ok)
	assert.Equal(t, "TESLA", v)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := dataset.NewLoader(t.TempDir()).Load("missing.csv")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	datasettest.WriteFile(t, dir, "data.xlsx", "not a csv")

	_, err := dataset.NewLoader(dir).Load("data.xlsx")
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
}

func TestLoad_UppercaseExtension(t *testing.T) {
	dir := t.TempDir()
	datasettest.WriteFile(t, dir, "DATA.CSV", datasettest.Sample)

	tbl, err := dataset.NewLoader(dir).Load("DATA.CSV")
	require.NoError(t, err)
	assert.Equal(t, datasettest.SampleRows, tbl.Len())
}

func TestLoad_GBKFallback(t *testing.T) {
	text := "Make,Model,State,City\n比亚迪,汉,WA,西雅图\n"
	encoded, err := simplifiedchinese.GBK.NewEncoder().String(text)
	require.NoError(t, err)

	dir := t.TempDir()
	datasettest.WriteFile(t, dir, "gbk.csv", encoded)

	tbl, err := dataset.NewLoader(dir).Load("gbk.csv")
	require.NoError(t, err)
	assert.Equal(t, "gbk", tbl.Encoding)
	v, _ := tbl.Value(0, "City")
	assert.Equal(t, "西雅图", v)
}

func TestLoad_Latin1Fallback(t *testing.T) {
	encoded, err := charmap.ISO8859_1.NewEncoder().String("Make,City\nRenault,Bogotá\n")
	require.NoError(t, err)
	// A trailing 0xFF is invalid in both UTF-8 and GBK.
	encoded += "KIA,Bogot\xff\n"

	dir := t.TempDir()
	datasettest.WriteFile(t, dir, "latin.csv", encoded)

	tbl, err := dataset.NewLoader(dir).Load("latin.csv")
	require.NoError(t, err)
	assert.Equal(t, "latin-1", tbl.Encoding)
	v, _ := tbl.Value(0, "City")
	assert.Equal(t, "Bogotá", v)
}

func TestLoad_DecodeError(t *testing.T) {
	dir := t.TempDir()
	datasettest.WriteFile(t, dir, "bad.csv", "Make\n\xff\xfe\n")

	l := dataset.NewLoader(dir)
	l.Encodings = []dataset.Encoding{dataset.UTF8}

	_, err := l.Load("bad.csv")
	assert.ErrorIs(t, err, common.ErrDecode)
}

func TestLoad_EmptyFileIsDecodeError(t *testing.T) {
	dir := t.TempDir()
	datasettest.WriteFile(t, dir, "empty.csv", "")

	_, err := dataset.NewLoader(dir).Load("empty.csv")
	assert.ErrorIs(t, err, common.ErrDecode)
}

func TestLoad_BOMStripped(t *testing.T) {
	dir := t.TempDir()
	datasettest.WriteFile(t, dir, "bom.csv", "\xEF\xBB\xBFMake,Model\nKIA,EV6\n")

	tbl, err := dataset.NewLoader(dir).Load("bom.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"Make", "Model"}, tbl.Columns)
}

func TestLoad_RaggedRows(t *testing.T) {
	dir := t.TempDir()
	datasettest.WriteFile(t, dir, "ragged.csv", "Make,Model,State\nKIA,EV6\n\nAUDI,Q4,WA,extra\n")

	tbl, err := dataset.NewLoader(dir).Load("ragged.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())

	_, ok := tbl.Value(0, "State")
	assert.False(t, ok)
	v, ok := tbl.Value(1, "State")
	assert.True(t, ok)
	assert.Equal(t, "WA", v)
}
