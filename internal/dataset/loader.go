package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/evdata/evdata/internal/common"
)

// DefaultFile is the dataset read when no file name is given.
const DefaultFile = "Electric_Vehicle_Population_Data.csv"

const csvExt = ".csv"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Encoding turns raw file bytes into UTF-8 text or reports that it cannot.
type Encoding struct {
	Name   string
	Decode func([]byte) ([]byte, error)
}

// DefaultEncodings is tried in order: strict UTF-8, GBK, then ISO-8859-1,
// which accepts any byte sequence.
var DefaultEncodings = []Encoding{UTF8, GBK, Latin1}

var (
	UTF8 = Encoding{Name: "utf-8", Decode: decodeUTF8}
	GBK  = Encoding{Name: "gbk", Decode: xtextDecoder(simplifiedchinese.GBK)}

	Latin1 = Encoding{Name: "latin-1", Decode: xtextDecoder(charmap.ISO8859_1)}
)

func decodeUTF8(b []byte) ([]byte, error) {
	b = bytes.TrimPrefix(b, utf8BOM)
	if !utf8.Valid(b) {
		return nil, errors.New("invalid utf-8 byte sequence")
	}
	return b, nil
}

// xtextDecoder adapts an x/text encoding. Those decoders substitute U+FFFD for
// bytes they cannot map, so a replacement rune in the output counts as failure.
func xtextDecoder(enc encoding.Encoding) func([]byte) ([]byte, error) {
	return func(b []byte) ([]byte, error) {
		out, err := enc.NewDecoder().Bytes(b)
		if err != nil {
			return nil, err
		}
		if bytes.ContainsRune(out, utf8.RuneError) {
			return nil, errors.New("unmappable byte sequence")
		}
		return out, nil
	}
}

// RootDir is the project root: two directories above this package.
// It does not depend on the process working directory.
func RootDir() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "."
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}

type Loader struct {
	Root      string
	Encodings []Encoding
}

func NewLoader(root string) *Loader {
	if root == "" {
		root = RootDir()
	}
	return &Loader{Root: root, Encodings: DefaultEncodings}
}

// Path resolves name against the loader root.
func (l *Loader) Path(name string) string {
	if name == "" {
		name = DefaultFile
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(l.Root, name)
}

// Load reads and parses a CSV file. The first encoding that both decodes the
// bytes and yields a parseable table wins.
func (l *Loader) Load(name string) (*Table, error) {
	path := l.Path(name)

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, common.NotFoundf("dataset file %s does not exist", path)
		}
		return nil, fmt.Errorf("stat dataset: %w", err)
	}
	if info.IsDir() {
		return nil, common.NotFoundf("dataset path %s is a directory", path)
	}
	if !strings.EqualFold(filepath.Ext(path), csvExt) {
		return nil, common.UnsupportedFormatf("only CSV files are supported, got %s", filepath.Base(path))
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	encodings := l.Encodings
	if len(encodings) == 0 {
		encodings = DefaultEncodings
	}

	var lastErr error
	for _, enc := range encodings {
		text, err := enc.Decode(raw)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", enc.Name, err)
			continue
		}
		t, err := parseCSV(text)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", enc.Name, err)
			continue
		}
		t.Encoding = enc.Name
		return t, nil
	}
	return nil, common.Decodef(lastErr, "could not decode %s with any of %d encodings", filepath.Base(path), len(encodings))
}

func parseCSV(text []byte) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(text))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.New("file has no header row")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		if isBlank(row) {
			continue
		}
		rows = append(rows, row)
	}
	return NewTable(columns, rows), nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
