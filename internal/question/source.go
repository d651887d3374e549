package question

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lister enumerates the available banks.
type Lister interface {
	Subjects(ctx context.Context) ([]string, error)
	Topics(ctx context.Context, subject string) ([]string, error)
}

// Source yields raw bank records and the catalog of available banks.
type Source interface {
	Lister
	Records(ctx context.Context, id BankID) ([]Record, error)
}

var bankExtensions = []string{".csv", ".yaml", ".yml"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DirSource reads banks laid out as <root>/<topic>.csv for root topics and
// <root>/<subject>/<topic>.csv for subject topics. YAML banks (.yaml/.yml)
// are accepted next to CSV ones.
type DirSource struct {
	root string
}

var _ Source = (*DirSource)(nil)

func NewDirSource(root string) *DirSource {
	return &DirSource{root: root}
}

// Records loads every row of a bank. Rows the CSV reader cannot parse are
// dropped; only a missing bank or an I/O failure is an error.
func (d *DirSource) Records(ctx context.Context, id BankID) ([]Record, error) {
	path, err := d.resolve(id)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bank %s: %w", id, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	switch filepath.Ext(path) {
	case ".csv":
		return parseCSV(data)
	default:
		return parseYAML(data)
	}
}

// Subjects lists the subject directories under the root.
func (d *DirSource) Subjects(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	var subjects []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			subjects = append(subjects, e.Name())
		}
	}
	sort.Strings(subjects)
	return subjects, nil
}

// Topics lists the banks of a subject; an empty subject lists root topics.
func (d *DirSource) Topics(_ context.Context, subject string) ([]string, error) {
	dir := d.root
	if subject != "" {
		if !validLabel(subject) {
			return nil, ErrNotFound
		}
		dir = filepath.Join(d.root, subject)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("list topics: %w", err)
	}

	seen := make(map[string]struct{})
	var topics []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if !isBankExt(ext) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ext)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		topics = append(topics, name)
	}
	sort.Strings(topics)
	return topics, nil
}

func (d *DirSource) resolve(id BankID) (string, error) {
	if !validLabel(id.Topic) || (id.Subject != "" && !validLabel(id.Subject)) {
		return "", ErrNotFound
	}
	dir := d.root
	if id.Subject != "" {
		dir = filepath.Join(d.root, id.Subject)
	}
	for _, ext := range bankExtensions {
		path := filepath.Join(dir, id.Topic+ext)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}
	return "", ErrNotFound
}

func validLabel(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, `/\`) && !strings.Contains(s, "..")
}

func isBankExt(ext string) bool {
	for _, e := range bankExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func parseCSV(data []byte) ([]Record, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	field := func(row []string, name string) string {
		if i, ok := cols[name]; ok && i < len(row) {
			return row[i]
		}
		return ""
	}

	var records []Record
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}

		rec := Record{
			Prompt: field(row, "question"),
			Answer: field(row, "answer"),
		}
		for i := 1; i <= MaxOptions; i++ {
			rec.Options = append(rec.Options, field(row, fmt.Sprintf("option%d", i)))
		}
		records = append(records, rec)
	}
	return records, nil
}

type yamlRow struct {
	Question string   `yaml:"question"`
	Option1  string   `yaml:"option1"`
	Option2  string   `yaml:"option2"`
	Option3  string   `yaml:"option3"`
	Option4  string   `yaml:"option4"`
	Options  []string `yaml:"options"`
	Answer   string   `yaml:"answer"`
}

func parseYAML(data []byte) ([]Record, error) {
	var rows []yamlRow
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode yaml bank: %w", err)
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		opts := row.Options
		if len(opts) == 0 {
			opts = []string{row.Option1, row.Option2, row.Option3, row.Option4}
		}
		records = append(records, Record{
			Prompt:  row.Question,
			Options: opts,
			Answer:  row.Answer,
		})
	}
	return records, nil
}
