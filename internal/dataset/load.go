package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/jikanwari/internal/model"
)

// jsVarName is the variable the generated JS data file assigns.
const jsVarName = "timetableData"

// Load reads records from path. The format follows the file extension:
// .json, .js (a "const timetableData = [...];" data file), .yaml/.yml or
// .csv (school export, see ImportCSV).
func Load(path string, opts ImportOptions) ([]model.RawRecord, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &Error{Kind: KindMissing, Err: errors.New("no dataset path configured")}
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".csv" {
		f, err := os.Open(path)
		if err != nil {
			return nil, &Error{Kind: KindMissing, Path: path, Err: err}
		}
		defer func() {
			if cerr := f.Close(); cerr != nil {
				// Best-effort close for read-only dataset.
				_ = cerr
			}
		}()
		imp, err := ImportCSV(f, opts)
		if err != nil {
			return nil, withPath(err, path)
		}
		return imp.Records, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Kind: KindMissing, Path: path, Err: err}
	}
	records, err := Decode(data, ext)
	if err != nil {
		return nil, withPath(err, path)
	}
	return records, nil
}

// Decode parses data in the format named by ext and validates it.
func Decode(data []byte, ext string) ([]model.RawRecord, error) {
	var raw []byte
	switch ext {
	case ".json", "":
		raw = data
	case ".js":
		arr, err := extractJSArray(data)
		if err != nil {
			return nil, &Error{Kind: KindMalformed, Err: err}
		}
		raw = arr
	case ".yaml", ".yml":
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, &Error{Kind: KindMalformed, Err: err}
		}
		raw = converted
	default:
		return nil, &Error{Kind: KindMalformed, Err: fmt.Errorf("unsupported dataset format %q", ext)}
	}
	return DecodeJSON(raw)
}

// DecodeJSON validates raw against the record contract and decodes it.
func DecodeJSON(raw []byte) ([]model.RawRecord, error) {
	if err := Validate(raw); err != nil {
		return nil, err
	}
	var records []model.RawRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, &Error{Kind: KindMalformed, Err: err}
	}
	return records, nil
}

// Write encodes records as a JSON array, or as a JS data file when asJS is
// set.
func Write(w io.Writer, records []model.RawRecord, asJS bool) error {
	if records == nil {
		records = []model.RawRecord{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	out := buf.Bytes()
	if asJS {
		out = append([]byte("const "+jsVarName+" = "), bytes.TrimRight(out, "\n")...)
		out = append(out, ";\n"...)
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}
	return nil
}

func extractJSArray(data []byte) ([]byte, error) {
	s := string(data)
	decl := strings.Index(s, jsVarName)
	if decl < 0 {
		return nil, fmt.Errorf("%s is not defined", jsVarName)
	}
	s = s[decl+len(jsVarName):]
	eq := strings.Index(s, "=")
	if eq < 0 {
		return nil, fmt.Errorf("%s has no value", jsVarName)
	}
	s = strings.TrimSpace(s[eq+1:])
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), ";"))
	if !strings.HasPrefix(s, "[") {
		return nil, fmt.Errorf("%s is not an array", jsVarName)
	}
	return []byte(s), nil
}

func yamlToJSON(data []byte) ([]byte, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func withPath(err error, path string) error {
	var dsErr *Error
	if errors.As(err, &dsErr) {
		return &Error{Kind: dsErr.Kind, Path: path, Err: dsErr.Err}
	}
	return &Error{Kind: KindMalformed, Path: path, Err: err}
}
