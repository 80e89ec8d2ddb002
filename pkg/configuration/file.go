package configuration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// JSONFile is a settings file. Files ending in .yaml or .yml are parsed as
// YAML; everything else as JSON.
type JSONFile struct {
	Path     string
	Optional bool

	// Schema is an optional JSON schema document the file must satisfy.
	Schema string
}

func (f JSONFile) Name() string {
	return "file:" + filepath.Base(f.Path)
}

func (f JSONFile) Build(basePath string) (Provider, error) {
	path := f.Path
	if !filepath.IsAbs(path) && basePath != "" {
		path = filepath.Join(basePath, path)
	}

	return NewMapProvider(func(ctx context.Context, data *Map) error {
		raw, err := os.ReadFile(path)
		if err != nil {
			if f.Optional && errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return fmt.Errorf("failed to read settings file %s: %w", path, err)
		}

		doc, err := decodeDocument(path, raw)
		if err != nil {
			return err
		}

		if f.Schema != "" {
			if err := validateSchema(doc, f.Schema); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		}

		Flatten(doc, data)
		return nil
	}), nil
}

func decodeDocument(path string, raw []byte) (map[string]any, error) {
	doc := make(map[string]any)
	if len(bytes.TrimSpace(raw)) == 0 {
		return doc, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML %s: %w", path, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse JSON %s: %w", path, err)
		}
	}
	return doc, nil
}

func validateSchema(doc map[string]any, schema string) error {
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal data for validation: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(jsonData),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		var errorMessages []string
		for _, desc := range result.Errors() {
			errorMessages = append(errorMessages, desc.String())
		}
		return fmt.Errorf("schema validation failed:\n  - %s", strings.Join(errorMessages, "\n  - "))
	}
	return nil
}

// Flatten writes a nested document into data using ':' separated keys.
// Array elements are keyed by index and null values are dropped.
func Flatten(doc map[string]any, data *Map) {
	flattenInto("", doc, data)
}

func flattenInto(prefix string, v any, data *Map) {
	join := func(k string) string {
		if prefix == "" {
			return k
		}
		return prefix + ":" + k
	}

	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flattenInto(join(k), val[k], data)
		}
	case []any:
		for i, child := range val {
			flattenInto(join(strconv.Itoa(i)), child, data)
		}
	case nil:
	default:
		if prefix != "" {
			data.Set(prefix, scalarString(val))
		}
	}
}

func scalarString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
