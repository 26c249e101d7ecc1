// Package parser decodes dataset files into named-column rows.
package parser

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/lineagemap/internal/models"
)

// ErrUnsupportedFormat is returned for formats that need the duckdb engine.
var ErrUnsupportedFormat = errors.New("parser: unsupported format")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse decodes data according to format ("csv", "yaml" or "json").
// Cell values are kept exactly as written in the file.
func Parse(format string, data []byte) ([]models.Row, error) {
	switch format {
	case "csv":
		return parseCSV(data)
	case "yaml":
		return parseYAML(data)
	case "json":
		return parseJSON(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// parseCSV reads a header line followed by records. Records shorter than the
// header leave the trailing columns absent; extra fields are ignored.
func parseCSV(data []byte) ([]models.Row, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return []models.Row{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parser: csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows := []models.Row{}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parser: csv record: %w", err)
		}
		row := make(models.Row, len(header))
		for i, col := range header {
			if i >= len(rec) || col == "" {
				continue
			}
			row[col] = rec[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseYAML accepts either a sequence of mappings or a mapping with a
// "rows" sequence. Scalars keep their source text, so 0123 stays "0123";
// null values leave the column absent.
func parseYAML(data []byte) ([]models.Row, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parser: yaml: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return []models.Row{}, nil
	}

	seq := resolveAlias(doc.Content[0])
	if seq.Kind == yaml.MappingNode {
		seq = nil
		for i := 0; i+1 < len(doc.Content[0].Content); i += 2 {
			if doc.Content[0].Content[i].Value == "rows" {
				seq = resolveAlias(doc.Content[0].Content[i+1])
				break
			}
		}
		if seq == nil {
			return []models.Row{}, nil
		}
	}
	if seq.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("parser: yaml: expected a sequence of rows")
	}

	rows := make([]models.Row, 0, len(seq.Content))
	for i, item := range seq.Content {
		item = resolveAlias(item)
		if item.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("parser: yaml row %d: expected a mapping", i)
		}
		row := make(models.Row, len(item.Content)/2)
		for j := 0; j+1 < len(item.Content); j += 2 {
			key := item.Content[j].Value
			val := resolveAlias(item.Content[j+1])
			if val.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("parser: yaml row %d: column %q is not a scalar", i, key)
			}
			if val.ShortTag() == "!!null" {
				continue
			}
			row[key] = val.Value
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

// parseJSON accepts an array of objects or an object with a "rows" array.
// Numbers keep their literal text; null leaves the column absent.
func parseJSON(data []byte) ([]models.Row, error) {
	data = bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))
	if len(data) == 0 {
		return []models.Row{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parser: json: %w", err)
	}

	if m, ok := doc.(map[string]any); ok {
		doc = m["rows"]
		if doc == nil {
			return []models.Row{}, nil
		}
	}
	items, ok := doc.([]any)
	if !ok {
		return nil, fmt.Errorf("parser: json: expected an array of rows")
	}

	rows := make([]models.Row, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("parser: json row %d: expected an object", i)
		}
		row := make(models.Row, len(obj))
		for k, v := range obj {
			switch t := v.(type) {
			case nil:
			case string:
				row[k] = t
			case json.Number:
				row[k] = t.String()
			case bool:
				row[k] = fmt.Sprint(t)
			default:
				return nil, fmt.Errorf("parser: json row %d: column %q is not a scalar", i, k)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
