// Package schema loads table templates from YAML or JSON files and keeps
// them current while the file changes on disk.
package schema

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"slices"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/gridcell/pkg/core"
)

// Parse decodes a template document. Field types are matched leniently;
// unknown type names decode as Text and are reported through logger.
func Parse(data []byte, logger *slog.Logger) (*core.Template, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, errors.New("parse template: empty document")
	}

	var raw map[string]any
	if err := doc.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	var unknown []string
	var tpl core.Template
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: fieldTypeHook(&unknown),
		Result:     &tpl,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode template: %w", err)
	}
	if tpl.Tables == nil {
		tpl.Tables = make(map[string]*core.TableSchema)
	}
	for name, ts := range tpl.Tables {
		if ts == nil {
			tpl.Tables[name] = &core.TableSchema{}
		}
	}

	for table, order := range fieldOrder(doc.Content[0]) {
		if ts, ok := tpl.Tables[table]; ok {
			ts.FieldOrder = order
		}
	}

	slices.Sort(unknown)
	for _, name := range slices.Compact(unknown) {
		logger.Warn("unknown field type, using Text", "type", name)
	}
	return &tpl, nil
}

// Load reads and parses the template at path.
func Load(path string, logger *slog.Logger) (*core.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	tpl, err := Parse(data, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tpl, nil
}

var fieldTypeType = reflect.TypeOf(core.FieldType(""))

// fieldTypeHook maps schema type names onto known field types.
func fieldTypeHook(unknown *[]string) mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data any) (any, error) {
		if to != fieldTypeType || from.Kind() != reflect.String {
			return data, nil
		}
		name, _ := data.(string)
		ft, ok := core.ParseFieldType(name)
		if !ok {
			*unknown = append(*unknown, name)
		}
		return ft, nil
	}
}

// fieldOrder reads the declaration order of each table's fields from the
// document tree, which the decoded maps lose.
func fieldOrder(root *yaml.Node) map[string][]string {
	out := make(map[string][]string)
	tables := mappingValue(root, "tables")
	if tables == nil || tables.Kind != yaml.MappingNode {
		return out
	}
	for i := 0; i+1 < len(tables.Content); i += 2 {
		name := tables.Content[i].Value
		fields := mappingValue(tables.Content[i+1], "fields")
		if fields == nil || fields.Kind != yaml.MappingNode {
			continue
		}
		order := make([]string, 0, len(fields.Content)/2)
		for j := 0; j+1 < len(fields.Content); j += 2 {
			order = append(order, fields.Content[j].Value)
		}
		out[name] = order
	}
	return out
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}
