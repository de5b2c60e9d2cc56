package benchconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Collect loads the configuration source at path and returns the
// qualifying configurations in source order. The format is selected by
// extension: .yaml/.yml is decoded as YAML, everything else as TOML.
// Entries that are not mappings or whose name lacks the bench_ prefix
// are skipped. A source with no qualifying entries fails with a
// ConfigurationError.
func Collect(path string) ([]RunConfig, error) {
	var (
		cfgs []RunConfig
		err  error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		cfgs, err = collectYAML(path)
	default:
		cfgs, err = collectTOML(path)
	}

	if err != nil {
		return nil, err
	}

	if len(cfgs) == 0 {
		return nil, &ConfigurationError{
			Msg: fmt.Sprintf("no configurations found in %s: "+
				"entries must be tables named %s<title>", path, Prefix),
		}
	}

	seen := make(map[string]bool, len(cfgs))

	for _, c := range cfgs {
		if seen[c.Title] {
			return nil, &ConfigurationError{
				Msg: fmt.Sprintf("duplicate configuration title %q in %s",
					c.Title, path),
			}
		}

		seen[c.Title] = true
	}

	return cfgs, nil
}

func collectTOML(path string) ([]RunConfig, error) {
	var raw map[string]toml.Primitive

	md, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, &SourceLoadError{Path: path, Err: err}
	}

	var cfgs []RunConfig

	for _, key := range md.Keys() {
		if len(key) != 1 || !strings.HasPrefix(key[0], Prefix) {
			continue
		}

		name := key[0]

		var table map[string]toml.Primitive
		if err := md.PrimitiveDecode(raw[name], &table); err != nil {
			// Not configuration-shaped (e.g. bench_x = 5); skip it
			// like any other non-qualifying entry.
			continue
		}

		// md.Keys() reports table fields as [name, field] pairs in
		// file order, which fixes the pass-through argument order.
		cfg := RunConfig{Title: strings.TrimPrefix(name, Prefix)}

		for _, k := range md.Keys() {
			if len(k) != 2 || k[0] != name {
				continue
			}

			field := k[1]

			var v any
			if err := md.PrimitiveDecode(table[field], &v); err != nil {
				return nil, &SourceLoadError{Path: path, Err: err}
			}

			if err := assign(&cfg, name, field, v); err != nil {
				return nil, err
			}
		}

		if err := validate(name, cfg); err != nil {
			return nil, err
		}

		cfgs = append(cfgs, cfg)
	}

	return cfgs, nil
}

func collectYAML(path string) ([]RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &SourceLoadError{Path: path, Err: err}
	}

	// Decode through yaml.Node: mapping order is only observable from
	// the node tree, and the argument order must follow the source.
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &SourceLoadError{Path: path, Err: err}
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, nil
	}

	var cfgs []RunConfig

	for i := 0; i+1 < len(root.Content); i += 2 {
		nameNode, valNode := root.Content[i], root.Content[i+1]
		name := nameNode.Value

		if !strings.HasPrefix(name, Prefix) || valNode.Kind != yaml.MappingNode {
			continue
		}

		cfg := RunConfig{Title: strings.TrimPrefix(name, Prefix)}

		for j := 0; j+1 < len(valNode.Content); j += 2 {
			keyNode, fieldNode := valNode.Content[j], valNode.Content[j+1]

			if fieldNode.Kind != yaml.ScalarNode {
				return nil, &ConfigurationError{
					Msg: fmt.Sprintf("configuration %s: key %q: value must be a scalar",
						name, keyNode.Value),
				}
			}

			if err := assign(&cfg, name, keyNode.Value, fieldNode.Value); err != nil {
				return nil, err
			}
		}

		if err := validate(name, cfg); err != nil {
			return nil, err
		}

		cfgs = append(cfgs, cfg)
	}

	return cfgs, nil
}

// assign routes one source field into cfg: the reserved keys testdir
// and numa_node are consumed, everything else becomes a pass-through
// Param in source order.
func assign(cfg *RunConfig, name, field string, v any) error {
	switch field {
	case "testdir":
		cfg.TestDir = formatValue(v)
	case "numa_node":
		node, err := intValue(v)
		if err != nil {
			return &ConfigurationError{
				Msg: fmt.Sprintf("configuration %s: numa_node must be an integer, got %v",
					name, v),
			}
		}

		cfg.NUMANode = node
		cfg.HasNUMANode = true
	default:
		cfg.Params = append(cfg.Params, Param{Key: field, Value: formatValue(v)})
	}

	return nil
}

func validate(name string, cfg RunConfig) error {
	if cfg.Title == "" {
		return &MissingKeyError{Config: name, Key: "title"}
	}

	if cfg.TestDir == "" {
		return &MissingKeyError{Config: name, Key: "testdir"}
	}

	return nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func intValue(v any) (int, error) {
	switch x := v.(type) {
	case int64:
		return int(x), nil
	case string:
		return strconv.Atoi(x)
	default:
		return 0, fmt.Errorf("not an integer: %v", v)
	}
}
