package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/Alia5/padbridge/internal/configpaths"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"
)

// ConfigCommand groups config-related subcommands.
type ConfigCommand struct {
	Init ConfigInit `cmd:"" help:"Generate a configuration template"`
}

// ConfigInit writes a configuration file holding every bridge flag and its
// default value.
type ConfigInit struct {
	Format string `help:"Output format" enum:"json,yaml,toml" default:"yaml"`
	Output string `help:"Destination file path (defaults to the user config directory)"`
	Force  bool   `help:"Overwrite if the file already exists"`
}

var errConfigExists = errors.New("destination exists; use --force to overwrite")

func (c *ConfigInit) Run() error {
	dest, err := c.write()
	if err != nil {
		return err
	}
	fmt.Println("wrote", dest)
	return nil
}

func (c *ConfigInit) write() (string, error) {
	format := normalizeFormat(c.Format)
	if format == "" {
		return "", fmt.Errorf("unsupported format: %s", c.Format)
	}
	dest := c.Output
	if dest == "" {
		p, err := configpaths.DefaultNamedConfigPath("padbridge", format)
		if err != nil {
			return "", err
		}
		dest = p
	}
	if !c.Force {
		if _, err := os.Stat(dest); err == nil {
			return "", errConfigExists
		}
	}
	data, err := renderConfig(configTemplate(), format)
	if err != nil {
		return "", err
	}
	if err := configpaths.EnsureDir(dest); err != nil {
		return "", err
	}
	return dest, os.WriteFile(dest, data, 0o644)
}

// configTemplate lists the bridge flags grouped by their prefix. Keys use
// underscores, which is how kong resolvers look up hyphenated flags.
func configTemplate() map[string]any {
	out := map[string]any{}
	collectFlags(reflect.TypeOf(Bridge{}), out)
	return out
}

func renderConfig(m map[string]any, format string) ([]byte, error) {
	switch format {
	case "json":
		return json.MarshalIndent(m, "", "  ")
	case "yaml":
		return yaml.Marshal(m)
	case "toml":
		return toml.Marshal(m)
	}
	return nil, fmt.Errorf("unsupported format: %s", format)
}

func normalizeFormat(f string) string {
	switch strings.ToLower(f) {
	case "json":
		return "json"
	case "yaml", "yml":
		return "yaml"
	case "toml":
		return "toml"
	default:
		return ""
	}
}

// snake converts a Go field name to kong's default flag name with
// underscores.
func snake(s string) string {
	r := []rune(s)
	var b strings.Builder
	for i, c := range r {
		if unicode.IsUpper(c) {
			prevLower := i > 0 && !unicode.IsUpper(r[i-1])
			nextLower := i+1 < len(r) && unicode.IsLower(r[i+1])
			if i > 0 && (prevLower || (nextLower && unicode.IsUpper(r[i-1]))) {
				b.WriteByte('_')
			}
			c = unicode.ToLower(c)
		}
		b.WriteRune(c)
	}
	return b.String()
}

func collectFlags(t reflect.Type, out map[string]any) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Tag.Get("kong") == "-" {
			continue
		}
		if _, ok := f.Tag.Lookup("embed"); ok {
			group := out
			if name := strings.TrimSuffix(f.Tag.Get("prefix"), "."); name != "" {
				group = map[string]any{}
				out[name] = group
			}
			collectFlags(f.Type, group)
			continue
		}
		name := f.Tag.Get("name")
		if name == "" {
			name = snake(f.Name)
		}
		if v := defaultValue(f.Type, f.Tag.Get("default")); v != nil {
			out[strings.ReplaceAll(name, "-", "_")] = v
		}
	}
}

func defaultValue(t reflect.Type, def string) any {
	if t.PkgPath() == "time" && t.Name() == "Duration" {
		if def == "" {
			return "0s"
		}
		return def
	}
	switch t.Kind() {
	case reflect.String:
		return def
	case reflect.Slice:
		return []string{}
	case reflect.Bool:
		b, _ := strconv.ParseBool(def)
		return b
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, _ := strconv.ParseInt(def, 0, 64)
		return n
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, _ := strconv.ParseUint(def, 0, 64)
		return n
	case reflect.Float32, reflect.Float64:
		f, _ := strconv.ParseFloat(def, 64)
		return f
	default:
		return nil
	}
}
