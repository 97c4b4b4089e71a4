package actions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"
)

// File is the on-disk layout of an action catalog.
//
//	actions:
//	  - name: Screenshot
//	    trigger: Share+Capture
//	    type: send-key
//	    details: "44"
//	profiles:
//	  default: [Disconnect Controller, Screenshot]
type File struct {
	Actions  []FileAction        `json:"actions" yaml:"actions" toml:"actions"`
	Profiles map[string][]string `json:"profiles,omitempty" yaml:"profiles,omitempty" toml:"profiles,omitempty"`
}

// FileAction is one action entry in a catalog file.
type FileAction struct {
	Name    string `json:"name" yaml:"name" toml:"name"`
	Trigger string `json:"trigger" yaml:"trigger" toml:"trigger"`
	Type    string `json:"type" yaml:"type" toml:"type"`
	Details string `json:"details,omitempty" yaml:"details,omitempty" toml:"details,omitempty"`
}

// Profiles maps a profile name to the action names enabled in it.
type Profiles map[string][]string

// Names returns the sorted profile names.
func (p Profiles) Names() []string {
	out := make([]string, 0, len(p))
	for k := range p {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// LoadFile reads a YAML, TOML or JSON catalog chosen by file extension. The
// default disconnect action is added when the file does not define it.
func LoadFile(path string) (*Catalog, Profiles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read action catalog: %w", err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	c, p, err := Parse(data, format)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, p, nil
}

// Parse decodes a catalog in the given format (json, yaml/yml or toml).
func Parse(data []byte, format string) (*Catalog, Profiles, error) {
	var f File
	var err error
	switch format {
	case "json":
		err = json.Unmarshal(data, &f)
	case "yaml", "yml":
		err = yaml.Unmarshal(data, &f)
	case "toml":
		err = toml.Unmarshal(data, &f)
	default:
		return nil, nil, fmt.Errorf("unsupported catalog format %q", format)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", format, err)
	}

	descs := make([]Descriptor, 0, len(f.Actions))
	for _, a := range f.Actions {
		kind, err := ParseKind(a.Type)
		if err != nil {
			return nil, nil, fmt.Errorf("action %q: %w", a.Name, err)
		}
		trigger, err := ParseChord(a.Trigger)
		if err != nil {
			return nil, nil, fmt.Errorf("action %q: %w", a.Name, err)
		}
		descs = append(descs, Descriptor{
			Name:    a.Name,
			Trigger: trigger,
			Kind:    kind,
			Details: a.Details,
		})
	}
	c, err := NewCatalog(descs)
	if err != nil {
		return nil, nil, err
	}

	profiles := Profiles{}
	for name, list := range f.Profiles {
		names := make([]string, 0, len(list))
		for _, n := range list {
			if n = NormalizeName(n); n != "" {
				names = append(names, n)
			}
		}
		profiles[name] = names
	}
	return c.WithDefault(), profiles, nil
}

// Export converts a catalog back to its file form.
func Export(c *Catalog, p Profiles) File {
	f := File{Profiles: p}
	for _, d := range c.All() {
		f.Actions = append(f.Actions, FileAction{
			Name:    d.Name,
			Trigger: d.Trigger.String(),
			Type:    d.Kind.String(),
			Details: d.Details,
		})
	}
	return f
}
