// Package catalog lists the Unify REST endpoints the dashboard knows about.
package catalog

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const InstallationPlaceholder = "{installationId}"

var Categories = []string{"core", "operational", "robot", "port", "performance", "battery", "analytics"}

//go:embed endpoints.yaml
var defaultEndpoints []byte

type Endpoint struct {
	Name        string `yaml:"name" json:"name"`
	Path        string `yaml:"path" json:"path"`
	Version     string `yaml:"version" json:"version"`
	Category    string `yaml:"category" json:"category"`
	Description string `yaml:"description" json:"description"`
}

type Catalog struct {
	byName    map[string]Endpoint
	templates []template
}

type template struct {
	name string
	segs []string
}

// Default parses the embedded endpoint list. It panics on a malformed file since the
// file ships with the binary.
func Default() *Catalog {
	c, err := Parse(defaultEndpoints)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded endpoints: %v", err))
	}
	return c
}

func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Endpoints []Endpoint `yaml:"endpoints"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	c := &Catalog{byName: make(map[string]Endpoint, len(doc.Endpoints))}
	for _, ep := range doc.Endpoints {
		if ep.Name == "" || !strings.HasPrefix(ep.Path, "/") {
			return nil, fmt.Errorf("endpoint %q: name and absolute path required", ep.Name)
		}
		if !IsCategory(ep.Category) {
			return nil, fmt.Errorf("endpoint %q: unknown category %q", ep.Name, ep.Category)
		}
		if _, dup := c.byName[ep.Name]; dup {
			return nil, fmt.Errorf("endpoint %q declared twice", ep.Name)
		}
		c.byName[ep.Name] = ep
		c.templates = append(c.templates, template{name: ep.Name, segs: splitPath(ep.Path)})
	}
	return c, nil
}

func IsCategory(category string) bool {
	for _, known := range Categories {
		if known == category {
			return true
		}
	}
	return false
}

func (c *Catalog) Get(name string) (Endpoint, bool) {
	ep, ok := c.byName[name]
	return ep, ok
}

// List returns endpoints sorted by name. An empty category returns all of them.
func (c *Catalog) List(category string) []Endpoint {
	out := make([]Endpoint, 0, len(c.byName))
	for _, ep := range c.byName {
		if category != "" && ep.Category != category {
			continue
		}
		out = append(out, ep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Expand fills the installation placeholder of the named endpoint.
func (c *Catalog) Expand(name, installationID string) (string, error) {
	ep, ok := c.byName[name]
	if !ok {
		return "", fmt.Errorf("unknown endpoint %q", name)
	}
	return strings.ReplaceAll(ep.Path, InstallationPlaceholder, installationID), nil
}

// Match reports whether a concrete path fits one of the templates. A placeholder
// segment matches any single non-empty segment.
func (c *Catalog) Match(path string) bool {
	_, ok := c.Lookup(path)
	return ok
}

// Lookup returns the endpoint whose template fits path.
func (c *Catalog) Lookup(path string) (Endpoint, bool) {
	segs := splitPath(path)
	for _, tmpl := range c.templates {
		if matchSegments(tmpl.segs, segs) {
			return c.byName[tmpl.name], true
		}
	}
	return Endpoint{}, false
}

func matchSegments(tmpl, segs []string) bool {
	if len(tmpl) != len(segs) {
		return false
	}
	for i, t := range tmpl {
		if strings.HasPrefix(t, "{") && strings.HasSuffix(t, "}") {
			if segs[i] == "" {
				return false
			}
			continue
		}
		if t != segs[i] {
			return false
		}
	}
	return true
}

func splitPath(path string) []string {
	return strings.Split(strings.Trim(path, "/"), "/")
}
