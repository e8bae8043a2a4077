package localization

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-yaml/yaml"
	"github.com/pkg/errors"
	"golang.org/x/text/language"
)

// Catalog holds flattened translation keys per language. A nested yaml
// document {a: {b: "x"}} becomes the key "a.b".
type Catalog struct {
	mu       sync.RWMutex
	fallback language.Tag
	entries  map[language.Tag]map[string]string
}

func NewCatalog(fallback language.Tag) *Catalog {
	return &Catalog{
		fallback: fallback,
		entries:  map[language.Tag]map[string]string{},
	}
}

// LoadDir reads every <lang>.yaml file in dir.
func LoadDir(dir string, fallback language.Tag) (*Catalog, error) {
	c := NewCatalog(fallback)
	if dir == "" {
		return c, nil
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(file), ".yaml")
		tag, err := language.Parse(name)
		if err != nil {
			return nil, errors.Wrapf(err, "locale file %s", file)
		}
		if err := c.Add(tag, raw); err != nil {
			return nil, errors.Wrapf(err, "locale file %s", file)
		}
	}
	return c, nil
}

// Add merges a yaml document into the entries of tag.
func (c *Catalog) Add(tag language.Tag, raw []byte) error {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	entries, ok := c.entries[tag]
	if !ok {
		entries = map[string]string{}
		c.entries[tag] = entries
	}
	for k, v := range doc {
		flatten(entries, k, v)
	}
	return nil
}

// For returns a Localizer bound to the best match for the requested
// languages, falling back to the catalog default.
func (c *Catalog) For(accept string) Localizer {
	c.mu.RLock()
	defer c.mu.RUnlock()

	supported := []language.Tag{c.fallback}
	for tag := range c.entries {
		if tag != c.fallback {
			supported = append(supported, tag)
		}
	}

	tag := c.fallback
	if requested, _, err := language.ParseAcceptLanguage(accept); err == nil && len(requested) > 0 {
		_, index, confidence := language.NewMatcher(supported).Match(requested...)
		if confidence != language.No {
			tag = supported[index]
		}
	}
	return Localizer{catalog: c, tag: tag}
}

func (c *Catalog) lookup(tag language.Tag, key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.entries[tag][key]; ok {
		return v, true
	}
	v, ok := c.entries[c.fallback][key]
	return v, ok
}

// Localizer translates keys for one language.
type Localizer struct {
	catalog *Catalog
	tag     language.Tag
}

func (l Localizer) Tag() language.Tag {
	return l.tag
}

// Translate returns the key itself when no translation exists.
func (l Localizer) Translate(key string) string {
	if l.catalog == nil {
		return key
	}
	if v, ok := l.catalog.lookup(l.tag, key); ok {
		return v
	}
	return key
}

func flatten(out map[string]string, prefix string, value interface{}) {
	switch v := value.(type) {
	case map[interface{}]interface{}:
		for k, child := range v {
			flatten(out, prefix+"."+fmt.Sprint(k), child)
		}
	case map[string]interface{}:
		for k, child := range v {
			flatten(out, prefix+"."+k, child)
		}
	case nil:
	default:
		out[prefix] = fmt.Sprint(v)
	}
}
