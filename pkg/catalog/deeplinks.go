package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/silkway-digital/showcase-bot/pkg/logger"
)

// DeepLink is one referral source: the slug users arrive with and the display
// name shown in admin stats.
type DeepLink struct {
	Slug string
	Name string
}

// DeepLinks is the lookup/validation set of known referral links.
type DeepLinks struct {
	links []DeepLink
	names map[string]string
}

type linkEntry struct {
	Slug string
	Name string
}

// Entries may be either a plain slug string or a {slug, name} mapping.
func (l *linkEntry) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		l.Slug = strings.TrimSpace(s)
		l.Name = l.Slug
		return nil
	}
	var m struct {
		Slug string `yaml:"slug"`
		Name string `yaml:"name"`
	}
	if err := unmarshal(&m); err != nil {
		return err
	}
	l.Slug = strings.TrimSpace(m.Slug)
	l.Name = strings.TrimSpace(m.Name)
	if l.Name == "" {
		l.Name = l.Slug
	}
	return nil
}

type deepLinksFile struct {
	Links []linkEntry `yaml:"links"`
}

// LoadDeepLinks reads the deep links file. A missing file degrades to an
// empty list; a malformed file is an error.
func LoadDeepLinks(path string) (*DeepLinks, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.WarnCF("catalog", "Deep links file not found, using empty list", map[string]any{
				"path": path,
			})
			return &DeepLinks{names: map[string]string{}}, nil
		}
		return nil, fmt.Errorf("reading deep links file %s: %w", path, err)
	}

	var f deepLinksFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing deep links file %s: %w", path, err)
	}

	dl := &DeepLinks{names: make(map[string]string, len(f.Links))}
	for _, e := range f.Links {
		if e.Slug == "" {
			continue
		}
		dl.links = append(dl.links, DeepLink{Slug: e.Slug, Name: e.Name})
		dl.names[e.Slug] = e.Name
	}

	logger.InfoCF("catalog", "Deep links loaded", map[string]any{
		"path":  path,
		"count": len(dl.links),
	})
	return dl, nil
}

// Links returns the ordered list of known deep links.
func (d *DeepLinks) Links() []DeepLink {
	return d.links
}

// Valid reports whether slug is a known deep link.
func (d *DeepLinks) Valid(slug string) bool {
	_, ok := d.names[slug]
	return ok
}

// Name resolves the display name for slug, falling back to the raw slug when
// the catalog has no matching entry (it may have been edited since the user
// registered).
func (d *DeepLinks) Name(slug string) string {
	if name, ok := d.names[slug]; ok {
		return name
	}
	return slug
}
