// Package catalog holds the content tree served by the bot: a hierarchy of
// sections addressed by `_`-joined path strings, plus the flat welcome and
// info blocks. The catalog is loaded once at startup and read-only afterwards;
// lookups go through an index built at load time.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/silkway-digital/showcase-bot/pkg/logger"
)

// MaxImages is the most images a single section may show. Telegram media
// groups cap at 10, the menu layout caps at 3.
const MaxImages = 3

// DefaultWelcomeText is shown when the welcome block has no text.
const DefaultWelcomeText = "Добро пожаловать! Выберите раздел в меню ниже."

// DefaultInfoText is shown when the info block has no text.
const DefaultInfoText = "О нас. Здесь можно разместить информацию о проекте или организации."

// Node is one section of the content tree. Path is assigned at load time and
// globally unique; ID only has to be unique among siblings.
type Node struct {
	ID       string   `yaml:"id"`
	Title    string   `yaml:"title"`
	Text     string   `yaml:"text"`
	Images   []string `yaml:"images"`
	Children []*Node  `yaml:"children"`

	Path string `yaml:"-"`
}

type welcomeBlock struct {
	Text string `yaml:"text"`
	// images plus the legacy single-image keys older catalogs use.
	Images    []string `yaml:"images"`
	ImageURL  string   `yaml:"image_url"`
	ImagePath string   `yaml:"image_path"`
}

type infoBlock struct {
	Text   string   `yaml:"text"`
	Images []string `yaml:"images"`
}

type catalogFile struct {
	Sections []*Node      `yaml:"sections"`
	Welcome  welcomeBlock `yaml:"welcome"`
	Info     infoBlock    `yaml:"info"`
}

// Catalog is the loaded content tree with its path index.
type Catalog struct {
	sections  []*Node
	welcome   welcomeBlock
	info      infoBlock
	index     map[string]*Node
	assetsDir string
}

// Load reads the sections file. A missing required top-level `sections` key is
// a startup error; everything past this point treats the catalog as valid.
// Local image references are resolved against assetsDir at read time.
func Load(path, assetsDir string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sections file %s: %w", path, err)
	}

	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing sections file %s: %w", path, err)
	}
	if f.Sections == nil {
		return nil, fmt.Errorf("sections file %s must contain a 'sections' key", path)
	}

	c := &Catalog{
		sections:  f.Sections,
		welcome:   f.Welcome,
		info:      f.Info,
		index:     make(map[string]*Node),
		assetsDir: assetsDir,
	}
	for _, n := range c.sections {
		c.indexNode("", n)
	}

	logger.InfoCF("catalog", "Sections loaded", map[string]any{
		"path":     path,
		"sections": len(c.sections),
		"nodes":    len(c.index),
	})
	return c, nil
}

// indexNode assigns full paths and fills the path index. Node ids may be bare
// segments ("2") or legacy full-path ids ("1_2" under "1"); both index under
// the same path key.
func (c *Catalog) indexNode(parent string, n *Node) {
	n.Path = joinPath(parent, n.ID)
	c.index[n.Path] = n
	for _, child := range n.Children {
		c.indexNode(n.Path, child)
	}
}

func joinPath(parent, id string) string {
	if parent == "" {
		return id
	}
	if strings.HasPrefix(id, parent+"_") {
		return id
	}
	return parent + "_" + id
}

// Resolve returns the node at path. The empty path is the virtual root and
// never resolves to a node.
func (c *Catalog) Resolve(path string) (*Node, bool) {
	if path == "" {
		return nil, false
	}
	n, ok := c.index[path]
	return n, ok
}

// Children returns the ordered child nodes of path; the empty path yields the
// top-level sections. Unknown paths and leaves yield an empty list.
func (c *Catalog) Children(path string) []*Node {
	if path == "" {
		return c.sections
	}
	n, ok := c.Resolve(path)
	if !ok {
		return nil
	}
	return n.Children
}

// ParentPath drops the last path segment; the root's parent is the root.
func ParentPath(path string) string {
	if path == "" {
		return ""
	}
	idx := strings.LastIndex(path, "_")
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

// Text returns the message text for path. The empty path resolves to the
// welcome text, unknown paths to "".
func (c *Catalog) Text(path string) string {
	if path == "" {
		if c.welcome.Text != "" {
			return c.welcome.Text
		}
		return DefaultWelcomeText
	}
	n, ok := c.Resolve(path)
	if !ok {
		return ""
	}
	return n.Text
}

// Images returns up to MaxImages resolved image sources for path. URLs pass
// through; local paths become absolute against the assets dir.
func (c *Catalog) Images(path string) []string {
	if path == "" {
		raw := c.welcome.Images
		if len(raw) == 0 {
			for _, v := range []string{c.welcome.ImageURL, c.welcome.ImagePath} {
				if strings.TrimSpace(v) != "" {
					raw = append(raw, v)
				}
			}
		}
		return c.resolveImages(raw)
	}
	n, ok := c.Resolve(path)
	if !ok {
		return nil
	}
	return c.resolveImages(n.Images)
}

// InfoText returns the /info page text.
func (c *Catalog) InfoText() string {
	if c.info.Text != "" {
		return c.info.Text
	}
	return DefaultInfoText
}

// InfoImages returns up to MaxImages resolved image sources for /info.
func (c *Catalog) InfoImages() []string {
	return c.resolveImages(c.info.Images)
}

func (c *Catalog) resolveImages(raw []string) []string {
	if len(raw) > MaxImages {
		raw = raw[:MaxImages]
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if resolved := c.resolveImage(item); resolved != "" {
			out = append(out, resolved)
		}
	}
	return out
}

func (c *Catalog) resolveImage(item string) string {
	item = strings.TrimSpace(item)
	if item == "" {
		return ""
	}
	if IsURL(item) {
		return item
	}
	p := item
	if !filepath.IsAbs(p) {
		p = filepath.Join(c.assetsDir, p)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

// IsURL reports whether the image source is remote rather than a local file.
func IsURL(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
