package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testSections = `
welcome:
  text: "Welcome!"
  image_url: "https://example.com/welcome.jpg"
info:
  text: "About us"
  images:
    - "https://example.com/a.jpg"
    - "assets/b.jpg"
sections:
  - id: "1"
    title: "Products"
    text: "Our products"
    children:
      - id: "1_1"
        title: "Candles"
        text: "Candles section"
        images:
          - "https://example.com/c1.jpg"
      - id: "2"
        title: "Soap"
        text: "Soap section"
        images:
          - "https://example.com/s1.jpg"
          - "https://example.com/s2.jpg"
          - "https://example.com/s3.jpg"
          - "https://example.com/s4.jpg"
  - id: "2"
    title: "Contacts"
    text: "Call us"
`

func writeCatalog(t *testing.T, content string) *Catalog {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sections.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path, dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return c
}

func TestLoadMissingSectionsKeyFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sections.yaml")
	if err := os.WriteFile(path, []byte("welcome:\n  text: hi\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, dir); err == nil {
		t.Fatal("expected error for missing sections key")
	}
}

func TestResolvePaths(t *testing.T) {
	c := writeCatalog(t, testSections)

	n, ok := c.Resolve("1")
	if !ok || n.Title != "Products" {
		t.Fatalf("resolve 1: ok=%v node=%+v", ok, n)
	}

	// Legacy full-path id and bare segment id index under the same scheme.
	if n, ok := c.Resolve("1_1"); !ok || n.Title != "Candles" {
		t.Errorf("resolve 1_1: ok=%v", ok)
	}
	if n, ok := c.Resolve("1_2"); !ok || n.Title != "Soap" {
		t.Errorf("resolve 1_2: ok=%v", ok)
	}

	if _, ok := c.Resolve("9"); ok {
		t.Error("resolve 9: expected miss")
	}
	if _, ok := c.Resolve(""); ok {
		t.Error("empty path must not resolve to a node")
	}
}

func TestChildren(t *testing.T) {
	c := writeCatalog(t, testSections)

	top := c.Children("")
	if len(top) != 2 || top[0].ID != "1" || top[1].ID != "2" {
		t.Fatalf("top-level children: %+v", top)
	}

	kids := c.Children("1")
	if len(kids) != 2 || kids[0].Path != "1_1" || kids[1].Path != "1_2" {
		t.Fatalf("children of 1: %+v", kids)
	}

	if got := c.Children("1_1"); len(got) != 0 {
		t.Errorf("leaf children: %+v", got)
	}
	if got := c.Children("missing"); len(got) != 0 {
		t.Errorf("unknown path children: %+v", got)
	}
}

func TestParentPath(t *testing.T) {
	cases := map[string]string{
		"1_2": "1",
		"1":   "",
		"":    "",
	}
	for path, want := range cases {
		if got := ParentPath(path); got != want {
			t.Errorf("ParentPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestText(t *testing.T) {
	c := writeCatalog(t, testSections)

	if got := c.Text(""); got != "Welcome!" {
		t.Errorf("root text: %q", got)
	}
	if got := c.Text("1"); got != "Our products" {
		t.Errorf("node text: %q", got)
	}
	if got := c.Text("missing"); got != "" {
		t.Errorf("unknown path text: %q", got)
	}
}

func TestWelcomeFallbackText(t *testing.T) {
	c := writeCatalog(t, "sections: []\n")
	if got := c.Text(""); got != DefaultWelcomeText {
		t.Errorf("fallback welcome text: %q", got)
	}
}

func TestImagesClippedToThree(t *testing.T) {
	c := writeCatalog(t, testSections)

	imgs := c.Images("1_2")
	if len(imgs) != 3 {
		t.Fatalf("expected 3 images, got %d", len(imgs))
	}
}

func TestImagesResolution(t *testing.T) {
	c := writeCatalog(t, testSections)

	welcome := c.Images("")
	if len(welcome) != 1 || welcome[0] != "https://example.com/welcome.jpg" {
		t.Fatalf("welcome images: %+v", welcome)
	}

	info := c.InfoImages()
	if len(info) != 2 {
		t.Fatalf("info images: %+v", info)
	}
	if info[0] != "https://example.com/a.jpg" {
		t.Errorf("url must pass through: %q", info[0])
	}
	if !filepath.IsAbs(info[1]) || !strings.HasSuffix(info[1], filepath.Join("assets", "b.jpg")) {
		t.Errorf("local path must resolve to absolute: %q", info[1])
	}

	if got := c.Images("missing"); len(got) != 0 {
		t.Errorf("unknown path images: %+v", got)
	}
}

func TestIsURL(t *testing.T) {
	if !IsURL("HTTPS://example.com/x.jpg") {
		t.Error("https must be a url")
	}
	if IsURL("assets/x.jpg") {
		t.Error("relative path is not a url")
	}
}
