package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDeepLinksMixedEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deep_links.yaml")
	data := `
links:
  - slug: promo1
    name: "Spring promo"
  - plain_slug
  - slug: noname
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	dl, err := LoadDeepLinks(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	links := dl.Links()
	if len(links) != 3 {
		t.Fatalf("expected 3 links, got %d", len(links))
	}
	if links[0].Slug != "promo1" || links[0].Name != "Spring promo" {
		t.Errorf("first link: %+v", links[0])
	}
	if links[1].Slug != "plain_slug" || links[1].Name != "plain_slug" {
		t.Errorf("plain entry: %+v", links[1])
	}
	if links[2].Name != "noname" {
		t.Errorf("name must default to slug: %+v", links[2])
	}

	if !dl.Valid("promo1") || dl.Valid("unknown") {
		t.Error("slug validation")
	}
	if dl.Name("promo1") != "Spring promo" {
		t.Error("name lookup")
	}
	if dl.Name("gone") != "gone" {
		t.Error("unknown slug must fall back to itself")
	}
}

func TestLoadDeepLinksMissingFile(t *testing.T) {
	dl, err := LoadDeepLinks(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if len(dl.Links()) != 0 {
		t.Errorf("expected empty list, got %+v", dl.Links())
	}
}
