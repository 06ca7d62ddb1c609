// Package gallery reads enrollment images laid out as one directory per
// person and turns them into labelled samples.
package gallery

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".webp": true, ".tif": true, ".tiff": true,
}

// Entry is one enrollment image.
type Entry struct {
	Path     string
	Category int32
}

// Labels maps category ids to person names.
type Labels map[int32]string

// Gallery is the result of scanning an enrollment directory.
type Gallery struct {
	Entries []Entry
	Labels  Labels
}

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeName normalizes a person name (lowercase, no diacritics, spaces for
// dashes and underscores, single spaces).
func NormalizeName(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return strings.Join(strings.Fields(name), " ")
}

// Scan walks dir. Every sub-directory is a person; directories whose names
// normalise to the same person are merged. Category ids follow the sorted
// normalised names, so the same tree always yields the same ids.
func Scan(dir string) (*Gallery, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read gallery: %w", err)
	}

	byName := make(map[string][]string)
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		name := NormalizeName(e.Name())
		if name == "" {
			continue
		}
		images, err := listImages(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		byName[name] = append(byName[name], images...)
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	g := &Gallery{Labels: make(Labels, len(names))}
	for i, name := range names {
		cat := int32(i)
		g.Labels[cat] = name
		images := byName[name]
		sort.Strings(images)
		for _, p := range images {
			g.Entries = append(g.Entries, Entry{Path: p, Category: cat})
		}
	}
	return g, nil
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

// Name returns the label of cat, or "unknown".
func (l Labels) Name(cat int) string {
	if name, ok := l[int32(cat)]; ok {
		return name
	}
	return "unknown"
}

// SaveLabels writes labels as JSON.
func SaveLabels(path string, labels Labels) error {
	data, err := json.MarshalIndent(labels, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode labels: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write labels: %w", err)
	}
	return nil
}

// LoadLabels reads labels written by SaveLabels.
func LoadLabels(path string) (Labels, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	var labels Labels
	if err := json.Unmarshal(data, &labels); err != nil {
		return nil, fmt.Errorf("failed to parse labels: %w", err)
	}
	return labels, nil
}
