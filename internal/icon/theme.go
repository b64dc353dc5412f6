// Package icon resolves freedesktop icon names to raster files and renders
// them as square PNGs.
package icon

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/image/draw"

	"github.com/bryanchriswhite/hyprdock/internal/logger"
)

// FallbackTheme is searched after the configured themes.
const FallbackTheme = "hicolor"

// ErrNotFound is returned when no file provides an icon name.
var ErrNotFound = errors.New("icon not found")

var (
	extensions = []string{".png", ".jpg", ".jpeg", ".gif"}
	strippable = []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".xpm"}
)

// BaseDirs returns the icon base directories for the given applications
// directories: ~/.icons first, then the icons directory next to each one.
func BaseDirs(appDirs []string) []string {
	var dirs []string
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".icons"))
	}
	for _, d := range appDirs {
		dirs = append(dirs, filepath.Join(filepath.Dir(d), "icons"))
	}
	return dirs
}

// PixmapDirs returns the legacy pixmaps directory next to each applications
// directory.
func PixmapDirs(appDirs []string) []string {
	dirs := make([]string, 0, len(appDirs))
	for _, d := range appDirs {
		dirs = append(dirs, filepath.Join(filepath.Dir(d), "pixmaps"))
	}
	return dirs
}

type cacheKey struct {
	path string
	size int
}

// Theme looks icons up in themed size directories, then pixmaps.
type Theme struct {
	bases   []string
	pixmaps []string
	themes  []string

	mu    sync.Mutex
	cache map[cacheKey][]byte
}

// NewTheme searches themes in order under each base directory, always
// ending with hicolor.
func NewTheme(bases, pixmaps []string, themes ...string) *Theme {
	names := make([]string, 0, len(themes)+1)
	for _, t := range themes {
		if t != "" && t != FallbackTheme {
			names = append(names, t)
		}
	}
	names = append(names, FallbackTheme)
	return &Theme{
		bases:   bases,
		pixmaps: pixmaps,
		themes:  names,
		cache:   make(map[cacheKey][]byte),
	}
}

// Find returns the file best matching name at size: the smallest themed
// size at least as large as requested, else the largest available.
func (t *Theme) Find(name string, size int) (string, error) {
	if name == "" {
		return "", ErrNotFound
	}
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err != nil {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return name, nil
	}
	name = stripExtension(name)

	for _, theme := range t.themes {
		for _, base := range t.bases {
			if path, ok := findSized(filepath.Join(base, theme), name, size); ok {
				return path, nil
			}
		}
	}
	for _, dir := range t.pixmaps {
		if path, ok := findFile(dir, name); ok {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// PNG renders name as a size x size PNG. Results are cached per file and
// size.
func (t *Theme) PNG(name string, size int) ([]byte, error) {
	path, err := t.Find(name, size)
	if err != nil {
		return nil, err
	}

	key := cacheKey{path: path, size: size}
	t.mu.Lock()
	data, ok := t.cache[key]
	t.mu.Unlock()
	if ok {
		return data, nil
	}

	data, err = RenderFile(path, size)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.cache[key] = data
	t.mu.Unlock()

	logger.WithComponent("icon").Debug().
		Str("name", name).
		Str("path", path).
		Int("size", size).
		Msg("Icon rendered")
	return data, nil
}

// RenderFile decodes the image at path and encodes it scaled to size.
func RenderFile(path string, size int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open icon: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode icon %s: %w", path, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, Scale(src, size)); err != nil {
		return nil, fmt.Errorf("failed to encode icon: %w", err)
	}
	return buf.Bytes(), nil
}

// Scale fits src into a transparent size x size square, keeping its aspect
// ratio and centering it.
func Scale(src image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	b := src.Bounds()
	if b.Empty() || size <= 0 {
		return dst
	}

	w, h := size, size
	if b.Dx() > b.Dy() {
		h = max(1, size*b.Dy()/b.Dx())
	} else if b.Dy() > b.Dx() {
		w = max(1, size*b.Dx()/b.Dy())
	}
	x0, y0 := (size-w)/2, (size-h)/2

	draw.CatmullRom.Scale(dst, image.Rect(x0, y0, x0+w, y0+h), src, b, draw.Over, nil)
	return dst
}

type sizeDir struct {
	path string
	size int
}

func findSized(themeDir, name string, size int) (string, bool) {
	entries, err := os.ReadDir(themeDir)
	if err != nil {
		return "", false
	}

	var dirs []sizeDir
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if n, ok := parseSize(e.Name()); ok {
			dirs = append(dirs, sizeDir{path: filepath.Join(themeDir, e.Name()), size: n})
		}
	}
	sort.SliceStable(dirs, func(i, j int) bool { return rank(dirs[i].size, size) < rank(dirs[j].size, size) })

	for _, d := range dirs {
		if path, ok := findFile(filepath.Join(d.path, "apps"), name); ok {
			return path, true
		}
	}
	return "", false
}

// rank orders sizes: exact and larger sizes first, closest first, then
// smaller sizes from largest down.
func rank(have, want int) int {
	if have >= want {
		return have - want
	}
	return 1<<20 + (want - have)
}

// parseSize reads directory names like "48x48" and "48x48@2".
func parseSize(dir string) (int, bool) {
	dir, scale, _ := strings.Cut(dir, "@")
	w, h, ok := strings.Cut(dir, "x")
	if !ok || w != h {
		return 0, false
	}
	n, err := strconv.Atoi(w)
	if err != nil || n <= 0 {
		return 0, false
	}
	if scale != "" {
		s, err := strconv.Atoi(scale)
		if err != nil || s <= 0 {
			return 0, false
		}
		n *= s
	}
	return n, true
}

func findFile(dir, name string) (string, bool) {
	for _, ext := range extensions {
		path := filepath.Join(dir, name+ext)
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			return path, true
		}
	}
	return "", false
}

func stripExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	for _, known := range strippable {
		if ext == known {
			return strings.TrimSuffix(name, filepath.Ext(name))
		}
	}
	return name
}
