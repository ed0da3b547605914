// Package tilegrid recognizes flyers served as grids of tile images and
// stitches them back into single page bitmaps.
package tilegrid

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Page-numbered tiles: <page>_<size>_<index>.<ext>, index 0..3 laid out 2x2 row-major.
var pageTilePattern = regexp.MustCompile(`(?i)^(\d+)_(\d+)_([0-3])\.(jpe?g|png|gif|webp)$`)

// Suffix tiles: <base>_<row><col>.<ext>.
var suffixTilePattern = regexp.MustCompile(`(?i)^(.+)_(\d)(\d)\.(jpe?g|png|gif|webp)$`)

// Tile is one parsed grid cell.
type Tile struct {
	URL     string
	Row     int
	Col     int
	Page    int
	HasPage bool
	Size    int

	key string
	dir string
	ext string
	qs  string
}

// Grid is a group of tiles that together form one page.
type Grid struct {
	Key         string
	Page        int
	HasPage     bool
	Size        int
	Tiles       []Tile
	// Duplicates are further URLs for cells already in Tiles. They belong to
	// the grid and must not be fetched on their own.
	Duplicates  []string
	Speculative bool
}

// Parse recognizes a tile URL. ok is false for anything that is not a tile.
func Parse(rawURL string) (Tile, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return Tile{}, false
	}
	dir, file := path.Split(u.Path)
	prefix := u.Scheme + "://" + u.Host + dir

	if m := pageTilePattern.FindStringSubmatch(file); m != nil {
		page, _ := strconv.Atoi(m[1])
		size, _ := strconv.Atoi(m[2])
		idx, _ := strconv.Atoi(m[3])
		return Tile{
			URL:     rawURL,
			Row:     idx / 2,
			Col:     idx % 2,
			Page:    page,
			HasPage: true,
			Size:    size,
			key:     pageKey(prefix, page, size),
			dir:     prefix,
			ext:     m[4],
			qs:      u.RawQuery,
		}, true
	}

	if m := suffixTilePattern.FindStringSubmatch(file); m != nil {
		row, _ := strconv.Atoi(m[2])
		col, _ := strconv.Atoi(m[3])
		return Tile{
			URL: rawURL,
			Row: row,
			Col: col,
			key: prefix + m[1],
			dir: prefix,
			ext: m[4],
			qs:  u.RawQuery,
		}, true
	}

	return Tile{}, false
}

func pageKey(prefix string, page, size int) string {
	return fmt.Sprintf("%s%d_%d", prefix, page, size)
}

// Group partitions urls into grids of at least two tiles. URLs that are not
// tiles, or whose group has a single member, are returned in rest in input order.
// Grids keep first-seen order and duplicate cells keep the first URL.
func Group(urls []string) ([]Grid, []string) {
	var order []string
	groups := make(map[string]*Grid)
	members := make(map[string][]string)
	var rest []string

	for _, raw := range urls {
		tile, ok := Parse(raw)
		if !ok {
			rest = append(rest, raw)
			continue
		}
		g, exists := groups[tile.key]
		if !exists {
			g = &Grid{Key: tile.key, Page: tile.Page, HasPage: tile.HasPage, Size: tile.Size}
			groups[tile.key] = g
			order = append(order, tile.key)
		}
		members[tile.key] = append(members[tile.key], raw)
		if hasCell(g.Tiles, tile.Row, tile.Col) {
			g.Duplicates = append(g.Duplicates, raw)
			continue
		}
		g.Tiles = append(g.Tiles, tile)
	}

	grids := make([]Grid, 0, len(order))
	for _, key := range order {
		g := groups[key]
		if len(g.Tiles) < 2 {
			rest = append(rest, members[key]...)
			continue
		}
		grids = append(grids, *g)
	}
	if rest == nil {
		rest = []string{}
	}
	return grids, rest
}

func hasCell(tiles []Tile, row, col int) bool {
	for _, t := range tiles {
		if t.Row == row && t.Col == col {
			return true
		}
	}
	return false
}

// ExpandNextPage adds a speculative grid for page+1 after every page-numbered
// front grid whose back was not observed. A grid counts as a front when no grid
// for page-1 exists in the same directory and size. Speculative tiles may not exist.
func ExpandNextPage(grids []Grid) []Grid {
	seen := make(map[string]bool, len(grids))
	for _, g := range grids {
		seen[g.Key] = true
	}

	out := make([]Grid, 0, len(grids)*2)
	for _, g := range grids {
		out = append(out, g)
		if !g.HasPage || g.Speculative || len(g.Tiles) == 0 {
			continue
		}
		ref := g.Tiles[0]
		if seen[pageKey(ref.dir, g.Page+1, g.Size)] || seen[pageKey(ref.dir, g.Page-1, g.Size)] {
			continue
		}

		next := Grid{
			Key:         pageKey(ref.dir, g.Page+1, g.Size),
			Page:        g.Page + 1,
			HasPage:     true,
			Size:        g.Size,
			Speculative: true,
		}
		for idx := 0; idx < 4; idx++ {
			u := fmt.Sprintf("%s%d_%d_%d.%s", ref.dir, next.Page, g.Size, idx, ref.ext)
			if ref.qs != "" {
				u += "?" + ref.qs
			}
			next.Tiles = append(next.Tiles, Tile{
				URL: u, Row: idx / 2, Col: idx % 2,
				Page: next.Page, HasPage: true, Size: g.Size,
				key: next.Key, dir: ref.dir, ext: ref.ext, qs: ref.qs,
			})
		}
		seen[next.Key] = true
		out = append(out, next)
	}
	return out
}

// URLs returns the tile URLs in row-major order.
func (g Grid) URLs() []string {
	urls := make([]string, 0, len(g.Tiles))
	for _, t := range sortedTiles(g.Tiles) {
		urls = append(urls, t.URL)
	}
	return urls
}

func sortedTiles(tiles []Tile) []Tile {
	out := append([]Tile(nil), tiles...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}

// String identifies the grid in warnings.
func (g Grid) String() string {
	if g.HasPage {
		return fmt.Sprintf("tile grid page %d (size %d)", g.Page, g.Size)
	}
	return "tile grid " + strings.TrimSuffix(path.Base(g.Key), "_")
}
