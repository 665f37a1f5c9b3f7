/*
Copyright © 2025 the SigStudy authors.
This file is part of SigStudy.

SigStudy is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

SigStudy is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with SigStudy.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package terrain reads ground elevation from SRTM-format .hgt tile
// files and land-cover categories from companion category tiles.
//
// Tiles are one degree square and named by their southwest corner,
// N44W093.hgt. Elevation samples are big-endian int16 meters; the first
// sample row is the tile's north edge. Database 3 selects 3-arc-second
// tiles (1201x1201 samples), database 1 selects 1-arc-second tiles
// (3601x3601).
package terrain

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Elevation databases.
const (
	SRTM1 = 1 // 1 arc-second, 3601 samples per side
	SRTM3 = 3 // 3 arc-seconds, 1201 samples per side
)

const voidSample = -32768

// maxTiles caps the in-memory tile cache. A 3-arc-second tile is about
// 2.8 MB, a 1-arc-second tile 25 MB.
const maxTiles = 64

type tileKey struct {
	lat, lon int // southwest corner, degrees, conventional east-positive lon
	db       int
}

type tile struct {
	samples []int16
	side    int // samples per side
	missing bool
}

// A Cache reads elevation and land-cover tiles on demand and keeps them
// in memory. It is safe for concurrent use. Missing elevation tiles are
// treated as sea level, since ocean tiles are conventionally absent from
// SRTM tile sets.
type Cache struct {
	dir string

	mu    sync.Mutex
	tiles map[tileKey]*tile
}

// NewCache opens a tile cache over the given directory.
func NewCache(dir string) (*Cache, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("terrain: %v", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("terrain: not a directory: %s", dir)
	}
	return &Cache{dir: dir, tiles: make(map[tileKey]*tile)}, nil
}

// Elevation returns the ground elevation in meters at the coordinate,
// bilinearly interpolated between the four surrounding samples. The
// longitude is positive west, matching the study convention. Void
// samples interpolate as sea level.
func (c *Cache) Elevation(lat, lon float64, db int) (float64, error) {
	if db != SRTM1 && db != SRTM3 {
		return 0, fmt.Errorf("terrain: unknown elevation database %d", db)
	}
	elon := -lon // east-positive for tile addressing

	t, key, err := c.tile(lat, elon, db)
	if err != nil {
		return 0, err
	}
	if t.missing {
		return 0, nil
	}

	// Fractional sample position within the tile; row 0 is the north
	// edge.
	n := t.side - 1
	fx := (elon - float64(key.lon)) * float64(n)
	fy := (float64(key.lat+1) - lat) * float64(n)
	x := int(fx)
	y := int(fy)
	if x >= n {
		x = n - 1
	}
	if y >= n {
		y = n - 1
	}
	dx := fx - float64(x)
	dy := fy - float64(y)

	s00 := t.sample(x, y)
	s10 := t.sample(x+1, y)
	s01 := t.sample(x, y+1)
	s11 := t.sample(x+1, y+1)
	return s00*(1-dx)*(1-dy) + s10*dx*(1-dy) + s01*(1-dx)*dy + s11*dx*dy, nil
}

func (t *tile) sample(x, y int) float64 {
	v := t.samples[y*t.side+x]
	if v == voidSample {
		return 0
	}
	return float64(v)
}

func (c *Cache) tile(lat, elon float64, db int) (*tile, tileKey, error) {
	key := tileKey{
		lat: int(math.Floor(lat)),
		lon: int(math.Floor(elon)),
		db:  db,
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tiles[key]; ok {
		return t, key, nil
	}
	t, err := c.load(key)
	if err != nil {
		return nil, key, err
	}
	if len(c.tiles) >= maxTiles {
		for k := range c.tiles {
			delete(c.tiles, k)
			break
		}
	}
	c.tiles[key] = t
	return t, key, nil
}

func (c *Cache) load(key tileKey) (*tile, error) {
	side := 1201
	if key.db == SRTM1 {
		side = 3601
	}
	name := filepath.Join(c.dir, tileName(key.lat, key.lon))
	raw, err := os.ReadFile(name)
	if os.IsNotExist(err) {
		log.WithField("tile", name).Debug("elevation tile absent, assuming sea level")
		return &tile{missing: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("terrain: %v", err)
	}
	if len(raw) != side*side*2 {
		return nil, fmt.Errorf("terrain: %s: size %d, want %d", name, len(raw), side*side*2)
	}
	t := &tile{samples: make([]int16, side*side), side: side}
	for i := range t.samples {
		t.samples[i] = int16(uint16(raw[2*i])<<8 | uint16(raw[2*i+1]))
	}
	return t, nil
}

func tileName(lat, elon int) string {
	ns := 'N'
	if lat < 0 {
		ns = 'S'
		lat = -lat
	}
	ew := 'E'
	if elon < 0 {
		ew = 'W'
		elon = -elon
	}
	return fmt.Sprintf("%c%02d%c%03d.hgt", ns, lat, ew, elon)
}
