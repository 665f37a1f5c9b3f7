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

package terrain

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
)

// landCoverSide is the sample count per side of a one-degree land-cover
// tile: one byte category per 3-arc-second cell.
const landCoverSide = 1200

// A LandCover reads land-cover category tiles. Tiles live under
// dir/v<version>/ and are named like elevation tiles with a .lcv
// extension; each holds landCoverSide^2 category bytes, first row at the
// north edge. A missing tile means the category is unknown.
type LandCover struct {
	dir string

	mu    sync.Mutex
	tiles map[tileKey][]byte
}

// NewLandCover opens a land-cover tile set over the given directory.
func NewLandCover(dir string) (*LandCover, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("terrain: %v", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("terrain: not a directory: %s", dir)
	}
	return &LandCover{dir: dir, tiles: make(map[tileKey][]byte)}, nil
}

// Category returns the land-cover category at the coordinate for the
// given data version, or -1 when no tile covers it. The longitude is
// positive west.
func (l *LandCover) Category(lat, lon float64, version int) (int, error) {
	elon := -lon
	key := tileKey{
		lat: int(math.Floor(lat)),
		lon: int(math.Floor(elon)),
		db:  version,
	}

	l.mu.Lock()
	t, ok := l.tiles[key]
	if !ok {
		var err error
		t, err = l.loadTile(key, version)
		if err != nil {
			l.mu.Unlock()
			return -1, err
		}
		if len(l.tiles) >= maxTiles {
			for k := range l.tiles {
				delete(l.tiles, k)
				break
			}
		}
		l.tiles[key] = t
	}
	l.mu.Unlock()

	if t == nil {
		return -1, nil
	}
	x := int((elon - float64(key.lon)) * landCoverSide)
	y := int((float64(key.lat+1) - lat) * landCoverSide)
	if x >= landCoverSide {
		x = landCoverSide - 1
	}
	if y >= landCoverSide {
		y = landCoverSide - 1
	}
	return int(t[y*landCoverSide+x]), nil
}

// loadTile returns nil with no error when the tile is absent.
func (l *LandCover) loadTile(key tileKey, version int) ([]byte, error) {
	name := filepath.Join(l.dir, fmt.Sprintf("v%d", version),
		tileName(key.lat, key.lon))
	name = name[:len(name)-len(".hgt")] + ".lcv"
	raw, err := os.ReadFile(name)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("terrain: %v", err)
	}
	if len(raw) != landCoverSide*landCoverSide {
		return nil, fmt.Errorf("terrain: %s: size %d, want %d",
			name, len(raw), landCoverSide*landCoverSide)
	}
	return raw, nil
}
