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

package popdb

import (
	"path/filepath"
	"testing"

	"github.com/spectrummodel/sigstudy"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "pop.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })

	_, err = d.db.Exec(`CREATE TABLE pop_1 (
		lat_index INTEGER, lon_index INTEGER,
		lat REAL, lon REAL,
		population INTEGER, households INTEGER,
		block_id TEXT)`)
	if err != nil {
		t.Fatal(err)
	}
	// Deliberately out of order: the query's ORDER BY is part of the
	// contract.
	rows := [][]interface{}{
		{144050, 288010, 40.0139, 80.0028, 50, 20, "b3"},
		{144010, 288030, 40.0028, 80.0083, 100, 40, "b1"},
		{144010, 288010, 40.0028, 80.0028, 200, 80, "b2"},
		{150000, 288010, 41.6667, 80.0028, 999, 400, "far"},
	}
	for _, r := range rows {
		_, err = d.db.Exec(`INSERT INTO pop_1 VALUES (?, ?, ?, ?, ?, ?, ?)`, r...)
		if err != nil {
			t.Fatal(err)
		}
	}
	return d
}

func TestQueryPopulation(t *testing.T) {
	d := testDB(t)
	got, err := d.QueryPopulation(1, sigstudy.SecondsBounds{
		South: 144000, North: 144100, East: 288000, West: 288100,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d rows, want 3 (bounds must exclude the far row)", len(got))
	}
	wantIDs := []string{"b2", "b1", "b3"} // lat_index then lon_index
	for i, want := range wantIDs {
		if got[i].BlockID != want {
			t.Errorf("row %d = %q, want %q", i, got[i].BlockID, want)
		}
	}
	if got[0].Population != 200 || got[0].Households != 80 {
		t.Errorf("row 0 = %+v, column mapping wrong", got[0])
	}
	if got[0].Lat != 40.0028 || got[0].Lon != 80.0028 {
		t.Errorf("row 0 coordinate = %g, %g", got[0].Lat, got[0].Lon)
	}
}

func TestQueryPopulationEmptyBox(t *testing.T) {
	d := testDB(t)
	got, err := d.QueryPopulation(1, sigstudy.SecondsBounds{
		South: 200000, North: 200100, East: 288000, West: 288100,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %d rows, want none", len(got))
	}
}

func TestQueryPopulationUnknownCountry(t *testing.T) {
	d := testDB(t)
	if _, err := d.QueryPopulation(2, sigstudy.SecondsBounds{
		South: 144000, North: 144100, East: 288000, West: 288100,
	}); err == nil {
		t.Error("expected an error for a country with no table")
	}
}
