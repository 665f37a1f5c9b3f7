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

// Package popdb queries census-block demographic data from a SQLite
// database for use as a study's population collaborator.
//
// The database holds one table per country, named pop_<country>, with
// one row per census point:
//
//	lat_index  INTEGER  latitude in whole arc-seconds, positive north
//	lon_index  INTEGER  longitude in whole arc-seconds, positive west
//	lat        REAL     precise latitude, degrees
//	lon        REAL     precise longitude, degrees (positive west)
//	population INTEGER
//	households INTEGER
//	block_id   TEXT
//
// Rows near the antimeridian are stored twice, once per longitude sign,
// so a bounding-box query straddling it finds them without wraparound
// arithmetic.
package popdb

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/spectrummodel/sigstudy"
)

const openRetries = 5

// A DB is a population database handle. It implements
// sigstudy.PopulationQuerier and is safe for concurrent use.
type DB struct {
	db *sql.DB
}

// Open opens the population database at path. The open is retried with
// exponential backoff since the file may sit on network storage that is
// still mounting when a batch run starts.
func Open(path string) (*DB, error) {
	var db *sql.DB
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	err := backoff.Retry(func() error {
		var err error
		db, err = sql.Open("sqlite", path)
		if err != nil {
			return err
		}
		return db.Ping()
	}, backoff.WithMaxRetries(bo, openRetries))
	if err != nil {
		return nil, fmt.Errorf("popdb: opening %s: %v", path, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	log.WithField("path", path).Debug("population database open")
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error { return d.db.Close() }

// QueryPopulation returns the country's census points inside the
// bounding box, ordered by lat_index then lon_index. The row order is
// part of the contract: the study's no-aggregation point method keys its
// tie-breaking on first-encountered records.
func (d *DB) QueryPopulation(country int, b sigstudy.SecondsBounds) ([]sigstudy.PopulationRow, error) {
	q := fmt.Sprintf(`SELECT lat_index, lon_index, lat, lon, population, households, block_id
		FROM pop_%d
		WHERE lat_index >= ? AND lat_index < ? AND lon_index >= ? AND lon_index < ?
		ORDER BY lat_index, lon_index`, country)
	rows, err := d.db.Query(q, b.South, b.North, b.East, b.West)
	if err != nil {
		return nil, fmt.Errorf("popdb: querying country %d: %v", country, err)
	}
	defer rows.Close()

	var out []sigstudy.PopulationRow
	for rows.Next() {
		var r sigstudy.PopulationRow
		if err := rows.Scan(&r.LatIndex, &r.LonIndex, &r.Lat, &r.Lon,
			&r.Population, &r.Households, &r.BlockID); err != nil {
			return nil, fmt.Errorf("popdb: scanning country %d row: %v", country, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("popdb: reading country %d rows: %v", country, err)
	}
	return out, nil
}
