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

package sigstudy

// Pool block capacities. A study may touch tens of millions of locations;
// records are bump-allocated from large blocks so allocation is O(1) and
// a whole study's records can be recycled without churn.
const (
	pointBlockSize  = 50000
	censusBlockSize = 100000
	fieldBlockSize  = 200000
)

// A pool bump-allocates records of type T from fixed-capacity blocks.
// Records are never released individually; Reset zeroes every record in
// every existing block and rewinds the allocator, keeping the block
// memory for the next study.
type pool[T any] struct {
	blocks    [][]T
	blockSize int
	block     int // index of the block currently allocated from
	next      int // next free slot in the current block
}

func newPool[T any](blockSize int) *pool[T] {
	return &pool[T]{blockSize: blockSize}
}

// alloc returns a pointer to a zeroed record. It never fails: when the
// current block is full the pool grows by one block.
func (p *pool[T]) alloc() *T {
	if p.block >= len(p.blocks) {
		p.blocks = append(p.blocks, make([]T, p.blockSize))
	}
	r := &p.blocks[p.block][p.next]
	p.next++
	if p.next == p.blockSize {
		p.block++
		p.next = 0
	}
	return r
}

// used returns the number of records allocated since the last reset.
func (p *pool[T]) used() int {
	return p.block*p.blockSize + p.next
}

// reset zeroes all allocated records and rewinds the bump pointer without
// releasing block memory.
func (p *pool[T]) reset() {
	var zero T
	for b := 0; b <= p.block && b < len(p.blocks); b++ {
		n := p.blockSize
		if b == p.block {
			n = p.next
		}
		blk := p.blocks[b]
		for i := 0; i < n; i++ {
			blk[i] = zero
		}
	}
	p.block = 0
	p.next = 0
}

// pools groups the per-study record pools.
type pools struct {
	points *pool[StudyPoint]
	census *pool[CensusPoint]
	fields *pool[Field]
}

func newPools() *pools {
	return &pools{
		points: newPool[StudyPoint](pointBlockSize),
		census: newPool[CensusPoint](censusBlockSize),
		fields: newPool[Field](fieldBlockSize),
	}
}

func (p *pools) reset() {
	p.points.reset()
	p.census.reset()
	p.fields.reset()
}
