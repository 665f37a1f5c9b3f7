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

import "testing"

func TestPoolGrowsAcrossBlocks(t *testing.T) {
	p := newPool[int](4)
	var got []*int
	for i := 0; i < 10; i++ {
		r := p.alloc()
		*r = i + 1
		got = append(got, r)
	}
	if p.used() != 10 {
		t.Errorf("used = %d, want 10", p.used())
	}
	if len(p.blocks) != 3 {
		t.Errorf("blocks = %d, want 3", len(p.blocks))
	}
	for i, r := range got {
		if *r != i+1 {
			t.Errorf("record %d = %d, want %d", i, *r, i+1)
		}
	}
}

func TestPoolResetZeroesAndReuses(t *testing.T) {
	p := newPool[Field](4)
	for i := 0; i < 6; i++ {
		f := p.alloc()
		f.SourceKey = 99
		f.DTS = []*Field{{}}
	}
	p.reset()
	if p.used() != 0 {
		t.Errorf("used after reset = %d, want 0", p.used())
	}
	f := p.alloc()
	if f.SourceKey != 0 || f.DTS != nil {
		t.Error("reset did not zero the recycled record")
	}
	if len(p.blocks) != 2 {
		t.Errorf("blocks after reset = %d, want 2 (memory retained)", len(p.blocks))
	}
}

func TestPoolResetPartialBlock(t *testing.T) {
	p := newPool[int](4)
	for i := 0; i < 3; i++ {
		*p.alloc() = 7
	}
	p.reset()
	for i := 0; i < 3; i++ {
		if v := p.alloc(); *v != 0 {
			t.Errorf("slot %d = %d after reset, want 0", i, *v)
		}
	}
}
