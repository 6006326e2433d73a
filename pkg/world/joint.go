// pkg/world/joint.go
package world

import "github.com/opd-ai/go-viscosity/pkg/physics"

// jointPool holds the contact constraints created during a step. It has
// the same layout as the body arena: parallel columns, a free list and
// doubling growth.
type jointPool struct {
	live    []bool
	a, b    []int
	contact []physics.Contact

	free  []int
	used  int
	count int
}

func newJointPool(capacity int) jointPool {
	var p jointPool
	p.resize(capacity)
	return p
}

func (p *jointPool) capacity() int { return len(p.live) }

func (p *jointPool) resize(capacity int) {
	p.live = grow(p.live, capacity)
	p.a = grow(p.a, capacity)
	p.b = grow(p.b, capacity)
	p.contact = grow(p.contact, capacity)
	p.free = append(make([]int, 0, capacity), p.free...)
}

// reset drops every joint while keeping the allocated capacity.
func (p *jointPool) reset() {
	clear(p.live[:p.used])
	p.free = p.free[:0]
	p.used = 0
	p.count = 0
}

// add stores a contact between body slots a and b. grew reports whether
// the pool had to double.
func (p *jointPool) add(a, b int, c physics.Contact) (index int, grew bool) {
	if n := len(p.free); n > 0 {
		index = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		if p.used == p.capacity() {
			p.resize(p.capacity() * 2)
			grew = true
		}
		index = p.used
		p.used++
	}
	p.live[index] = true
	p.a[index] = a
	p.b[index] = b
	p.contact[index] = c
	p.count++
	return index, grew
}

func (p *jointPool) remove(index int) {
	if !p.live[index] {
		return
	}
	p.live[index] = false
	p.free = append(p.free, index)
	p.count--
}
