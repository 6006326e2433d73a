// pkg/world/verify.go
package world

import (
	"errors"
	"fmt"
)

// ErrCorruptArena is returned by Verify when storage bookkeeping is
// inconsistent.
var ErrCorruptArena = errors.New("corrupt arena")

// Verify checks the bookkeeping of body and joint storage: live counts
// within capacity, every free slot deleted, and live plus free slots
// accounting for every slot handed out.
func (w *World) Verify() error {
	if w.destroyed {
		return ErrWorldDestroyed
	}

	var errs []error
	b := &w.bodies
	if b.used > b.capacity() {
		errs = append(errs, fmt.Errorf("bodies: %d slots used, capacity %d", b.used, b.capacity()))
	}
	if b.live+len(b.free) != b.used {
		errs = append(errs, fmt.Errorf("bodies: %d live + %d free != %d used", b.live, len(b.free), b.used))
	}
	for _, i := range b.free {
		if int(i) >= b.used || b.kind[i] != Deleted {
			errs = append(errs, fmt.Errorf("bodies: free slot %d is in use", i))
		}
	}
	live := 0
	for i := 0; i < b.used && i < b.capacity(); i++ {
		if b.kind[i] != Deleted {
			live++
		}
		if b.gen[i] == 0 {
			errs = append(errs, fmt.Errorf("bodies: slot %d has generation 0", i))
		}
	}
	if live != b.live {
		errs = append(errs, fmt.Errorf("bodies: counted %d live, recorded %d", live, b.live))
	}

	p := &w.joints
	if p.count < 0 || p.count > p.used || p.used > p.capacity() {
		errs = append(errs, fmt.Errorf("joints: %d live, %d used, capacity %d", p.count, p.used, p.capacity()))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrCorruptArena, errors.Join(errs...))
	}
	return nil
}
