// Package completion provides a gate that fires once two independent parts
// have both completed.
package completion

import "sync/atomic"

const (
	part1 uint32 = 1 << iota
	part2

	bothParts = part1 | part2
)

// TwoPart is a two-slot completion gate. Each part can be completed at most
// once; the call that completes the second outstanding part is the only one
// that reports true. The zero value is ready to use.
type TwoPart struct {
	state uint32
}

// CompletePart1 marks part 1 complete and reports whether part 2 was already
// complete.
func (c *TwoPart) CompletePart1() bool {
	return c.complete(part1)
}

// CompletePart2 marks part 2 complete and reports whether part 1 was already
// complete.
func (c *TwoPart) CompletePart2() bool {
	return c.complete(part2)
}

// Done reports whether both parts have completed.
func (c *TwoPart) Done() bool {
	return atomic.LoadUint32(&c.state) == bothParts
}

func (c *TwoPart) complete(part uint32) bool {
	for {
		old := atomic.LoadUint32(&c.state)
		if old&part != 0 {
			return false
		}
		if atomic.CompareAndSwapUint32(&c.state, old, old|part) {
			return old|part == bothParts
		}
	}
}
