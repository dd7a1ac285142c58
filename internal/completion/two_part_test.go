package completion_test

import (
	"sync"
	"sync/atomic"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/trask/brave-agent/internal/completion"
)

var _ = Describe("TwoPart", func() {
	var gate *completion.TwoPart

	BeforeEach(func() {
		gate = &completion.TwoPart{}
	})

	It("reports both done on the second part, part 1 first", func() {
		Expect(gate.CompletePart1()).To(BeFalse())
		Expect(gate.CompletePart2()).To(BeTrue())
		Expect(gate.Done()).To(BeTrue())
	})

	It("reports both done on the second part, part 2 first", func() {
		Expect(gate.CompletePart2()).To(BeFalse())
		Expect(gate.CompletePart1()).To(BeTrue())
	})

	It("never reports both done from a repeated part", func() {
		Expect(gate.CompletePart1()).To(BeFalse())
		Expect(gate.CompletePart1()).To(BeFalse())
		Expect(gate.Done()).To(BeFalse())
	})

	It("does not re-trigger once both parts are done", func() {
		gate.CompletePart1()
		Expect(gate.CompletePart2()).To(BeTrue())
		Expect(gate.CompletePart1()).To(BeFalse())
		Expect(gate.CompletePart2()).To(BeFalse())
	})

	It("fires exactly once under concurrent completion", func() {
		for round := 0; round < 200; round++ {
			gate := &completion.TwoPart{}
			var fired int32
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(2)
				go func() {
					defer wg.Done()
					if gate.CompletePart1() {
						atomic.AddInt32(&fired, 1)
					}
				}()
				go func() {
					defer wg.Done()
					if gate.CompletePart2() {
						atomic.AddInt32(&fired, 1)
					}
				}()
			}
			wg.Wait()
			Expect(atomic.LoadInt32(&fired)).To(Equal(int32(1)))
		}
	})
})
