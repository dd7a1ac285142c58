package randx_test

import (
	"sync"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/trask/brave-agent/internal/randx"
)

var _ = Describe("GUID", func() {
	It("is deterministic for a seeded pool", func() {
		a := randx.NewPool(42, 1)
		b := randx.NewPool(42, 1)
		for i := 0; i < 10; i++ {
			Expect(randx.GUID(randx.WithPool(a))).To(Equal(randx.GUID(randx.WithPool(b))))
		}
	})

	It("returns distinct non-zero ids under concurrency", func() {
		var (
			mu   sync.Mutex
			seen = map[uint64]struct{}{}
			wg   sync.WaitGroup
		)
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 500; i++ {
					hi, lo := randx.GUID2()
					mu.Lock()
					seen[hi] = struct{}{}
					seen[lo] = struct{}{}
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		Expect(seen).To(HaveLen(8000))
		Expect(seen).ToNot(HaveKey(uint64(0)))
	})
})
