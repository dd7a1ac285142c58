package testtimex_test

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	. "github.com/trask/brave-agent/internal/timex/testtimex"
)

var _ = Describe("Clock", func() {
	var (
		start   time.Time
		subject *Clock
	)

	BeforeEach(func() {
		start = time.Unix(1000, 0)
		subject = NewClock(start)
	})

	Describe("#Now", func() {
		It("starts out at the provided time", func() {
			Expect(subject.Now()).To(Equal(start))
		})
	})

	Describe("#Advance", func() {
		It("moves the current time forward", func() {
			subject.Advance(time.Minute)
			subject.Advance(time.Hour)
			Expect(subject.Now()).To(Equal(start.Add(time.Hour + time.Minute)))
		})

		It("ignores non-positive durations", func() {
			subject.Advance(0)
			subject.Advance(-time.Hour)
			Expect(subject.Now()).To(Equal(start))
		})

		It("can be called concurrently", func() {
			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					subject.Advance(time.Second)
				}()
			}
			wg.Wait()
			Expect(subject.Since(start)).To(Equal(10 * time.Second))
		})
	})
})
