package agent_test

import (
	"errors"
	"sync"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	agent "github.com/trask/brave-agent"
)

var _ = Describe("IncomingSpan", func() {
	var (
		f        *fixture
		incoming *agent.IncomingSpan
	)

	BeforeEach(func() {
		f = newFixture()
		incoming = f.start(map[string]string{})
	})

	It("finishes exactly once however often it ends", func() {
		incoming.End()
		incoming.End()
		incoming.EndWithError(errors.New("late"))
		incoming.EndWithInfo(nil)

		Expect(f.finished()).To(HaveLen(1))
		Expect(incoming.Finished()).To(BeTrue())
	})

	It("clears the holder on end", func() {
		Expect(f.holder.Get()).ToNot(BeNil())
		incoming.End()
		Expect(f.holder.Get()).To(BeNil())
	})

	It("leaves a later transaction in a reused holder alone", func() {
		incoming.End()
		next := f.start(map[string]string{})

		incoming.End()
		Expect(f.holder.Get()).ToNot(BeNil())
		Expect(f.holder.Get().Transaction()).To(BeIdenticalTo(next))
	})

	It("keeps the first error", func() {
		e1 := errors.New("first")
		incoming.SetError(e1)
		incoming.SetError(errors.New("second"))
		incoming.SetError(nil)
		Expect(incoming.Err()).To(Equal(e1))
	})

	It("forwards the recorded error to the native span", func() {
		e1 := errors.New("first")
		incoming.SetError(e1)
		incoming.EndWithError(errors.New("second"))

		raw := f.finished()[0]
		Expect(raw.Tags).To(HaveKeyWithValue("error", true))
		Expect(raw.Err()).To(Equal(e1))
	})

	It("does not record an info error", func() {
		incoming.EndWithInfo(errors.New("not found"))
		Expect(incoming.Err()).To(BeNil())
		Expect(f.finished()[0].Tags).ToNot(HaveKey("error"))
	})

	It("keeps the last user", func() {
		incoming.SetUser("alice")
		incoming.SetUser("bob")
		Expect(incoming.User()).To(Equal("bob"))
		incoming.End()
		Expect(f.finished()[0].Tags).To(HaveKeyWithValue(agent.TagTransactionUser, "bob"))
	})

	It("panics on Extend", func() {
		defer func() {
			r := recover()
			_, ok := r.(agent.ErrUnsupported)
			Expect(ok).To(BeTrue())
		}()
		incoming.Extend()
		Fail("Extend returned")
	})

	It("tags the request info", func() {
		incoming.SetRequestInfo(&agent.RequestInfo{Method: "GET", URI: "/users", RemoteAddr: "10.0.0.1"})
		incoming.End()
		tags := f.finished()[0].Tags
		Expect(tags).To(HaveKeyWithValue(agent.TagHTTPMethod, "GET"))
		Expect(tags).To(HaveKeyWithValue(agent.TagHTTPURL, "/users"))
		Expect(tags).To(HaveKeyWithValue(agent.TagPeerAddress, "10.0.0.1"))
	})

	Describe("async", func() {
		It("rejects completion of an undeclared async transaction", func() {
			Expect(incoming.SetAsyncComplete()).To(MatchError(agent.ErrAsyncNotDeclared))
			Expect(f.finished()).To(BeEmpty())
		})

		It("finishes on end once async completion was signaled", func() {
			incoming.SetAsync()
			Expect(incoming.SetAsyncComplete()).To(Succeed())
			Expect(f.finished()).To(BeEmpty())

			incoming.End()
			Expect(f.finished()).To(HaveLen(1))
		})

		It("finishes on async completion once ended", func() {
			incoming.SetAsync()
			incoming.End()
			Expect(f.finished()).To(BeEmpty())

			Expect(incoming.SetAsyncComplete()).To(Succeed())
			Expect(f.finished()).To(HaveLen(1))

			Expect(incoming.SetAsyncComplete()).To(Succeed())
			incoming.End()
			Expect(f.finished()).To(HaveLen(1))
		})

		It("ignores an async declaration made after the first end", func() {
			incoming.End()
			Expect(f.finished()).To(HaveLen(1))

			incoming.SetAsync()
			Expect(incoming.SetAsyncComplete()).To(Succeed())
			incoming.End()
			Expect(f.finished()).To(HaveLen(1))
		})

		It("keeps the first gate when declared twice", func() {
			incoming.SetAsync()
			Expect(incoming.SetAsyncComplete()).To(Succeed())
			incoming.SetAsync()
			incoming.End()
			Expect(f.finished()).To(HaveLen(1))
		})

		It("finishes once when both signals race", func() {
			for i := 0; i < 100; i++ {
				f := newFixture()
				incoming := f.start(map[string]string{})
				incoming.SetAsync()

				var wg sync.WaitGroup
				wg.Add(2)
				go func() {
					defer wg.Done()
					incoming.End()
				}()
				go func() {
					defer wg.Done()
					_ = incoming.SetAsyncComplete()
				}()
				wg.Wait()

				Expect(f.finished()).To(HaveLen(1))
			}
		})
	})
})
