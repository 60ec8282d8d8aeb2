package router_test

import (
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cortexeval/cortex-router/internal/provider"
	"github.com/cortexeval/cortex-router/internal/router"
)

var _ = Describe("ParseIntent", func() {
	It("should parse the plain forms", func() {
		Expect(router.ParseIntent("strong")).To(Equal(router.IntentStrong))
		Expect(router.ParseIntent("local")).To(Equal(router.IntentLocal))
		Expect(router.ParseIntent("cheap")).To(Equal(router.IntentCheap))
	})

	It("should tolerate the CLI flag form", func() {
		Expect(router.ParseIntent("--strong")).To(Equal(router.IntentStrong))
		Expect(router.ParseIntent("--local")).To(Equal(router.IntentLocal))
	})

	It("should normalize case and whitespace", func() {
		Expect(router.ParseIntent("  STRONG ")).To(Equal(router.IntentStrong))
		Expect(router.ParseIntent("Cheap")).To(Equal(router.IntentCheap))
	})

	It("should map unknown values to IntentNone", func() {
		Expect(router.ParseIntent("")).To(Equal(router.IntentNone))
		Expect(router.ParseIntent("fastest")).To(Equal(router.IntentNone))
		Expect(router.ParseIntent("--")).To(Equal(router.IntentNone))
	})
})

var _ = Describe("Decide", func() {
	var (
		log    *slog.Logger
		ollama *stubProvider
		groq   *stubProvider
		claude *stubProvider
	)

	BeforeEach(func() {
		log = slog.Default()
		ollama = newStub("ollama", provider.LaneFast)
		groq = newStub("groq", provider.LaneFast)
		claude = newStub("claude", provider.LaneSmart)
	})

	newRouter := func(fast ...provider.Provider) *router.Router {
		rt, err := router.New(log, fast, []provider.Provider{claude}, nil)
		Expect(err).NotTo(HaveOccurred())
		return rt
	}

	Context("hard constraints", func() {
		It("should route large contexts to the smart lane", func() {
			rt := newRouter(ollama, groq)

			d := rt.Decide(router.LargeContextThreshold+1, false, router.IntentNone)
			Expect(d.Lane).To(Equal(provider.LaneSmart))
			Expect(d.Provider.Name()).To(Equal("claude"))
			Expect(d.Reason).To(Equal("large context requires smart lane"))
		})

		It("should keep input exactly at the threshold on the fast lane", func() {
			rt := newRouter(ollama, groq)

			d := rt.Decide(router.LargeContextThreshold, false, router.IntentNone)
			Expect(d.Lane).To(Equal(provider.LaneFast))
		})

		It("should route vision requests to the smart lane", func() {
			rt := newRouter(ollama, groq)

			d := rt.Decide(10, true, router.IntentNone)
			Expect(d.Lane).To(Equal(provider.LaneSmart))
			Expect(d.Reason).To(Equal("vision capability required"))
		})

		It("should let size override a cheap intent", func() {
			rt := newRouter(ollama, groq)

			d := rt.Decide(150_000, false, router.IntentCheap)
			Expect(d.Lane).To(Equal(provider.LaneSmart))
			Expect(d.Reason).To(ContainSubstring("context"))
		})

		It("should let vision override a local intent", func() {
			rt := newRouter(ollama, groq)

			d := rt.Decide(10, true, router.IntentLocal)
			Expect(d.Lane).To(Equal(provider.LaneSmart))
			Expect(d.Reason).To(Equal("vision capability required"))
		})
	})

	Context("user intent", func() {
		It("should honor a strong intent", func() {
			rt := newRouter(ollama, groq)

			d := rt.Decide(10, false, router.IntentStrong)
			Expect(d.Lane).To(Equal(provider.LaneSmart))
			Expect(d.Reason).To(Equal("user requested strong analysis"))
		})

		It("should pick ollama for a local intent", func() {
			rt := newRouter(groq, ollama)

			d := rt.Decide(10, false, router.IntentLocal)
			Expect(d.Provider.Name()).To(Equal("ollama"))
			Expect(d.Reason).To(Equal("user requested local provider"))
		})

		It("should fall through to the default when ollama is absent", func() {
			rt := newRouter(groq)

			d := rt.Decide(10, false, router.IntentLocal)
			Expect(d.Provider.Name()).To(Equal("groq"))
			Expect(d.Reason).To(Equal("default fast lane"))
		})

		It("should pick the first fast provider for a cheap intent", func() {
			rt := newRouter(ollama, groq)

			d := rt.Decide(10, false, router.IntentCheap)
			Expect(d.Provider.Name()).To(Equal("ollama"))
			Expect(d.Reason).To(Equal("user requested cheap provider"))
		})
	})

	Context("default", func() {
		It("should route to the first fast provider", func() {
			rt := newRouter(ollama, groq)

			d := rt.Decide(500, false, router.IntentNone)
			Expect(d.Provider.Name()).To(Equal("ollama"))
			Expect(d.Lane).To(Equal(provider.LaneFast))
			Expect(d.Reason).To(Equal("default fast lane"))
		})

		It("should be deterministic for identical inputs", func() {
			rt := newRouter(ollama, groq)

			first := rt.Decide(500, false, router.IntentNone)
			for i := 0; i < 10; i++ {
				Expect(rt.Decide(500, false, router.IntentNone)).To(Equal(first))
			}
		})
	})
})
