package arbiter

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Madhav-Malhotra/ml-accelerator-dataflows/src/simulator/signal"
)

func cachedTick(c *CachedArbiter, in CachedInputs) {
	c.Evaluate(in)
	c.Commit()
}

var _ = Describe("CachedArbiter", func() {
	var c *CachedArbiter

	ready := func(cores ...int) CachedInputs {
		requests, err := signal.NewBitset(2)
		Expect(err).NotTo(HaveOccurred())
		for _, core := range cores {
			requests = requests.Set(core)
		}
		return CachedInputs{Ready: true, Requests: requests}
	}

	BeforeEach(func() {
		var err error
		c, err = NewCached(2, 2)
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects a non-positive burst length", func() {
		_, err := NewCached(2, 0)
		Expect(err).To(HaveOccurred())
	})

	It("leaves RESET once ready and idles until a request arrives", func() {
		cachedTick(c, ready())
		Expect(c.Phase()).To(Equal(CachedIdle))

		cachedTick(c, ready())
		Expect(c.Phase()).To(Equal(CachedIdle))
		Expect(c.Grant().IsZero()).To(BeTrue())
		Expect(c.BusAddress().Driven()).To(BeFalse())
	})

	It("replays config, weight and activation bursts before marking a core loaded", func() {
		cachedTick(c, ready())       // RESET -> IDLE
		cachedTick(c, ready(0))      // IDLE -> LOCK (snapshot)
		Expect(c.Phase()).To(Equal(CachedLock))
		cachedTick(c, ready(0))      // LOCK -> ARBITRATE
		cachedTick(c, ready(0))      // ARBITRATE -> READ, grant up
		Expect(c.Phase()).To(Equal(CachedRead))
		Expect(c.Grant().Test(0)).To(BeTrue())

		// Three staged bursts of two beats each: addresses 0..5 in core
		// 0's memory window.
		for beat := uint32(0); beat < 6; beat++ {
			cachedTick(c, ready(0))
			addr, driven := c.BusAddress().Sample()
			Expect(driven).To(BeTrue())
			Expect(addr).To(Equal(beat))
			Expect(c.BusRW().IsHigh()).To(BeTrue())
			burst, _ := c.BusBurst().Sample()
			Expect(burst).To(Equal(uint32(2)))
		}

		Expect(c.Phase()).To(Equal(CachedIdle))
		Expect(c.Loaded().Test(0)).To(BeTrue())

		// The idle tick after the final beat clears the grant and bus.
		cachedTick(c, ready())
		Expect(c.Grant().IsZero()).To(BeTrue())
		Expect(c.BusAddress().Driven()).To(BeFalse())
	})

	It("drains a loaded core with a single write burst", func() {
		cachedTick(c, ready())
		// Load core 0 end to end.
		cachedTick(c, ready(0))
		cachedTick(c, ready(0))
		cachedTick(c, ready(0))
		for beat := 0; beat < 6; beat++ {
			cachedTick(c, ready(0))
		}
		Expect(c.Loaded().Test(0)).To(BeTrue())

		// Second round for the same core becomes a write-back.
		cachedTick(c, ready(0)) // IDLE -> LOCK
		cachedTick(c, ready(0)) // LOCK -> ARBITRATE
		cachedTick(c, ready(0)) // ARBITRATE -> WRITE
		Expect(c.Phase()).To(Equal(CachedWrite))

		cachedTick(c, ready(0))
		Expect(c.BusRW().IsLow()).To(BeTrue())
		addr, driven := c.BusAddress().Sample()
		Expect(driven).To(BeTrue())
		Expect(addr).To(Equal(uint32(0)))

		cachedTick(c, ready(0))
		Expect(c.Phase()).To(Equal(CachedIdle))
		Expect(c.Loaded().Test(0)).To(BeFalse())
	})

	It("locks the request snapshot against late arrivals", func() {
		cachedTick(c, ready())
		cachedTick(c, ready(1))  // snapshot: only core 1
		cachedTick(c, ready(0, 1)) // core 0 arrives too late for this round
		cachedTick(c, ready(0, 1)) // ARBITRATE decides from the snapshot
		Expect(c.Grant().Test(1)).To(BeTrue())
		Expect(c.Grant().Test(0)).To(BeFalse())
	})

	It("returns to RESET and forgets membership when ready drops", func() {
		cachedTick(c, ready())
		cachedTick(c, ready(0))
		cachedTick(c, ready(0))
		cachedTick(c, ready(0))
		for beat := 0; beat < 6; beat++ {
			cachedTick(c, ready(0))
		}
		Expect(c.Loaded().Test(0)).To(BeTrue())

		cachedTick(c, CachedInputs{Ready: false})
		Expect(c.Phase()).To(Equal(CachedReset))
		Expect(c.Loaded().IsZero()).To(BeTrue())
		Expect(c.Grant().IsZero()).To(BeTrue())
	})
})
