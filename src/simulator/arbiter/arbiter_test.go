package arbiter

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Madhav-Malhotra/ml-accelerator-dataflows/src/simulator/signal"
)

// tick runs one evaluate/commit round, the way the platform clocks the
// component.
func tick(a *Arbiter, in Inputs) {
	a.Evaluate(in)
	a.Commit()
}

func requestsFor(numCores int, cores ...int) signal.Bitset {
	requests, err := signal.NewBitset(numCores)
	Expect(err).NotTo(HaveOccurred())
	for _, core := range cores {
		requests = requests.Set(core)
	}
	return requests
}

func loadConfig(length int) Config {
	return Config{Length: length, Direction: DirectionRead, LoadEnable: true}
}

var _ = Describe("Arbiter", func() {
	var a *Arbiter

	BeforeEach(func() {
		var err error
		a, err = New(4)
		Expect(err).NotTo(HaveOccurred())
	})

	It("starts with no grant and the pointer parked on the last core", func() {
		Expect(a.Grant().IsZero()).To(BeTrue())
		Expect(a.Granted()).To(Equal(-1))
		Expect(a.Pointer()).To(Equal(3))
		Expect(a.Address().Driven()).To(BeFalse())
		Expect(a.Loaded().IsZero()).To(BeTrue())
		Expect(a.Faulted()).To(BeFalse())
	})

	It("grants core 0 first from the initial pointer position", func() {
		tick(a, Inputs{Requests: requestsFor(4, 2, 0), Config: loadConfig(2)})
		Expect(a.Granted()).To(Equal(0))
		Expect(a.Grant().IsOneHot()).To(BeTrue())
	})

	Describe("burst accounting", func() {
		It("drives L addresses on the L ticks after the grant appears", func() {
			requests := requestsFor(4, 1)
			in := Inputs{Requests: requests, Config: loadConfig(3)}

			// Grant tick: the grant wire rises, the address bus is
			// still quiet.
			tick(a, in)
			Expect(a.Granted()).To(Equal(1))
			Expect(a.Address().Driven()).To(BeFalse())

			in.GrantAck = true
			for i := uint32(0); i < 3; i++ {
				tick(a, in)
				Expect(a.Granted()).To(Equal(1))
				addr, driven := a.Address().Sample()
				Expect(driven).To(BeTrue())
				Expect(addr).To(Equal(i))
			}

			// Cooldown tick: grant and address both clear.
			tick(a, Inputs{Requests: requestsFor(4)})
			Expect(a.Granted()).To(Equal(-1))
			Expect(a.Address().Driven()).To(BeFalse())
			Expect(a.Faulted()).To(BeFalse())

			stats := a.Stats()
			Expect(stats.GrantsIssued).To(Equal(int64(1)))
			Expect(stats.BurstsCompleted).To(Equal(int64(1)))
			Expect(stats.ActiveTicks).To(Equal(int64(3)))
			Expect(stats.Violations).To(BeZero())
		})

		It("marks the core loaded when a load burst completes", func() {
			in := Inputs{Requests: requestsFor(4, 2), Config: loadConfig(1)}
			tick(a, in)
			in.GrantAck = true
			tick(a, in)

			Expect(a.Loaded().Test(2)).To(BeTrue())
			Expect(a.Pointer()).To(Equal(2))
		})

		It("clears membership when an unload burst completes", func() {
			in := Inputs{Requests: requestsFor(4, 2), Config: loadConfig(1)}
			tick(a, in)
			in.GrantAck = true
			tick(a, in)
			tick(a, Inputs{Requests: requestsFor(4)})

			unload := Inputs{
				Requests: requestsFor(4, 2),
				Config:   Config{Length: 1, Direction: DirectionWrite, UnloadEnable: true},
			}
			tick(a, unload)
			Expect(a.Granted()).To(Equal(2))
			unload.GrantAck = true
			tick(a, unload)

			Expect(a.Loaded().Test(2)).To(BeFalse())
		})
	})

	Describe("rotating priority", func() {
		runBurst := func(expected int) {
			in := Inputs{Requests: requestsFor(4, 0, 1, 2, 3), Config: loadConfig(1)}
			tick(a, in)
			Expect(a.Granted()).To(Equal(expected))
			in.GrantAck = true
			tick(a, in)
			tick(a, Inputs{Requests: requestsFor(4)})
		}

		It("rotates through all requesters in index order", func() {
			for round := 0; round < 2; round++ {
				for core := 0; core < 4; core++ {
					runBurst(core)
				}
			}
		})

		It("skips non-requesting cores", func() {
			in := Inputs{Requests: requestsFor(4, 1, 3), Config: loadConfig(1)}
			tick(a, in)
			Expect(a.Granted()).To(Equal(1))
			in.GrantAck = true
			tick(a, in)
			tick(a, Inputs{Requests: requestsFor(4)})

			tick(a, in)
			Expect(a.Granted()).To(Equal(3))
		})

		It("keeps the grant one-hot on every tick of a contended run", func() {
			in := Inputs{Requests: requestsFor(4, 0, 1, 2, 3), Config: loadConfig(2), GrantAck: true}
			for i := 0; i < 32; i++ {
				in.GrantAck = !a.Grant().IsZero()
				tick(a, in)
				grant := a.Grant()
				Expect(grant.IsZero() || grant.IsOneHot()).To(BeTrue(),
					"tick %d produced grant %s", i, grant)
			}
		})
	})

	Describe("protocol violations", func() {
		startBurst := func(length int) Inputs {
			in := Inputs{Requests: requestsFor(4, 0), Config: loadConfig(length)}
			tick(a, in)
			Expect(a.Granted()).To(Equal(0))
			in.GrantAck = true
			tick(a, in)
			return in
		}

		It("latches an error when the grant acknowledgment is withdrawn", func() {
			in := startBurst(3)
			in.GrantAck = false
			tick(a, in)

			Expect(a.Error()).To(Equal(ErrGrantWithdrawn))
			Expect(a.Faulted()).To(BeTrue())
			Expect(a.Grant().IsZero()).To(BeTrue())
			Expect(a.Address().Driven()).To(BeFalse())
		})

		It("latches an error when the request line drops mid-burst", func() {
			in := startBurst(3)
			in.Requests = requestsFor(4)
			tick(a, in)

			Expect(a.Error()).To(Equal(ErrRequestWithdrawn))
		})

		It("rejects configurations with load and unload both enabled", func() {
			bad := Config{Length: 2, Direction: DirectionRead, LoadEnable: true, UnloadEnable: true}
			tick(a, Inputs{Requests: requestsFor(4, 0), Config: bad})

			Expect(a.Error()).To(Equal(ErrLoadUnloadConflict))
			Expect(a.Grant().IsZero()).To(BeTrue())
		})

		It("tolerates the phase advancing one step mid-burst", func() {
			in := Inputs{Requests: requestsFor(4, 0), Config: loadConfig(3), Phase: 0}
			tick(a, in)
			in.GrantAck = true
			tick(a, in)
			in.Phase = 1
			tick(a, in)

			Expect(a.Faulted()).To(BeFalse())
		})

		It("latches an error when the phase jumps out of sequence", func() {
			in := Inputs{Requests: requestsFor(4, 0), Config: loadConfig(3), Phase: 0}
			tick(a, in)
			in.GrantAck = true
			tick(a, in)
			in.Phase = 3
			tick(a, in)

			Expect(a.Error()).To(Equal(ErrPhaseConflict))
		})

		It("holds the error until an external reset", func() {
			in := startBurst(3)
			in.GrantAck = false
			tick(a, in)
			Expect(a.Faulted()).To(BeTrue())

			// New requests are ignored while the error is latched.
			for i := 0; i < 4; i++ {
				tick(a, Inputs{Requests: requestsFor(4, 0, 1), Config: loadConfig(1)})
				Expect(a.Grant().IsZero()).To(BeTrue())
				Expect(a.Faulted()).To(BeTrue())
			}

			tick(a, Inputs{Reset: true})
			Expect(a.Faulted()).To(BeFalse())
			Expect(a.Pointer()).To(Equal(3))
			Expect(a.Loaded().IsZero()).To(BeTrue())

			tick(a, Inputs{Requests: requestsFor(4, 1), Config: loadConfig(1)})
			Expect(a.Granted()).To(Equal(1))
		})
	})

	Describe("transfer tagging", func() {
		It("tags every transfer with a unique id", func() {
			in := Inputs{Requests: requestsFor(4, 0), Config: loadConfig(2)}
			tick(a, in)
			first := a.ActiveTransfer()
			Expect(first).NotTo(BeNil())
			firstID := first.ID

			in.GrantAck = true
			tick(a, in)
			tick(a, in)
			tick(a, Inputs{Requests: requestsFor(4)})

			tick(a, Inputs{Requests: requestsFor(4, 1), Config: loadConfig(1)})
			second := a.ActiveTransfer()
			Expect(second).NotTo(BeNil())
			Expect(second.ID).NotTo(Equal(firstID))
			Expect(second.Core).To(Equal(1))
		})
	})
})

var _ = Describe("Config", func() {
	It("rejects non-positive burst lengths", func() {
		Expect(Config{Length: 0, Direction: DirectionRead}.Validate()).To(HaveOccurred())
		Expect(Config{Length: -1, Direction: DirectionRead}.Validate()).To(HaveOccurred())
		Expect(Config{Length: 1, Direction: DirectionRead}.Validate()).To(Succeed())
	})

	It("rejects load and unload enabled together", func() {
		bad := Config{Length: 1, Direction: DirectionRead, LoadEnable: true, UnloadEnable: true}
		Expect(bad.Validate()).To(HaveOccurred())
	})
})
