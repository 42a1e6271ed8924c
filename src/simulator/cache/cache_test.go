package cache

import "testing"

func cacheTick(c *Cache, in Inputs) {
	c.Evaluate(in)
	c.Commit()
}

func TestNewRejectsBadDepth(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatalf("zero depth accepted")
	}
}

func TestExactlyOneOutputDrivesPerState(t *testing.T) {
	c, err := New(4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cacheTick(c, Inputs{Ready: true, State: StateLoadWeight, BusIn: 11, WeightAddr: 0})
	cacheTick(c, Inputs{Ready: true, State: StateLoadActivation, BusIn: 22, ActAddr: 0})
	cacheTick(c, Inputs{Ready: true, State: StateStorePsum, GLBIn: 33, WeightAddr: 0})

	cases := []struct {
		state  State
		weight bool
		act    bool
		bus    bool
	}{
		{StateIdle, false, false, false},
		{StateLoadWeight, false, false, false},
		{StateLoadActivation, false, false, false},
		{StateStorePsum, false, false, false},
		{StateSendWeight, true, false, false},
		{StateSendActivation, false, true, false},
		{StateSendBoth, true, true, false},
		{StateSendPsum, false, false, true},
	}

	for _, tc := range cases {
		cacheTick(c, Inputs{Ready: true, State: tc.state})
		if c.WeightOut().Driven() != tc.weight {
			t.Fatalf("%s: weight port driven=%v", tc.state, c.WeightOut().Driven())
		}
		if c.ActivationOut().Driven() != tc.act {
			t.Fatalf("%s: activation port driven=%v", tc.state, c.ActivationOut().Driven())
		}
		if c.BusOut().Driven() != tc.bus {
			t.Fatalf("%s: bus port driven=%v", tc.state, c.BusOut().Driven())
		}
	}
}

func TestLoadThenSendRoundTrips(t *testing.T) {
	c, _ := New(4)

	cacheTick(c, Inputs{Ready: true, State: StateLoadWeight, BusIn: 5, WeightAddr: 2})
	cacheTick(c, Inputs{Ready: true, State: StateLoadActivation, BusIn: 7, ActAddr: 1})

	cacheTick(c, Inputs{Ready: true, State: StateSendBoth, WeightAddr: 2, ActAddr: 1})
	if value, _ := c.WeightOut().Sample(); value != 5 {
		t.Fatalf("weight out %d, want 5", value)
	}
	if value, _ := c.ActivationOut().Sample(); value != 7 {
		t.Fatalf("activation out %d, want 7", value)
	}

	cacheTick(c, Inputs{Ready: true, State: StateStorePsum, GLBIn: 99, WeightAddr: 3})
	cacheTick(c, Inputs{Ready: true, State: StateSendPsum, WeightAddr: 3})
	if value, _ := c.BusOut().Sample(); value != 99 {
		t.Fatalf("psum out %d, want 99", value)
	}
}

func TestReadyLowClearsTheFiles(t *testing.T) {
	c, _ := New(4)
	cacheTick(c, Inputs{Ready: true, State: StateLoadWeight, BusIn: 5, WeightAddr: 0})
	cacheTick(c, Inputs{Ready: true, State: StateStorePsum, GLBIn: 9, WeightAddr: 0})

	cacheTick(c, Inputs{Ready: false})
	if w, _ := c.PeekWeight(0); w != 0 {
		t.Fatalf("weight file survived ready low")
	}
	if p, _ := c.PeekPsum(0); p != 0 {
		t.Fatalf("psum file survived ready low")
	}
	if c.WeightOut().Driven() || c.ActivationOut().Driven() || c.BusOut().Driven() {
		t.Fatalf("outputs driven with ready low")
	}
}

func TestAddressesWrapModuloDepth(t *testing.T) {
	c, _ := New(4)
	cacheTick(c, Inputs{Ready: true, State: StateLoadWeight, BusIn: 8, WeightAddr: 6})
	if w, err := c.PeekWeight(2); err != nil || w != 8 {
		t.Fatalf("address 6 did not wrap to row 2: (%d,%v)", w, err)
	}
}
