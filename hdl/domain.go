// Copyright 2026 The torii-hdl authors.
// Licensed under the BSD 2-Clause license. See license text in the LICENSE file.

package hdl

// Comb is the name of the distinguished combinational domain. It has no
// clock and no reset; assignments in it take effect within the same
// delta-cycle.
//
const Comb = "comb"

// ResetKind selects how a clock domain's reset is applied.
//
type ResetKind int

// Reset kinds.
const (
	// ResetSync applies the reset on the next active clock edge.
	ResetSync ResetKind = iota
	// ResetAsync applies the reset as soon as it is asserted.
	ResetAsync
	// ResetNone marks a domain without a reset signal.
	ResetNone
)

// Edge selects a clock domain's active edge.
//
type Edge int

// Clock edges.
const (
	Rising Edge = iota
	Falling
)

// A ClockDomain groups synchronous signals updated on the active edge of a
// shared clock, with an optional shared reset.
//
type ClockDomain struct {
	name      string
	clk       *Signal
	rst       *Signal
	resetKind ResetKind
	edge      Edge
}

// A DomainOption configures a ClockDomain at creation.
//
type DomainOption func(*ClockDomain)

// WithAsyncReset makes the domain's reset take effect immediately instead of
// at the next active clock edge.
//
func WithAsyncReset() DomainOption {
	return func(cd *ClockDomain) { cd.resetKind = ResetAsync }
}

// WithoutReset creates the domain with no reset signal at all.
//
func WithoutReset() DomainOption {
	return func(cd *ClockDomain) { cd.resetKind = ResetNone }
}

// WithFallingEdge makes the domain clock on falling edges.
//
func WithFallingEdge() DomainOption {
	return func(cd *ClockDomain) { cd.edge = Falling }
}

// NewClockDomain creates a named synchronous domain together with its clock
// signal "<name>_clk" and, unless disabled, its reset signal "<name>_rst".
//
func NewClockDomain(name string, opts ...DomainOption) *ClockDomain {
	if name == Comb {
		panic(designErrorf("%q is reserved for the combinational domain", Comb))
	}
	if name == "" {
		panic(designErrorf("clock domain must have a name"))
	}
	cd := &ClockDomain{name: name}
	for _, o := range opts {
		o(cd)
	}
	cd.clk = NewSignal(name+"_clk", Unsigned(1), ResetLess())
	if cd.resetKind != ResetNone {
		cd.rst = NewSignal(name+"_rst", Unsigned(1))
	}
	return cd
}

// Name returns the domain name.
//
func (cd *ClockDomain) Name() string { return cd.name }

// Clk returns the domain's clock signal.
//
func (cd *ClockDomain) Clk() *Signal { return cd.clk }

// Rst returns the domain's reset signal, or nil for a reset-less domain.
//
func (cd *ClockDomain) Rst() *Signal { return cd.rst }

// ResetKind returns how the domain's reset is applied.
//
func (cd *ClockDomain) ResetKind() ResetKind { return cd.resetKind }

// ActiveEdge returns the clock edge the domain commits on.
//
func (cd *ClockDomain) ActiveEdge() Edge { return cd.edge }
