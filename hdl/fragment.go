// Copyright 2026 The torii-hdl authors.
// Licensed under the BSD 2-Clause license. See license text in the LICENSE file.

package hdl

import "strconv"

// An Elaboratable is a design component. Elaboration must be deterministic:
// given the same component, it must describe the same module every time.
//
type Elaboratable interface {
	Elaborate(ctx *Context) *Module
}

// ElaborateFunc adapts a function to the Elaboratable interface.
//
type ElaborateFunc func(ctx *Context) *Module

// Elaborate implements Elaboratable.
//
func (f ElaborateFunc) Elaborate(ctx *Context) *Module { return f(ctx) }

// A Context carries the hierarchical position of the component being
// elaborated. It is passed explicitly down the elaboration recursion.
//
type Context struct {
	path []string
}

// Path returns the instance names from the design root down to, and
// including, the current component. The root has an empty path.
//
func (c *Context) Path() []string { return c.path }

// A Fragment is the immutable elaborated form of one design component:
// statements grouped per domain, the domains defined in its scope, child
// fragments and, on the root, the design's ports. Transforms produce new
// Fragments; existing ones are never modified.
//
type Fragment struct {
	stmts   map[string][]Statement
	order   []string
	domains map[string]*ClockDomain
	subs    []SubFragment
	ports   []*Signal
	path    []string
}

// A SubFragment is a named child in the fragment hierarchy.
//
type SubFragment struct {
	Name string
	Frag *Fragment
}

// Build elaborates the design rooted at top into a Fragment tree. The given
// signals become the design's ports. Elaboration aborts on the first shape
// or design error.
//
func Build(top Elaboratable, ports ...*Signal) (f *Fragment, err error) {
	defer func() {
		r := recover()
		switch e := r.(type) {
		case nil:
		case *ShapeError:
			err = e
		case *DesignError:
			err = e
		default:
			panic(r)
		}
	}()
	f = elaborate(top, nil)
	f.ports = ports
	return f, nil
}

func elaborate(e Elaboratable, path []string) *Fragment {
	ctx := &Context{path: path}
	m := e.Elaborate(ctx)
	if m == nil {
		panic(designErrorf("component %v elaborated to nothing", pathString(path)))
	}

	f := &Fragment{
		stmts:   make(map[string][]Statement, len(m.stmts)),
		order:   append([]string(nil), m.order...),
		domains: make(map[string]*ClockDomain, len(m.domains)),
		path:    append([]string(nil), path...),
	}
	for d, ss := range m.stmts {
		f.stmts[d] = append([]Statement(nil), ss...)
	}
	for _, cd := range m.domains {
		f.domains[cd.Name()] = cd
	}

	// Disambiguate duplicate instance names deterministically, in
	// registration order.
	seen := make(map[string]int, len(m.subs))
	for _, sub := range m.subs {
		name := sub.name
		if n, ok := seen[name]; ok {
			seen[name] = n + 1
			name += "$" + strconv.Itoa(n)
		} else {
			seen[name] = 1
		}
		f.subs = append(f.subs, SubFragment{
			Name: name,
			Frag: elaborate(sub.elab, append(path, name)),
		})
	}
	return f
}

func pathString(path []string) string {
	if len(path) == 0 {
		return "top"
	}
	s := "top"
	for _, p := range path {
		s += "." + p
	}
	return s
}

// Domains returns the clock domains defined in this fragment's scope, keyed
// by name.
//
func (f *Fragment) Domains() map[string]*ClockDomain { return f.domains }

// DomainOrder returns the names of the domains statements were added to, in
// first-use order.
//
func (f *Fragment) DomainOrder() []string { return f.order }

// Stmts returns the statements added to the named domain, in add order.
//
func (f *Fragment) Stmts(domain string) []Statement { return f.stmts[domain] }

// Subs returns the child fragments in registration order.
//
func (f *Fragment) Subs() []SubFragment { return f.subs }

// Ports returns the design ports. Only the root fragment carries ports.
//
func (f *Fragment) Ports() []*Signal { return f.ports }

// Path returns the fragment's instance path from the design root.
//
func (f *Fragment) Path() []string { return f.path }

// PathString returns the fragment's instance path as a dotted string.
//
func (f *Fragment) PathString() string { return pathString(f.path) }
