// Copyright 2026 The torii-hdl authors.
// Licensed under the BSD 2-Clause license. See license text in the LICENSE file.

package hdl

import "sort"

// A DomainRenamer maps old domain names to new ones. Applying it to a
// Fragment produces a new Fragment with every domain reference rewritten:
// the per-domain statement grouping, domain definitions, and late-bound
// clock/reset references inside expressions. The original Fragment is left
// untouched.
//
type DomainRenamer map[string]string

func (r DomainRenamer) domain(name string) string {
	if n, ok := r[name]; ok {
		return n
	}
	return name
}

// Apply returns a copy of f with all domain references renamed. Renaming a
// domain into a name that already carries statements merges the two lists, in
// the fragment's domain first-use order. Subtrees without any reference to a
// renamed domain are shared with the original.
//
func (r DomainRenamer) Apply(f *Fragment) *Fragment {
	if _, ok := r[Comb]; ok {
		panic(designErrorf("the combinational domain cannot be renamed"))
	}
	for from, to := range r {
		if to == Comb {
			panic(designErrorf("domain %q cannot be renamed into the combinational domain", from))
		}
	}
	n := &Fragment{
		stmts:   make(map[string][]Statement, len(f.stmts)),
		domains: make(map[string]*ClockDomain, len(f.domains)),
		ports:   f.ports,
		path:    f.path,
	}
	seen := make(map[string]bool, len(f.order))
	for _, d := range f.order {
		nd := r.domain(d)
		n.stmts[nd] = append(n.stmts[nd], r.stmts(f.stmts[d])...)
		if !seen[nd] {
			seen[nd] = true
			n.order = append(n.order, nd)
		}
	}
	// a domain renamed onto an existing definition adopts that definition
	for d, cd := range f.domains {
		if r.domain(d) == d {
			n.domains[d] = cd
		}
	}
	defined := make([]string, 0, len(f.domains))
	for d := range f.domains {
		defined = append(defined, d)
	}
	sort.Strings(defined)
	for _, d := range defined {
		nd := r.domain(d)
		if _, ok := n.domains[nd]; !ok {
			n.domains[nd] = f.domains[d]
		}
	}
	for _, sub := range f.subs {
		n.subs = append(n.subs, SubFragment{Name: sub.Name, Frag: r.Apply(sub.Frag)})
	}
	return n
}

func (r DomainRenamer) stmts(ss []Statement) []Statement {
	out := make([]Statement, len(ss))
	for i, s := range ss {
		out[i] = r.stmt(s)
	}
	return out
}

func (r DomainRenamer) stmt(s Statement) Statement {
	switch t := s.(type) {
	case *Assign:
		tgt, src := r.value(t.target), r.value(t.source)
		if tgt == t.target && src == t.source {
			return t
		}
		return &Assign{target: tgt, source: src}
	case *Cond:
		n := &Cond{arms: make([]Arm, len(t.arms)), closed: t.closed}
		changed := false
		for i, a := range t.arms {
			cond := a.Cond
			if cond != nil {
				cond = r.value(cond)
			}
			body := r.stmts(a.Body)
			n.arms[i] = Arm{Cond: cond, Body: body}
			if cond != a.Cond || !sameStmts(body, a.Body) {
				changed = true
			}
		}
		if !changed {
			return t
		}
		return n
	case *Switch:
		n := &Switch{test: r.value(t.test), cases: make([]SwitchCase, len(t.cases)), hasDefault: t.hasDefault}
		changed := n.test != t.test
		for i, c := range t.cases {
			body := r.stmts(c.Body)
			n.cases[i] = SwitchCase{Pattern: c.Pattern, Default: c.Default, Body: body}
			if !sameStmts(body, c.Body) {
				changed = true
			}
		}
		if !changed {
			return t
		}
		return n
	default:
		return s
	}
}

func sameStmts(a, b []Statement) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// value rewrites clock/reset references inside v, sharing unchanged
// subtrees.
//
func (r DomainRenamer) value(v Value) Value {
	switch t := v.(type) {
	case *ClockSignalRef:
		if n := r.domain(t.domain); n != t.domain {
			return &ClockSignalRef{domain: n}
		}
		return t
	case *ResetSignalRef:
		if n := r.domain(t.domain); n != t.domain {
			return &ResetSignalRef{domain: n}
		}
		return t
	case *Operator:
		ops := make([]Value, len(t.operands))
		changed := false
		for i, o := range t.operands {
			ops[i] = r.value(o)
			changed = changed || ops[i] != o
		}
		if !changed {
			return t
		}
		return &Operator{op: t.op, operands: ops, shape: t.shape}
	case *Slice:
		if val := r.value(t.value); val != t.value {
			return &Slice{value: val, start: t.start, stop: t.stop}
		}
		return t
	case *Part:
		val, off := r.value(t.value), r.value(t.offset)
		if val != t.value || off != t.offset {
			return &Part{value: val, offset: off, width: t.width, stride: t.stride}
		}
		return t
	case *Cat:
		parts := make([]Value, len(t.parts))
		changed := false
		for i, p := range t.parts {
			parts[i] = r.value(p)
			changed = changed || parts[i] != p
		}
		if !changed {
			return t
		}
		return &Cat{parts: parts}
	case *Repl:
		if val := r.value(t.value); val != t.value {
			return &Repl{value: val, count: t.count}
		}
		return t
	default:
		return v
	}
}
