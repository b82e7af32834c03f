// Package ranges implements integer revision-range arithmetic: parsing,
// canonicalisation, union, and subtraction of the comma-separated range
// grammar described by spec.md §6.2.
package ranges

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Pair is an inclusive [Lo, Hi] sub-range.
type Pair struct {
	Lo, Hi int
}

// Set is a sorted, non-overlapping, non-adjacent list of Pairs: its
// canonical form. All constructors and operations in this package return
// Sets in canonical form.
type Set []Pair

// Parse reads a comma-separated list of "N" or "N-M" sub-ranges into a
// canonical Set. "N-M" is the inclusive range between N and M (in either
// order); a lone "N" is the single-element range [N, N], so "N,M" is two
// single-element ranges.
func Parse(s string) (Set, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out Set
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		lo, hi, err := parseToken(tok)
		if err != nil {
			return nil, fmt.Errorf("ranges: parse %q: %w", s, err)
		}
		out = append(out, Pair{Lo: lo, Hi: hi})
	}
	return canonicalize(out), nil
}

func parseToken(tok string) (int, int, error) {
	if i := strings.IndexByte(tok, '-'); i > 0 {
		lo, err := strconv.Atoi(strings.TrimSpace(tok[:i]))
		if err != nil {
			return 0, 0, err
		}
		hi, err := strconv.Atoi(strings.TrimSpace(tok[i+1:]))
		if err != nil {
			return 0, 0, err
		}
		if hi < lo {
			lo, hi = hi, lo
		}
		return lo, hi, nil
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, 0, err
	}
	return n, n, nil
}

// Render renders a canonical Set back to its comma-separated string form,
// using "N-M" for multi-element sub-ranges and "N" for singletons.
func (s Set) Render() string {
	parts := make([]string, 0, len(s))
	for _, p := range s {
		if p.Lo == p.Hi {
			parts = append(parts, strconv.Itoa(p.Lo))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", p.Lo, p.Hi))
		}
	}
	return strings.Join(parts, ",")
}

// Contains reports whether n falls within any sub-range of s.
func (s Set) Contains(n int) bool {
	for _, p := range s {
		if n >= p.Lo && n <= p.Hi {
			return true
		}
	}
	return false
}

// canonicalize sorts pairs by Lo and merges overlapping or adjacent pairs.
func canonicalize(in Set) Set {
	if len(in) == 0 {
		return nil
	}
	cp := make(Set, len(in))
	copy(cp, in)
	sort.Slice(cp, func(i, j int) bool {
		if cp[i].Lo != cp[j].Lo {
			return cp[i].Lo < cp[j].Lo
		}
		return cp[i].Hi < cp[j].Hi
	})
	out := Set{cp[0]}
	for _, p := range cp[1:] {
		last := &out[len(out)-1]
		if p.Lo <= last.Hi+1 {
			if p.Hi > last.Hi {
				last.Hi = p.Hi
			}
			continue
		}
		out = append(out, p)
	}
	return out
}

// Combine returns the canonical union of a and b. Combine(a, b) == Combine(b, a).
func Combine(a, b Set) Set {
	merged := make(Set, 0, len(a)+len(b))
	merged = append(merged, a...)
	merged = append(merged, b...)
	return canonicalize(merged)
}

// Subtract returns a with every sub-range of b removed. Subtract(r, r) is
// always empty.
func Subtract(a, b Set) Set {
	if len(b) == 0 {
		return canonicalize(a)
	}
	var out Set
	for _, p := range canonicalize(a) {
		segments := []Pair{p}
		for _, q := range b {
			var next []Pair
			for _, seg := range segments {
				next = append(next, subtractPair(seg, q)...)
			}
			segments = next
		}
		out = append(out, segments...)
	}
	return canonicalize(out)
}

func subtractPair(seg, cut Pair) []Pair {
	if cut.Hi < seg.Lo || cut.Lo > seg.Hi {
		return []Pair{seg}
	}
	var out []Pair
	if cut.Lo > seg.Lo {
		out = append(out, Pair{Lo: seg.Lo, Hi: cut.Lo - 1})
	}
	if cut.Hi < seg.Hi {
		out = append(out, Pair{Lo: cut.Hi + 1, Hi: seg.Hi})
	}
	return out
}
