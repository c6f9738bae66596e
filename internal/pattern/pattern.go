// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package pattern implements the operand-pattern mini-grammar of spec.md
// §6: strings of the form `OUT(i1,i2,…)[+]=IN1(…)[*IN2(…)]`, shared by the
// operation index pattern (spec.md §4.5) and the symbolic tensor-network
// construction mode (spec.md §4.2). It is parsed once per use — the
// executor parses an operation's pattern only once, as required.
package pattern

import (
	"fmt"
	"strings"
	"unicode"
)

// Term is one tensor reference in a pattern: a name, its ordered index
// labels, and whether it is marked conjugate with a trailing '+'.
type Term struct {
	Name      string
	Indices   []string
	Conjugate bool
}

// Pattern is a fully parsed operand pattern.
type Pattern struct {
	Output     Term
	Accumulate bool // true when the pattern used "+=" rather than "="
	Inputs     []Term
}

// Parse parses a pattern string. It is the sole entry point used by both
// op.Operation and network's symbolic construction mode.
func Parse(s string) (*Pattern, error) {
	s = strings.TrimSpace(s)
	var lhs, rhs string
	accumulate := false
	if i := strings.Index(s, "+="); i >= 0 {
		accumulate = true
		lhs, rhs = s[:i], s[i+2:]
	} else if i := strings.Index(s, "="); i >= 0 {
		lhs, rhs = s[:i], s[i+1:]
	} else {
		return nil, fmt.Errorf("pattern: missing '=' or '+=' in %q", s)
	}

	out, err := parseTerm(strings.TrimSpace(lhs))
	if err != nil {
		return nil, fmt.Errorf("pattern: output term: %w", err)
	}

	var inputs []Term
	for _, part := range strings.Split(rhs, "*") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("pattern: empty input term in %q", s)
		}
		term, err := parseTerm(part)
		if err != nil {
			return nil, fmt.Errorf("pattern: input term %q: %w", part, err)
		}
		inputs = append(inputs, term)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("pattern: at least one input term is required in %q", s)
	}

	return &Pattern{Output: out, Accumulate: accumulate, Inputs: inputs}, nil
}

func parseTerm(s string) (Term, error) {
	conjugate := strings.HasSuffix(s, "+")
	if conjugate {
		s = strings.TrimSuffix(s, "+")
	}
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return Term{}, fmt.Errorf("expected NAME(idx,...), got %q", s)
	}
	name := strings.TrimSpace(s[:open])
	if name == "" {
		return Term{}, fmt.Errorf("missing tensor name in %q", s)
	}
	inner := s[open+1 : len(s)-1]
	var indices []string
	if strings.TrimSpace(inner) != "" {
		for _, idx := range strings.Split(inner, ",") {
			idx = strings.TrimSpace(idx)
			if !isLabel(idx) {
				return Term{}, fmt.Errorf("invalid index label %q", idx)
			}
			indices = append(indices, idx)
		}
	}
	return Term{Name: name, Indices: indices, Conjugate: conjugate}, nil
}

func isLabel(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && !unicode.IsLower(r) {
			return false
		}
		if !unicode.IsLower(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Contracted returns the index labels shared between exactly the two
// given input terms — the contracted dimensions for a binary CONTRACT
// (spec.md §6).
func Contracted(a, b Term) []string {
	set := make(map[string]bool, len(a.Indices))
	for _, l := range a.Indices {
		set[l] = true
	}
	var shared []string
	for _, l := range b.Indices {
		if set[l] {
			shared = append(shared, l)
		}
	}
	return shared
}

// Open returns the index labels of term that also appear among the
// output's indices.
func Open(term, output Term) []string {
	set := make(map[string]bool, len(output.Indices))
	for _, l := range output.Indices {
		set[l] = true
	}
	var open []string
	for _, l := range term.Indices {
		if set[l] {
			open = append(open, l)
		}
	}
	return open
}

// Traced returns the index labels of term that appear in neither the
// other input term nor the output — indices summed within a single
// operand (spec.md §6, "labels appearing in only one input are traced").
func Traced(term, other, output Term) []string {
	inOther := make(map[string]bool, len(other.Indices))
	for _, l := range other.Indices {
		inOther[l] = true
	}
	inOutput := make(map[string]bool, len(output.Indices))
	for _, l := range output.Indices {
		inOutput[l] = true
	}
	var traced []string
	for _, l := range term.Indices {
		if !inOther[l] && !inOutput[l] {
			traced = append(traced, l)
		}
	}
	return traced
}
