// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package network

import "fmt"

// Component is one term of an expansion: a tensor network with a complex
// coefficient.
type Component struct {
	Network *Network
	Coeff   complex128
}

// Expansion is a linear combination of tensor networks sharing a
// congruent output shape and signature, tagged ket or bra (spec.md §4.3).
type Expansion struct {
	Components []Component
	IsBra      bool
}

// NewExpansion creates an empty ket expansion.
func NewExpansion() *Expansion {
	return &Expansion{}
}

// Append adds a component with the given coefficient, validating that its
// open shape matches every existing component's.
func (e *Expansion) Append(n *Network, coeff complex128) error {
	if len(e.Components) > 0 {
		want := e.Components[0].Network.OpenShape()
		got := n.OpenShape()
		if !want.Equal(got) {
			return fmt.Errorf("network: expansion component shape %v does not match existing shape %v", got, want)
		}
	}
	e.Components = append(e.Components, Component{Network: n, Coeff: coeff})
	return nil
}

// Concat sums two expansions by direct concatenation of their components.
func Concat(a, b *Expansion) (*Expansion, error) {
	if a.IsBra != b.IsBra {
		return nil, fmt.Errorf("network: cannot concatenate a ket expansion with a bra expansion")
	}
	out := &Expansion{IsBra: a.IsBra}
	out.Components = append(out.Components, a.Components...)
	for _, c := range b.Components {
		if err := out.Append(c.Network, c.Coeff); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Inner forms the component-wise <bra|ket> contraction: for every pair of
// components (one from each expansion), the two networks' outputs are
// glued into a single closed (rank-0) network with coefficient equal to
// the conjugate of the bra coefficient times the ket coefficient. The
// caller's DAG/planner layer is responsible for actually evaluating the
// resulting scalar sum; Inner only builds the symbolic expansion.
func Inner(bra, ket *Expansion) (*Expansion, error) {
	if !bra.IsBra {
		return nil, fmt.Errorf("network: Inner requires the first expansion to be tagged bra")
	}
	if ket.IsBra {
		return nil, fmt.Errorf("network: Inner requires the second expansion to be tagged ket")
	}
	out := &Expansion{IsBra: false}
	for _, b := range bra.Components {
		for _, k := range ket.Components {
			glued, err := glueBraKet(b.Network, k.Network)
			if err != nil {
				return nil, err
			}
			coeff := cconj(b.Coeff) * k.Coeff
			out.Components = append(out.Components, Component{Network: glued, Coeff: coeff})
		}
	}
	return out, nil
}

func cconj(c complex128) complex128 { return complex(real(c), -imag(c)) }

// glueBraKet merges a bra network's connections with a ket network's,
// gluing each bra open leg to the corresponding ket open leg by position.
// Both networks must have the same open rank and congruent shapes.
func glueBraKet(bra, ket *Network) (*Network, error) {
	braShape, ketShape := bra.OpenShape(), ket.OpenShape()
	if !braShape.Equal(ketShape) {
		return nil, fmt.Errorf("network: bra shape %v does not match ket shape %v", braShape, ketShape)
	}
	glued := &Network{Name: bra.Name + "*" + ket.Name, conns: map[int]*Connection{}, nextID: 1}
	idMap := map[int]int{} // bra old id -> new id; ket ids are mapped through ketIDMap below
	offset := 0
	for _, c := range bra.Connections() {
		if c.ID == OutputID {
			continue
		}
		newID := glued.nextID
		glued.nextID++
		idMap[c.ID] = newID
		glued.conns[newID] = c.clone()
		glued.conns[newID].ID = newID
		if c.Tensor != nil {
			c.Tensor.Retain()
		}
	}
	offset = glued.nextID
	ketIDMap := map[int]int{}
	for _, c := range ket.Connections() {
		if c.ID == OutputID {
			continue
		}
		newID := offset + c.ID - 1
		ketIDMap[c.ID] = newID
		glued.conns[newID] = c.clone()
		glued.conns[newID].ID = newID
		if c.Tensor != nil {
			c.Tensor.Retain()
		}
		if newID >= glued.nextID {
			glued.nextID = newID + 1
		}
	}
	// Rewire internal (non-open) legs to the new ids.
	remap := func(id int, m map[int]int) int {
		if id == OutputID {
			return OutputID
		}
		return m[id]
	}
	for _, c := range bra.Connections() {
		if c.ID == OutputID {
			continue
		}
		gc := glued.conns[idMap[c.ID]]
		for i, leg := range gc.Legs {
			if leg.PeerID != OutputID {
				gc.Legs[i].PeerID = remap(leg.PeerID, idMap)
			}
		}
	}
	for _, c := range ket.Connections() {
		if c.ID == OutputID {
			continue
		}
		gc := glued.conns[ketIDMap[c.ID]]
		for i, leg := range gc.Legs {
			if leg.PeerID != OutputID {
				gc.Legs[i].PeerID = remap(leg.PeerID, ketIDMap)
			}
		}
	}
	// Glue: each bra open leg (slot i) connects to ket's open leg (slot i).
	glued.conns[OutputID] = &Connection{ID: OutputID, Legs: nil}
	for i, braLeg := range bra.Output().Legs {
		ketLeg := ket.Output().Legs[i]
		braNewID, braDim := idMap[braLeg.PeerID], braLeg.PeerDim
		ketNewID, ketDim := ketIDMap[ketLeg.PeerID], ketLeg.PeerDim
		glued.conns[braNewID].Legs[braDim] = Leg{PeerID: ketNewID, PeerDim: ketDim, Direction: Undirected}
		glued.conns[ketNewID].Legs[ketDim] = Leg{PeerID: braNewID, PeerDim: braDim, Direction: Undirected}
	}
	return glued, nil
}
