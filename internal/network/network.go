// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package network

import (
	"fmt"
	"sort"

	"go.uber.org/multierr"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/tnet-go/tnet/internal/pattern"
	"github.com/tnet-go/tnet/internal/tensor"
)

// Network is a tensor-network graph: a map of connections keyed by id,
// with the output connection always at id 0 (spec.md §3).
type Network struct {
	Name      string
	conns     map[int]*Connection
	nextID    int
	Finalized bool
}

// LegRef is a placement-time leg request: either "open" (attaches to the
// network's output, at the next available output slot) or a reference to
// an already-placed connection's dimension.
type LegRef struct {
	Open      bool
	PeerID    int
	PeerDim   int
	Direction Direction
}

// NewNetwork starts a programmatic construction (spec.md §4.2 mode a) from
// an output tensor. The output connection (id 0) begins with zero legs;
// legs accumulate as input tensors are placed with open LegRefs.
func NewNetwork(name string, output *tensor.Tensor) *Network {
	return &Network{
		Name: name,
		conns: map[int]*Connection{
			OutputID: {ID: OutputID, Tensor: output, Legs: nil, Conjugated: false, Optimizable: false},
		},
		nextID: 1,
	}
}

// Output returns the output connection.
func (n *Network) Output() *Connection { return n.conns[OutputID] }

// Connection returns the connection with the given id.
func (n *Network) Connection(id int) (*Connection, bool) {
	c, ok := n.conns[id]
	return c, ok
}

// Connections returns every connection id in ascending order, output
// first. Map iteration order over n.conns is otherwise unspecified, so
// every caller that needs a reproducible traversal (fingerprinting,
// lowering, format export) goes through this method rather than
// ranging over the map directly.
func (n *Network) Connections() []*Connection {
	ids := maps.Keys(n.conns)
	slices.Sort(ids)
	out := make([]*Connection, len(ids))
	for i, id := range ids {
		out[i] = n.conns[id]
	}
	return out
}

// OpenShape returns the live shape implied by the output connection's
// current legs, reading extents off whichever peer tensor provides each
// open dimension. Useful after DeleteTensor changes the output's rank.
func (n *Network) OpenShape() tensor.Shape {
	output := n.conns[OutputID]
	shape := make(tensor.Shape, len(output.Legs))
	for i, leg := range output.Legs {
		peer := n.conns[leg.PeerID]
		shape[i] = peer.Tensor.Shape()[leg.PeerDim]
	}
	return shape
}

// OpenSignature returns the live signature implied by the output
// connection's current legs.
func (n *Network) OpenSignature() tensor.Signature {
	output := n.conns[OutputID]
	sig := make(tensor.Signature, len(output.Legs))
	for i, leg := range output.Legs {
		peer := n.conns[leg.PeerID]
		sig[i] = peer.Tensor.Signature()[leg.PeerDim]
	}
	return sig
}

// PlaceTensor places an input tensor, wiring each dimension's leg to a
// previously placed connection or to the network's output (spec.md §4.2
// mode a). It returns the new connection's id.
func (n *Network) PlaceTensor(t *tensor.Tensor, refs []LegRef, conjugated, optimizable bool) (int, error) {
	if n.Finalized {
		return 0, fmt.Errorf("network: cannot place a tensor into a finalized network")
	}
	if len(refs) != t.Rank() {
		return 0, fmt.Errorf("network: %d leg refs given for a rank-%d tensor", len(refs), t.Rank())
	}
	id := n.nextID
	legs := make([]Leg, len(refs))
	output := n.conns[OutputID]
	shape := t.Shape()

	for i, r := range refs {
		if r.Open {
			idx := len(output.Legs)
			output.Legs = append(output.Legs, Leg{PeerID: id, PeerDim: i, Direction: Undirected})
			legs[i] = Leg{PeerID: OutputID, PeerDim: idx, Direction: Undirected}
			continue
		}
		peer, ok := n.conns[r.PeerID]
		if !ok {
			return 0, fmt.Errorf("network: leg %d references unplaced connection %d", i, r.PeerID)
		}
		if r.PeerDim < 0 || r.PeerDim >= len(peer.Legs) {
			return 0, fmt.Errorf("network: leg %d references out-of-range dimension %d of connection %d", i, r.PeerDim, r.PeerID)
		}
		if peer.ID != OutputID {
			if peerExtent := peer.Tensor.Shape()[r.PeerDim]; peerExtent != shape[i] {
				return 0, fmt.Errorf("network: dimension %d extent %d does not match peer %d dimension %d extent %d",
					i, shape[i], r.PeerID, r.PeerDim, peerExtent)
			}
			// If the peer dimension was previously an open (output) leg,
			// this placement claims it: reclaim the output slot before
			// overwriting the peer's leg, so output.Legs never holds a
			// stale back-pointer.
			if existing := peer.Legs[r.PeerDim]; existing.PeerID == OutputID {
				n.removeOutputSlot(existing.PeerDim)
			}
		}
		legs[i] = Leg{PeerID: r.PeerID, PeerDim: r.PeerDim, Direction: r.Direction}
		peer.Legs[r.PeerDim] = Leg{PeerID: id, PeerDim: i, Direction: r.Direction.opposite()}
	}

	n.conns[id] = &Connection{ID: id, Tensor: t, Legs: legs, Conjugated: conjugated, Optimizable: optimizable}
	t.Retain()
	n.nextID++
	return id, nil
}

// Finalize verifies that every non-output leg has a symmetric peer with
// matching extents, and that the output connection's legs enumerate all
// open legs (spec.md §4.2). Every connection is checked regardless of
// earlier failures and the resulting errors are aggregated with
// multierr, since a malformed network commonly has more than one
// dangling or mismatched leg and reporting only the first hides the
// rest from the caller.
func (n *Network) Finalize() error {
	if n.Finalized {
		return fmt.Errorf("network: already finalized")
	}
	output := n.conns[OutputID]
	var errs []error
	for _, c := range n.conns {
		if c.ID == OutputID {
			continue
		}
		if len(c.Legs) != c.Tensor.Rank() {
			errs = append(errs, fmt.Errorf("network: connection %d has %d legs for a rank-%d tensor", c.ID, len(c.Legs), c.Tensor.Rank()))
			continue
		}
		for dim, leg := range c.Legs {
			if leg.IsOpen() {
				errs = append(errs, fmt.Errorf("network: connection %d dimension %d has no peer", c.ID, dim))
				continue
			}
			if leg.PeerID == OutputID {
				if leg.PeerDim < 0 || leg.PeerDim >= len(output.Legs) {
					errs = append(errs, fmt.Errorf("network: connection %d dimension %d references out-of-range output leg %d", c.ID, dim, leg.PeerDim))
					continue
				}
				back := output.Legs[leg.PeerDim]
				if back.PeerID != c.ID || back.PeerDim != dim {
					errs = append(errs, fmt.Errorf("network: output leg %d does not point back to connection %d dimension %d", leg.PeerDim, c.ID, dim))
				}
				continue
			}
			peer, ok := n.conns[leg.PeerID]
			if !ok {
				errs = append(errs, fmt.Errorf("network: connection %d dimension %d references unknown peer %d", c.ID, dim, leg.PeerID))
				continue
			}
			if leg.PeerDim < 0 || leg.PeerDim >= len(peer.Legs) {
				errs = append(errs, fmt.Errorf("network: connection %d dimension %d references out-of-range peer dimension", c.ID, dim))
				continue
			}
			back := peer.Legs[leg.PeerDim]
			if back.PeerID != c.ID || back.PeerDim != dim {
				errs = append(errs, fmt.Errorf("network: leg %d/%d and %d/%d are not symmetric peers", c.ID, dim, leg.PeerID, leg.PeerDim))
				continue
			}
			if leg.Direction != Undirected && back.Direction != leg.Direction.opposite() {
				errs = append(errs, fmt.Errorf("network: leg %d/%d and %d/%d have inconsistent directions", c.ID, dim, leg.PeerID, leg.PeerDim))
			}
			if peer.Tensor.Shape()[leg.PeerDim] != c.Tensor.Shape()[dim] {
				errs = append(errs, fmt.Errorf("network: extent mismatch on leg %d/%d <-> %d/%d", c.ID, dim, leg.PeerID, leg.PeerDim))
			}
		}
	}
	if output.Tensor != nil && output.Tensor.Rank() != len(output.Legs) {
		errs = append(errs, fmt.Errorf("network: output tensor has rank %d but %d open legs were wired", output.Tensor.Rank(), len(output.Legs)))
	}
	if err := multierr.Combine(errs...); err != nil {
		return err
	}
	n.Finalized = true
	return nil
}

// DeleteTensor removes a connection, promoting each of its legs that was
// contracted against another input connection to a new open leg on the
// output; legs that were already open (pointing at the output) are
// simply dropped along with that output slot (spec.md §4.2 "Editing").
func (n *Network) DeleteTensor(id int) error {
	if id == OutputID {
		return fmt.Errorf("network: cannot delete the output connection")
	}
	target, ok := n.conns[id]
	if !ok {
		return fmt.Errorf("network: unknown connection %d", id)
	}
	output := n.conns[OutputID]

	// Drop any output slots that belonged to this tensor's already-open
	// legs first, highest index first so later removals don't shift the
	// indices we still need to remove.
	var outputSlotsToDrop []int
	for dim, leg := range target.Legs {
		if leg.PeerID == OutputID {
			outputSlotsToDrop = append(outputSlotsToDrop, leg.PeerDim)
		}
		_ = dim
	}
	sort.Sort(sort.Reverse(sort.IntSlice(outputSlotsToDrop)))
	for _, slot := range outputSlotsToDrop {
		n.removeOutputSlot(slot)
	}

	// Promote every remaining (non-output) leg of the target to a new
	// open output leg.
	for dim, leg := range target.Legs {
		if leg.PeerID == OutputID {
			continue // already dropped above
		}
		peer, ok := n.conns[leg.PeerID]
		if !ok {
			continue
		}
		newSlot := len(output.Legs)
		output.Legs = append(output.Legs, Leg{PeerID: leg.PeerID, PeerDim: leg.PeerDim, Direction: Undirected})
		peer.Legs[leg.PeerDim] = Leg{PeerID: OutputID, PeerDim: newSlot, Direction: Undirected}
		_ = dim
	}

	delete(n.conns, id)
	return nil
}

// removeOutputSlot removes output.Legs[slot], reindexing every later
// slot's back-pointer on its peer connection.
func (n *Network) removeOutputSlot(slot int) {
	output := n.conns[OutputID]
	output.Legs = append(output.Legs[:slot], output.Legs[slot+1:]...)
	for i := slot; i < len(output.Legs); i++ {
		leg := output.Legs[i]
		if peer, ok := n.conns[leg.PeerID]; ok {
			peer.Legs[leg.PeerDim] = Leg{PeerID: OutputID, PeerDim: i, Direction: Undirected}
		}
	}
}

// Conjugate reverses the direction of every directed leg and toggles
// every non-output connection's conjugation flag in place; the output
// connection is never toggled (spec.md §4.2). It is an involution.
func (n *Network) Conjugate() *Network {
	for _, c := range n.conns {
		for i, leg := range c.Legs {
			leg.Direction = leg.Direction.opposite()
			c.Legs[i] = leg
		}
		if c.ID != OutputID {
			c.Conjugated = !c.Conjugated
		}
	}
	return n
}

// Clone deep-copies the connection graph, retaining a new shared-handle
// reference to every tensor still in use (networks own connections but
// not the tensors inside them).
func (n *Network) Clone() *Network {
	clone := &Network{Name: n.Name, conns: make(map[int]*Connection, len(n.conns)), nextID: n.nextID, Finalized: n.Finalized}
	for id, c := range n.conns {
		clone.conns[id] = c.clone()
		if c.Tensor != nil {
			c.Tensor.Retain()
		}
	}
	return clone
}

// BuildFromPattern implements the symbolic construction mode of spec.md
// §4.2 mode b: parse `Out(i,j)=A(i,k)*B(k,j)*…` and bind named tensors
// from the provided mapping. Every label used in exactly one input
// dimension and also in the output becomes an open leg; every label used
// in exactly two input dimensions becomes a contracted leg. Self-loops
// (a repeated label within a single tensor) are not supported by this
// constructor.
func BuildFromPattern(name, spec string, bindings map[string]*tensor.Tensor) (*Network, error) {
	p, err := pattern.Parse(spec)
	if err != nil {
		return nil, err
	}

	type occurrence struct {
		connID int
		dim    int
	}
	occ := map[string][]occurrence{}
	for ti, term := range p.Inputs {
		t, ok := bindings[term.Name]
		if !ok {
			return nil, fmt.Errorf("network: no tensor bound for %q", term.Name)
		}
		if len(term.Indices) != t.Rank() {
			return nil, fmt.Errorf("network: term %q has %d indices for a rank-%d tensor", term.Name, len(term.Indices), t.Rank())
		}
		connID := ti + 1
		for dim, label := range term.Indices {
			occ[label] = append(occ[label], occurrence{connID: connID, dim: dim})
		}
	}

	var output *tensor.Tensor
	if t, ok := bindings[p.Output.Name]; ok {
		output = t
	}
	n := &Network{
		Name:   name,
		conns:  map[int]*Connection{OutputID: {ID: OutputID, Tensor: output, Legs: make([]Leg, len(p.Output.Indices))}},
		nextID: len(p.Inputs) + 1,
	}
	for ti, term := range p.Inputs {
		t := bindings[term.Name]
		n.conns[ti+1] = &Connection{ID: ti + 1, Tensor: t, Legs: make([]Leg, len(term.Indices)), Conjugated: term.Conjugate}
		t.Retain()
	}

	assigned := map[string]bool{}
	for slot, label := range p.Output.Indices {
		os := occ[label]
		if len(os) != 1 {
			return nil, fmt.Errorf("network: open label %q must appear in exactly one input dimension, found %d", label, len(os))
		}
		o := os[0]
		n.conns[o.connID].Legs[o.dim] = Leg{PeerID: OutputID, PeerDim: slot, Direction: Undirected}
		n.conns[OutputID].Legs[slot] = Leg{PeerID: o.connID, PeerDim: o.dim, Direction: Undirected}
		assigned[label] = true
	}
	for label, os := range occ {
		if assigned[label] {
			continue
		}
		if len(os) != 2 {
			return nil, fmt.Errorf("network: contracted label %q must appear in exactly two input dimensions, found %d", label, len(os))
		}
		a, b := os[0], os[1]
		n.conns[a.connID].Legs[a.dim] = Leg{PeerID: b.connID, PeerDim: b.dim, Direction: Undirected}
		n.conns[b.connID].Legs[b.dim] = Leg{PeerID: a.connID, PeerDim: a.dim, Direction: Undirected}
	}

	// If the output name was not pre-bound, output.Tensor stays nil.
	// OpenShape/OpenSignature let the caller construct
	// a concrete output tensor (via tensor.New, which needs a registry)
	// once the network's open legs are known.
	return n, nil
}
