// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package engine

import (
	"fmt"

	"github.com/tnet-go/tnet/network"
	"github.com/tnet-go/tnet/op"
	"github.com/tnet-go/tnet/planner"
	"github.com/tnet-go/tnet/space"
	"github.com/tnet-go/tnet/tensor"
)

// legKey names one dimension of one connection, the unit a symbolic
// index label is assigned to.
type legKey struct {
	conn int
	dim  int
}

// legLabels assigns a stable symbolic index label to every leg of n,
// shared between a leg and its symmetric peer (spec.md §4.2's
// Finalize already guarantees every non-output leg has one). A single
// pass over every connection's legs, labeling both ends of a leg the
// first time either is seen, covers the whole network including the
// output connection.
func legLabels(n *network.Network) (labels map[legKey]string, extents map[string]int64, sigs map[string]tensor.DimSig) {
	labels = map[legKey]string{}
	extents = map[string]int64{}
	sigs = map[string]tensor.DimSig{}
	next := 0
	for _, c := range n.Connections() {
		for dim, leg := range c.Legs {
			key := legKey{c.ID, dim}
			label, ok := labels[key]
			if !ok {
				label = fmt.Sprintf("i%d", next)
				next++
				labels[key] = label
				labels[legKey{leg.PeerID, leg.PeerDim}] = label
			}
			if c.Tensor != nil {
				if _, have := extents[label]; !have {
					extents[label] = c.Tensor.Shape()[dim]
					sigs[label] = c.Tensor.Signature()[dim]
				}
			}
		}
	}
	return labels, extents, sigs
}

// Lower compiles a finalized network and a contraction-sequence plan
// (spec.md §4.4's Triple list) into the CREATE/CONTRACT/DESTROY/
// TRANSFORM primitive operations that realize it, in submission order
// ready for dag.Build. Each Triple{Left,Right,Result} contracts the
// tensor currently occupying vertex Left against the one occupying
// Right and reoccupies slot Result — always equal to Left, per every
// search strategy in internal/planner/strategy.go — with a freshly
// allocated intermediate, destroying the two inputs if they were
// themselves intermediates rather than original network tensors. The
// final surviving vertex is permuted by one TRANSFORM into n's output
// tensor (allocating one from n's open shape/signature if the network
// was built without binding an output tensor).
func Lower(n *network.Network, reg *space.Registry, triples []planner.Triple) ([]*op.Operation, *tensor.Tensor, error) {
	inputCount := 0
	for _, c := range n.Connections() {
		if c.ID != network.OutputID {
			inputCount++
		}
	}
	if inputCount > 0 && len(triples) != inputCount-1 {
		return nil, nil, fmt.Errorf("engine: plan has %d triples, want %d for a %d-tensor network", len(triples), inputCount-1, inputCount)
	}

	labels, extents, sigs := legLabels(n)
	termOf := func(connID int) []string {
		c, ok := n.Connection(connID)
		if !ok {
			return nil
		}
		out := make([]string, len(c.Legs))
		for dim := range c.Legs {
			out[dim] = labels[legKey{connID, dim}]
		}
		return out
	}

	elemType := tensor.Complex64
	if out := n.Output().Tensor; out != nil {
		elemType = out.ElementType()
	} else {
		for _, c := range n.Connections() {
			if c.ID != network.OutputID {
				elemType = c.Tensor.ElementType()
				break
			}
		}
	}

	current := map[int][]string{}
	tensors := map[int]*tensor.Tensor{}
	conj := map[int]bool{}
	synthetic := map[int]bool{}
	for _, c := range n.Connections() {
		if c.ID == network.OutputID {
			continue
		}
		current[c.ID] = termOf(c.ID)
		tensors[c.ID] = c.Tensor
		conj[c.ID] = c.Conjugated
	}

	var ops []*op.Operation
	for _, tr := range triples {
		leftLabels, rightLabels := current[tr.Left], current[tr.Right]
		rightSet := make(map[string]bool, len(rightLabels))
		for _, l := range rightLabels {
			rightSet[l] = true
		}
		leftSet := make(map[string]bool, len(leftLabels))
		for _, l := range leftLabels {
			leftSet[l] = true
		}
		var resultLabels []string
		for _, l := range leftLabels {
			if !rightSet[l] {
				resultLabels = append(resultLabels, l)
			}
		}
		for _, l := range rightLabels {
			if !leftSet[l] {
				resultLabels = append(resultLabels, l)
			}
		}

		shape := make(tensor.Shape, len(resultLabels))
		sig := make(tensor.Signature, len(resultLabels))
		for i, l := range resultLabels {
			shape[i] = extents[l]
			sig[i] = sigs[l]
		}
		result, err := tensor.New(reg, fmt.Sprintf("contract%d_%d", tr.Left, len(ops)), shape, sig, elemType)
		if err != nil {
			return nil, nil, fmt.Errorf("engine: allocating contraction result: %w", err)
		}

		createOp, err := op.New(op.CREATE, []*tensor.Tensor{result}, nil, "")
		if err != nil {
			return nil, nil, err
		}
		pat := termString("D", resultLabels, false) + "+=" +
			termString("L", leftLabels, conj[tr.Left]) + "*" +
			termString("R", rightLabels, conj[tr.Right])
		contractOp, err := op.New(op.CONTRACT, []*tensor.Tensor{result, tensors[tr.Left], tensors[tr.Right]}, []complex128{0, 1}, pat)
		if err != nil {
			return nil, nil, err
		}
		ops = append(ops, createOp, contractOp)

		if synthetic[tr.Left] {
			d, err := op.New(op.DESTROY, []*tensor.Tensor{tensors[tr.Left]}, nil, "")
			if err != nil {
				return nil, nil, err
			}
			ops = append(ops, d)
		}
		if synthetic[tr.Right] {
			d, err := op.New(op.DESTROY, []*tensor.Tensor{tensors[tr.Right]}, nil, "")
			if err != nil {
				return nil, nil, err
			}
			ops = append(ops, d)
		}

		delete(current, tr.Right)
		delete(tensors, tr.Right)
		delete(conj, tr.Right)
		delete(synthetic, tr.Right)
		current[tr.Left] = resultLabels
		tensors[tr.Left] = result
		conj[tr.Left] = false // the merged result's values are already conjugated where needed.
		synthetic[tr.Left] = true
	}

	if len(tensors) != 1 {
		return nil, nil, fmt.Errorf("engine: plan left %d disconnected component(s), want 1", len(tensors))
	}
	var lastID int
	for id := range tensors {
		lastID = id
	}
	lastLabels, lastTensor := current[lastID], tensors[lastID]

	final := n.Output().Tensor
	if final == nil {
		var err error
		final, err = tensor.New(reg, "output", n.OpenShape(), n.OpenSignature(), elemType)
		if err != nil {
			return nil, nil, fmt.Errorf("engine: allocating network output: %w", err)
		}
	}

	createFinal, err := op.New(op.CREATE, []*tensor.Tensor{final}, nil, "")
	if err != nil {
		return nil, nil, err
	}
	pat := termString("Out", termOf(network.OutputID), false) + "=" + termString("In", lastLabels, false)
	xformOp, err := op.New(op.TRANSFORM, []*tensor.Tensor{final, lastTensor}, []complex128{1}, pat)
	if err != nil {
		return nil, nil, err
	}
	ops = append(ops, createFinal, xformOp)

	if synthetic[lastID] {
		d, err := op.New(op.DESTROY, []*tensor.Tensor{lastTensor}, nil, "")
		if err != nil {
			return nil, nil, err
		}
		ops = append(ops, d)
	}

	return ops, final, nil
}

func termString(name string, labels []string, conjugate bool) string {
	s := name + "("
	for i, l := range labels {
		if i > 0 {
			s += ","
		}
		s += l
	}
	s += ")"
	if conjugate {
		s += "+"
	}
	return s
}
