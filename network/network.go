// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package network provides the public API for the tensor-network graph
// model of spec.md §3–§4.3: connections, legs, networks, and linear
// expansions of networks (kets/bras).
package network

import (
	"github.com/tnet-go/tnet/internal/network"
	"github.com/tnet-go/tnet/tensor"
)

// OutputID is the reserved connection id for a network's output tensor.
const OutputID = network.OutputID

// Direction classifies a tensor leg as undirected, inward, or outward.
type Direction = network.Direction

// Direction constants.
const (
	Undirected = network.Undirected
	Inward     = network.Inward
	Outward    = network.Outward
)

// OpenLeg marks a leg with no peer.
const OpenLeg = network.OpenLeg

// Leg is one dimension's connectivity record.
type Leg = network.Leg

// Connection places a tensor inside a network.
type Connection = network.Connection

// LegRef is a placement-time leg request.
type LegRef = network.LegRef

// Network is a tensor-network graph.
type Network = network.Network

// Component is one term of an Expansion.
type Component = network.Component

// Expansion is a linear combination of tensor networks, tagged ket or bra.
type Expansion = network.Expansion

// NewNetwork starts a programmatic construction from an output tensor.
func NewNetwork(name string, output *tensor.Tensor) *Network {
	return network.NewNetwork(name, output)
}

// BuildFromPattern builds a network from an operand-pattern expression,
// e.g. "Out(i,j)=A(i,k)*B(k,j)".
func BuildFromPattern(name, spec string, bindings map[string]*tensor.Tensor) (*Network, error) {
	return network.BuildFromPattern(name, spec, bindings)
}

// NewExpansion creates an empty ket expansion.
func NewExpansion() *Expansion {
	return network.NewExpansion()
}

// Concat sums two expansions of matching bra/ket tag by concatenation.
func Concat(a, b *Expansion) (*Expansion, error) {
	return network.Concat(a, b)
}

// Inner forms the symbolic <bra|ket> contraction between two expansions.
func Inner(bra, ket *Expansion) (*Expansion, error) {
	return network.Inner(bra, ket)
}
