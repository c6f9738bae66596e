// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package network

import "github.com/tnet-go/tnet/internal/tensor"

// OutputID is the reserved connection id for a network's output tensor.
const OutputID = 0

// Connection places a tensor inside a network: its id within the network,
// its per-dimension legs, and its conjugation/optimizable flags. The
// output connection (id 0) is never conjugated and never optimizable.
type Connection struct {
	ID          int
	Tensor      *tensor.Tensor
	Legs        []Leg
	Conjugated  bool
	Optimizable bool
}

func (c *Connection) clone() *Connection {
	legs := make([]Leg, len(c.Legs))
	copy(legs, c.Legs)
	return &Connection{
		ID:          c.ID,
		Tensor:      c.Tensor,
		Legs:        legs,
		Conjugated:  c.Conjugated,
		Optimizable: c.Optimizable,
	}
}
