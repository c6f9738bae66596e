// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package backend declares the asynchronous device back-end interface of
// spec.md §5: submit/poll, never blocking, named by string for the
// back-end selector of spec.md §6. It generalizes the teacher's
// synchronous tensor.Backend interface (Add/MatMul/Conv2D/… returning a
// *RawTensor immediately) to the async submit/poll shape spec.md
// requires, since here device kernels execute a closed opcode set of
// primitive operations rather than a fixed NN op set. It is structurally
// a superset of dag.Backend (it adds Name()), so any backend.Backend
// value can be passed directly where a dag.Backend is expected.
package backend

import (
	"github.com/tnet-go/tnet/dag"
)

// Ticket is an opaque handle a back-end returns from Submit, passed back
// to Poll.
type Ticket = dag.Ticket

// Backend is a named, asynchronous device back-end. Submit must not
// block; Poll reports whether the submitted node has retired (and any
// back-end failure, surfaced as spec.md §7's "back-end failure" kind).
type Backend interface {
	// Name identifies this back-end for the selector of spec.md §6
	// ("default", "webgpu", …).
	Name() string
	// Submit issues n's operation to the device without blocking.
	Submit(n *dag.Node) (Ticket, error)
	// Poll reports whether the ticketed operation has completed.
	Poll(t Ticket) (bool, error)
	// WholeNetworkCapable reports whether this back-end can evaluate an
	// entire tensor network as a unit, which the executor uses to
	// reduce its pipeline depth (spec.md §9's cuQuantum-style hook).
	WholeNetworkCapable() bool
}
