// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package format provides the public API for the plain-text tensor file
// format of spec.md §6.
package format

import (
	"io"

	"github.com/tnet-go/tnet/internal/format"
	"github.com/tnet-go/tnet/space"
	"github.com/tnet-go/tnet/tensor"
)

// Storage names the two element-layout modes a tensor file can use.
type Storage = format.Storage

const (
	// Dense lists every element in column-major generalized order.
	Dense = format.Dense
	// List gives one value-plus-full-index entry per line.
	List = format.List
)

// Entry is one list-mode element: a value and its full multi-index.
type Entry = format.Entry

// ValidationError reports a malformed tensor file.
type ValidationError = format.ValidationError

// WriteDense writes t in dense mode.
func WriteDense(w io.Writer, t *tensor.Tensor, data []complex128) error {
	return format.WriteDense(w, t, data)
}

// WriteList writes t in list (block-sparse) mode.
func WriteList(w io.Writer, t *tensor.Tensor, entries []Entry) error {
	return format.WriteList(w, t, entries)
}

// ReadDense parses a dense-mode tensor file.
func ReadDense(r io.Reader, reg *space.Registry) (*tensor.Tensor, []complex128, error) {
	return format.ReadDense(r, reg)
}

// ReadList parses a list-mode tensor file.
func ReadList(r io.Reader, reg *space.Registry) (*tensor.Tensor, []Entry, error) {
	return format.ReadList(r, reg)
}
