// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package format implements the plain-text tensor file format of
// spec.md §6: a storage-mode line, a name line, a shape line, a
// signature line of anonymous-space base offsets, and either dense
// (column-major, any count per line) or list (one index-value entry per
// line) element data. It is grounded on internal/serialization's
// reader/writer/ValidationError split, but the wire grammar itself is
// the spec's text format rather than the teacher's binary .born layout.
package format

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tnet-go/tnet/internal/space"
	"github.com/tnet-go/tnet/internal/tensor"
)

// Storage names the two element-layout modes a tensor file can use.
type Storage string

const (
	// Dense lists every element in column-major generalized order.
	Dense Storage = "dense"
	// List gives one value-plus-full-index entry per line, for sparse
	// or block-sparse tensors.
	List Storage = "list"
)

// Entry is one list-mode element: a value and its full multi-index.
type Entry struct {
	Value   complex128
	Indices []int64
}

// WriteDense writes t in dense mode: data must hold exactly
// t.Shape().Volume() elements in column-major generalized order.
func WriteDense(w io.Writer, t *tensor.Tensor, data []complex128) error {
	if want := t.Shape().Volume(); int64(len(data)) != want {
		return &ValidationError{Type: "element_count", Tensor: t.Name(),
			Details: fmt.Sprintf("got %d elements, want %d (shape volume)", len(data), want)}
	}
	bw := bufio.NewWriter(w)
	writeHeader(bw, Dense, t)
	for i, v := range data {
		if i > 0 {
			fmt.Fprint(bw, " ")
		}
		fmt.Fprintf(bw, "%s", formatComplex(v))
	}
	fmt.Fprintln(bw)
	return bw.Flush()
}

// WriteList writes t in list mode: one "<value> <index_1> <index_2> …"
// entry per line. entries need not cover every index (block-sparse).
func WriteList(w io.Writer, t *tensor.Tensor, entries []Entry) error {
	bw := bufio.NewWriter(w)
	writeHeader(bw, List, t)
	for _, e := range entries {
		if len(e.Indices) != t.Rank() {
			return &ValidationError{Type: "index_rank", Tensor: t.Name(),
				Details: fmt.Sprintf("entry has %d indices, want rank %d", len(e.Indices), t.Rank())}
		}
		fmt.Fprint(bw, formatComplex(e.Value))
		for _, idx := range e.Indices {
			fmt.Fprintf(bw, " %d", idx)
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

func writeHeader(w *bufio.Writer, storage Storage, t *tensor.Tensor) {
	fmt.Fprintln(w, storage)
	fmt.Fprintln(w, t.Name())
	fmt.Fprintln(w, joinInt64(t.Shape()))
	fmt.Fprintln(w, joinOffsets(t.Signature()))
}

func joinInt64(shape tensor.Shape) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.FormatInt(d, 10)
	}
	return strings.Join(parts, " ")
}

func joinOffsets(sig tensor.Signature) string {
	parts := make([]string, len(sig))
	for i, d := range sig {
		parts[i] = strconv.FormatUint(uint64(d.Subspace), 10)
	}
	return strings.Join(parts, " ")
}

func formatComplex(v complex128) string {
	return fmt.Sprintf("%g %g", real(v), imag(v))
}

// ReadDense parses a dense-mode tensor file, constructing a fresh anonymous-
// space signature from the file's base-offset line and registering the
// resulting tensor in reg.
func ReadDense(r io.Reader, reg *space.Registry) (*tensor.Tensor, []complex128, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	storage, name, shape, sig, err := readHeader(sc)
	if err != nil {
		return nil, nil, err
	}
	if storage != Dense {
		return nil, nil, &ValidationError{Type: "storage_mode", Tensor: name,
			Details: fmt.Sprintf("got %q, want %q", storage, Dense)}
	}
	var values []float64
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		for _, tok := range strings.Fields(line) {
			f, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, nil, &ValidationError{Type: "element_parse", Tensor: name, Details: err.Error()}
			}
			values = append(values, f)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	if len(values)%2 != 0 {
		return nil, nil, &ValidationError{Type: "element_parse", Tensor: name,
			Details: "odd number of real/imaginary tokens"}
	}
	data := make([]complex128, len(values)/2)
	for i := range data {
		data[i] = complex(values[2*i], values[2*i+1])
	}
	t, err := tensor.New(reg, name, shape, sig, tensor.Complex64)
	if err != nil {
		return nil, nil, err
	}
	if want := shape.Volume(); int64(len(data)) != want {
		return nil, nil, &ValidationError{Type: "element_count", Tensor: name,
			Details: fmt.Sprintf("got %d elements, want %d (shape volume)", len(data), want)}
	}
	return t, data, nil
}

// ReadList parses a list-mode tensor file.
func ReadList(r io.Reader, reg *space.Registry) (*tensor.Tensor, []Entry, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	storage, name, shape, sig, err := readHeader(sc)
	if err != nil {
		return nil, nil, err
	}
	if storage != List {
		return nil, nil, &ValidationError{Type: "storage_mode", Tensor: name,
			Details: fmt.Sprintf("got %q, want %q", storage, List)}
	}
	var entries []Entry
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		toks := strings.Fields(line)
		if len(toks) != 2+len(shape) {
			return nil, nil, &ValidationError{Type: "index_rank", Tensor: name,
				Details: fmt.Sprintf("entry has %d fields, want %d (value re,im + %d indices)", len(toks), 2+len(shape), len(shape))}
		}
		re, err := strconv.ParseFloat(toks[0], 64)
		if err != nil {
			return nil, nil, &ValidationError{Type: "element_parse", Tensor: name, Details: err.Error()}
		}
		im, err := strconv.ParseFloat(toks[1], 64)
		if err != nil {
			return nil, nil, &ValidationError{Type: "element_parse", Tensor: name, Details: err.Error()}
		}
		indices := make([]int64, len(shape))
		for i, tok := range toks[2:] {
			idx, err := strconv.ParseInt(tok, 10, 64)
			if err != nil {
				return nil, nil, &ValidationError{Type: "index_parse", Tensor: name, Details: err.Error()}
			}
			indices[i] = idx
		}
		entries = append(entries, Entry{Value: complex(re, im), Indices: indices})
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	t, err := tensor.New(reg, name, shape, sig, tensor.Complex64)
	if err != nil {
		return nil, nil, err
	}
	return t, entries, nil
}

func readHeader(sc *bufio.Scanner) (storage Storage, name string, shape tensor.Shape, sig tensor.Signature, err error) {
	if !sc.Scan() {
		return "", "", nil, nil, &ValidationError{Type: "header", Details: "missing storage mode line"}
	}
	storage = Storage(strings.TrimSpace(sc.Text()))
	if !sc.Scan() {
		return "", "", nil, nil, &ValidationError{Type: "header", Details: "missing tensor name line"}
	}
	name = strings.TrimSpace(sc.Text())
	if !sc.Scan() {
		return "", "", nil, nil, &ValidationError{Type: "header", Tensor: name, Details: "missing shape line"}
	}
	shapeToks := strings.Fields(sc.Text())
	shape = make(tensor.Shape, len(shapeToks))
	for i, tok := range shapeToks {
		d, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return "", "", nil, nil, &ValidationError{Type: "shape_parse", Tensor: name, Details: err.Error()}
		}
		shape[i] = d
	}
	if !sc.Scan() {
		return "", "", nil, nil, &ValidationError{Type: "header", Tensor: name, Details: "missing signature line"}
	}
	sigToks := strings.Fields(sc.Text())
	if len(sigToks) != len(shape) {
		return "", "", nil, nil, &ValidationError{Type: "signature_rank", Tensor: name,
			Details: fmt.Sprintf("signature has %d entries, want %d (shape rank)", len(sigToks), len(shape))}
	}
	sig = make(tensor.Signature, len(sigToks))
	for i, tok := range sigToks {
		off, err := strconv.ParseUint(tok, 10, 64)
		if err != nil {
			return "", "", nil, nil, &ValidationError{Type: "signature_parse", Tensor: name, Details: err.Error()}
		}
		sig[i] = tensor.DimSig{Space: space.AnonymousSpace, Subspace: space.SubspaceID(off)}
	}
	return storage, name, shape, sig, nil
}
