// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu is the "webgpu" device back-end: it owns a real WebGPU
// device and queue (via github.com/go-webgpu/webgpu, the teacher's
// zero-CGO WebGPU binding) and manages GPU-resident buffer lifecycle for
// CREATE/DESTROY/FETCH/UPLOAD. It is grounded on the teacher's
// internal/backend/webgpu package's device/instance/adapter/queue setup
// and buffer upload/readback helpers, generalized from the teacher's
// fixed dense-NN op set to this package's CREATE/DESTROY/FETCH/UPLOAD
// subset of the primitive opcodes. The teacher's NN compute kernels
// (matmul, conv2d, attention, …) do not generalize to an index-pattern-
// driven, arbitrary-rank opcode set, so the remaining opcodes — the
// numeric kernels (TRANSFORM, CONTRACT, the SVD/orthogonalize family) —
// are not yet implemented here; WholeNetworkCapable reports false and
// Submit surfaces them as a back-end failure (spec.md §7) naming the
// "default" back-end as the fallback.
package webgpu

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/tnet-go/tnet/backend"
	"github.com/tnet-go/tnet/dag"
	"github.com/tnet-go/tnet/op"
	"github.com/tnet-go/tnet/tensor"
)

// Backend is the "webgpu" back-end: a real WebGPU device managing one
// GPU buffer per live tensor, keyed by the tensor's stable hash.
type Backend struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	mu      sync.Mutex
	buffers map[[32]byte]*wgpu.Buffer
	sizes   map[[32]byte]uint64
}

// New initializes a WebGPU instance, requests a high-performance adapter
// and device, and returns a Backend ready for CREATE/DESTROY/FETCH/UPLOAD.
// It returns an error if no compatible GPU and driver are available.
func New() (b *Backend, err error) {
	defer func() {
		if r := recover(); r != nil {
			b = nil
			err = fmt.Errorf("webgpu: native library not available: %v", r)
		}
	}()

	instance, instanceErr := wgpu.CreateInstance(nil)
	if instanceErr != nil {
		return nil, fmt.Errorf("webgpu: failed to create instance: %w", instanceErr)
	}
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request adapter: %w", adapterErr)
	}
	device, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to request device: %w", deviceErr)
	}
	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: failed to get queue")
	}

	return &Backend{
		instance: instance,
		adapter:  adapter,
		device:   device,
		queue:    queue,
		buffers:  make(map[[32]byte]*wgpu.Buffer),
		sizes:    make(map[[32]byte]uint64),
	}, nil
}

// IsAvailable reports whether a WebGPU adapter can be obtained on this
// system, for graceful fallback to the "default" CPU back-end.
func IsAvailable() bool {
	b, err := New()
	if err != nil {
		return false
	}
	b.Release()
	return true
}

// Release frees the backend's GPU buffers and tears down its device,
// adapter, and instance.
func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for h, buf := range b.buffers {
		buf.Release()
		delete(b.buffers, h)
	}
	if b.device != nil {
		b.device.Release()
	}
	if b.adapter != nil {
		b.adapter.Release()
	}
	if b.instance != nil {
		b.instance.Release()
	}
}

// Name identifies this back-end for the selector of spec.md §6.
func (b *Backend) Name() string { return "webgpu" }

// WholeNetworkCapable reports false: this back-end executes one
// primitive operation at a time.
func (b *Backend) WholeNetworkCapable() bool { return false }

type ticket struct {
	err error
}

// Submit issues n's operation against the GPU-resident buffer store.
func (b *Backend) Submit(n *dag.Node) (backend.Ticket, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &ticket{err: b.execute(n.Op)}, nil
}

// Poll reports the ticketed operation's outcome.
func (b *Backend) Poll(t backend.Ticket) (bool, error) {
	tk, ok := t.(*ticket)
	if !ok {
		return false, fmt.Errorf("webgpu: unrecognized ticket %T", t)
	}
	return true, tk.err
}

func (b *Backend) execute(o *op.Operation) error {
	switch o.Opcode {
	case op.NOOP:
		return nil
	case op.CREATE:
		return b.create(o)
	case op.DESTROY:
		return b.destroy(o)
	case op.FETCH, op.UPLOAD:
		return nil // single-process: the operand is already locally resident.
	case op.BROADCAST, op.ALLREDUCE:
		return nil // single-process: every rank is already the same rank.
	default:
		return fmt.Errorf("webgpu: opcode %v is not yet implemented on this back-end, use \"default\"", o.Opcode)
	}
}

func (b *Backend) create(o *op.Operation) error {
	t := o.Operands[0]
	size := uint64(t.Shape().Volume()) * 16 // complex128: two float64 lanes
	buf := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	b.buffers[t.Hash()] = buf
	b.sizes[t.Hash()] = size
	return nil
}

func (b *Backend) destroy(o *op.Operation) error {
	h := o.Operands[0].Hash()
	if buf, ok := b.buffers[h]; ok {
		buf.Release()
	}
	delete(b.buffers, h)
	delete(b.sizes, h)
	return nil
}

// Destroy releases t's GPU buffer directly, without going through
// Submit/Poll. It implements dag.Destroyer for the engine's garbage
// collector (spec.md §4.6 "sync(clean_garbage)").
func (b *Backend) Destroy(t *tensor.Tensor) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	h := t.Hash()
	if buf, ok := b.buffers[h]; ok {
		buf.Release()
	}
	delete(b.buffers, h)
	delete(b.sizes, h)
	return nil
}

// Seed uploads data into t's GPU buffer, for UPLOAD and for tests that
// need a fixed starting tensor.
func (b *Backend) Seed(t *tensor.Tensor, data []complex128) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.buffers[t.Hash()]
	if !ok {
		return fmt.Errorf("webgpu: tensor %q has no GPU buffer (missing CREATE?)", t.Name())
	}
	bytes := complexSliceToBytes(data)
	staging := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageCopySrc,
		Size:             uint64(len(bytes)),
		MappedAtCreation: wgpu.True,
	})
	defer staging.Release()
	mapped := staging.GetMappedRange(0, uint64(len(bytes)))
	copy(unsafe.Slice((*byte)(mapped), len(bytes)), bytes)
	staging.Unmap()

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(staging, 0, buf, 0, uint64(len(bytes)))
	b.queue.Submit(encoder.Finish(nil))
	return nil
}

// Fetch reads t's current GPU buffer contents back to host memory, for
// FETCH and for tests.
func (b *Backend) Fetch(t *tensor.Tensor) ([]complex128, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.buffers[t.Hash()]
	if !ok {
		return nil, fmt.Errorf("webgpu: tensor %q has no GPU buffer (missing CREATE?)", t.Name())
	}
	size := b.sizes[t.Hash()]
	staging := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer staging.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(buf, 0, staging, 0, size)
	b.queue.Submit(encoder.Finish(nil))

	if err := staging.MapAsync(b.device, wgpu.MapModeRead, 0, size); err != nil {
		return nil, fmt.Errorf("webgpu: failed to map staging buffer: %w", err)
	}
	mapped := staging.GetMappedRange(0, size)
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(mapped), size))
	staging.Unmap()
	return bytesToComplexSlice(out), nil
}
