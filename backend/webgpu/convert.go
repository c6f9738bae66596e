// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package webgpu

import "unsafe"

// complexSliceToBytes reinterprets a []complex128 as its raw little-
// endian byte representation (two float64 lanes per element) for
// upload to a GPU buffer, without copying element-by-element.
func complexSliceToBytes(data []complex128) []byte {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*16)
}

// bytesToComplexSlice is complexSliceToBytes's inverse, copying a GPU
// buffer readback into a fresh []complex128.
func bytesToComplexSlice(data []byte) []complex128 {
	if len(data) == 0 {
		return nil
	}
	out := make([]complex128, len(data)/16)
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&out[0])), len(out)*16), data)
	return out
}
