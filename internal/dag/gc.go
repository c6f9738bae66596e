// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dag

import "github.com/tnet-go/tnet/internal/tensor"

// Destroyer releases a tensor's backend storage. The CPU and WebGPU
// back-ends implement it by dropping the storage directly, without
// submitting a DESTROY operation.
type Destroyer interface {
	Destroy(t *tensor.Tensor) error
}

// CollectGarbage destroys backend storage for every tracked tensor
// whose reference count has dropped to one — meaning only the registry
// itself still holds it, per spec.md §4.6: "the tensor garbage
// collector, which destroys backend storage for handles whose
// reference count has dropped to one (only the registry holds them)."
func CollectGarbage(tracked []*tensor.Tensor, d Destroyer) error {
	for _, t := range tracked {
		if t.RefCount() == 1 {
			if err := d.Destroy(t); err != nil {
				return err
			}
		}
	}
	return nil
}
