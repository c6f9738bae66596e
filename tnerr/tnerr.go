// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tnerr is the error taxonomy of spec.md §7: sentinel errors for
// each error kind, plus detail types carrying the context a caller needs
// to diagnose a contract violation or a distributed consistency failure.
// It is grounded on internal/serialization's ValidationError shape (a
// type tag, the subject name, and free-form details), wrapped with
// github.com/pkg/errors for stack context when an error crosses the
// DAG pump → caller-of-sync goroutine boundary, and aggregated with
// go.uber.org/multierr when more than one failure applies at once.
package tnerr

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Sentinel errors, one per spec.md §7 error kind.
var (
	// ErrContractViolation marks a rejected-before-scheduling error:
	// wrong rank, incompatible shape/signature, malformed pattern, or
	// non-nested existence domains.
	ErrContractViolation = errors.New("tnerr: contract violation")
	// ErrRegistryMiss marks an operation submitted against an unknown
	// tensor or subspace name.
	ErrRegistryMiss = errors.New("tnerr: registry miss")
	// ErrDistributedConsistency marks a collective called with
	// mismatched tensor identity across participating processes.
	ErrDistributedConsistency = errors.New("tnerr: distributed consistency error")
	// ErrBackendFailure marks a back-end kernel reporting non-zero
	// status, surfaced through the op's completion record.
	ErrBackendFailure = errors.New("tnerr: back-end failure")
)

// ContractError details a contract violation: the operation id, the
// offending operand slot (-1 if not operand-specific), and the reason.
type ContractError struct {
	OpID    uint64
	Operand int
	Reason  string
}

func (e *ContractError) Error() string {
	if e.Operand >= 0 {
		return fmt.Sprintf("tnerr: contract violation: op %d operand %d: %s", e.OpID, e.Operand, e.Reason)
	}
	return fmt.Sprintf("tnerr: contract violation: op %d: %s", e.OpID, e.Reason)
}

func (e *ContractError) Unwrap() error { return ErrContractViolation }

// ConsistencyError details a distributed consistency failure: the
// tensor name and the participating ranks whose identity disagreed.
type ConsistencyError struct {
	Tensor string
	Ranks  []int
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("tnerr: distributed consistency error: tensor %q across ranks %v", e.Tensor, e.Ranks)
}

func (e *ConsistencyError) Unwrap() error { return ErrDistributedConsistency }

// Wrap attaches stack context to err using the underlying cause's
// message, for errors that cross the DAG pump → sync-caller boundary.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, message)
}

// Combine aggregates zero or more failures into one error, or nil if
// every argument is nil. network.Finalize uses this to report every
// dangling leg, wrong extent, or direction mismatch it finds in a
// single validation pass; engine.Shutdown also routes its teardown
// error through Combine, though today it only ever passes one.
func Combine(errs ...error) error {
	return multierr.Combine(errs...)
}
