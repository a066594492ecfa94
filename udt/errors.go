// SPDX-License-Identifier: MIT

package udt

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/dqmc/matrix"
)

// ErrStabilityFault is returned when a refactorization or the final
// inversion leaves the representable floating-point range.
var ErrStabilityFault = errors.New("udt: stability fault")

// ErrEmptyChain is returned for a chain without slices.
var ErrEmptyChain = errors.New("udt: empty propagator chain")

// fault maps numeric failures of the kernels onto ErrStabilityFault and
// passes every other error through with the stage tag.
func fault(stage string, err error) error {
	if errors.Is(err, matrix.ErrNaNInf) || errors.Is(err, matrix.ErrSingular) {
		return fmt.Errorf("%s: %v: %w", stage, err, ErrStabilityFault)
	}

	return fmt.Errorf("%s: %w", stage, err)
}
