// SPDX-License-Identifier: MIT

package lifecycle

import (
	"errors"
	"fmt"

	"github.com/ManuGH/reportstream/internal/domain/report/model"
)

// ErrInvalidStatusTransition matches any *InvalidTransitionError.
var ErrInvalidStatusTransition = errors.New("invalid status transition")

// InvalidTransitionError is returned when requested is not reachable from Current in one step.
type InvalidTransitionError struct {
	Current   model.Status
	Requested model.Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition: %s -> %s", e.Current, e.Requested)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidStatusTransition
}
