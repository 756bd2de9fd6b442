// SPDX-License-Identifier: EPL-2.0

package capture

import "errors"

var (
	// ErrNotInitialized is returned by control operations before Init.
	ErrNotInitialized = errors.New("capture: controller not initialized")

	// ErrHardware wraps failures of the stream source. The source's own error
	// is joined to it, so errors.Is matches both.
	ErrHardware = errors.New("capture: audio hardware failure")

	// ErrInvalidConfig is returned when New or Init rejects a Config.
	ErrInvalidConfig = errors.New("capture: invalid configuration")
)
