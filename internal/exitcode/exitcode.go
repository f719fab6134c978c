// Package exitcode maps run outcomes onto the exit code contract deployment
// pipelines key on.
package exitcode

import (
	"errors"

	"github.com/opsdeploy/mak2kms/internal/osgate"
	"github.com/opsdeploy/mak2kms/internal/slmgr"
)

const (
	Success = 0

	// RebootRequired is the Windows installer convention
	// (ERROR_SUCCESS_REBOOT_REQUIRED), passed through only when the caller
	// opted in.
	RebootRequired = 3010

	// Failure covers any unhandled remediation error.
	Failure = 60001

	// ToolingMissing means the script host or licensing script could not be
	// found, so nothing was attempted.
	ToolingMissing = 60008

	// UnsupportedOS sits in the 69000-69999 range reserved for this task's
	// own conditions.
	UnsupportedOS = 69001
)

// FromRun picks the exit code for a finished run.
func FromRun(err error, rebootRequired, allowRebootPassthru bool) int {
	switch {
	case err == nil:
		if rebootRequired && allowRebootPassthru {
			return RebootRequired
		}
		return Success
	case errors.Is(err, osgate.ErrUnsupported):
		return UnsupportedOS
	case errors.Is(err, slmgr.ErrToolingMissing):
		return ToolingMissing
	default:
		return Failure
	}
}
