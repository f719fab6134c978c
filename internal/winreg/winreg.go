// Package winreg wraps the local machine registry reads the remediation
// needs. All paths are relative to HKEY_LOCAL_MACHINE.
package winreg

import "errors"

// ErrNotFound reports a key or value that does not exist in either registry view.
var ErrNotFound = errors.New("registry value not found")

// ErrUnavailable reports that the registry does not exist on this platform.
var ErrUnavailable = errors.New("registry unavailable on this platform")
