//go:build !windows

package winreg

// ReadString is unavailable off Windows.
func ReadString(path, name string) (string, error) {
	return "", ErrUnavailable
}

// SubKeyNames is unavailable off Windows.
func SubKeyNames(path string) ([]string, error) {
	return nil, ErrUnavailable
}

// KeyExists is unavailable off Windows.
func KeyExists(path string) (bool, error) {
	return false, ErrUnavailable
}

// HasValue is unavailable off Windows.
func HasValue(path, name string) (bool, error) {
	return false, ErrUnavailable
}
