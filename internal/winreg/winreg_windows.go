//go:build windows

package winreg

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows/registry"
)

var views = []uint32{registry.WOW64_64KEY, registry.WOW64_32KEY}

// ReadString returns a REG_SZ value, trying the 64-bit view first and the
// 32-bit view second.
func ReadString(path, name string) (string, error) {
	for _, view := range views {
		k, err := registry.OpenKey(registry.LOCAL_MACHINE, path, registry.QUERY_VALUE|view)
		if err != nil {
			continue
		}
		v, _, err := k.GetStringValue(name)
		k.Close()
		if err == nil {
			return v, nil
		}
	}
	return "", fmt.Errorf(`%w: HKLM\%s %s`, ErrNotFound, path, name)
}

// SubKeyNames lists the direct subkeys of path.
func SubKeyNames(path string) ([]string, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, path, registry.ENUMERATE_SUB_KEYS|registry.QUERY_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return nil, fmt.Errorf(`%w: HKLM\%s`, ErrNotFound, path)
		}
		return nil, fmt.Errorf(`open HKLM\%s: %w`, path, err)
	}
	defer k.Close()

	names, err := k.ReadSubKeyNames(-1)
	if err != nil {
		return nil, fmt.Errorf(`enumerate HKLM\%s: %w`, path, err)
	}
	return names, nil
}

// KeyExists reports whether a key exists in either registry view.
func KeyExists(path string) (bool, error) {
	for _, view := range views {
		k, err := registry.OpenKey(registry.LOCAL_MACHINE, path, registry.QUERY_VALUE|view)
		if err == nil {
			k.Close()
			return true, nil
		}
		if !errors.Is(err, registry.ErrNotExist) {
			return false, fmt.Errorf(`open HKLM\%s: %w`, path, err)
		}
	}
	return false, nil
}

// HasValue reports whether a value of any type exists under path.
func HasValue(path, name string) (bool, error) {
	for _, view := range views {
		k, err := registry.OpenKey(registry.LOCAL_MACHINE, path, registry.QUERY_VALUE|view)
		if err != nil {
			continue
		}
		_, _, err = k.GetValue(name, nil)
		k.Close()
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, registry.ErrNotExist) {
			return false, fmt.Errorf(`read HKLM\%s %s: %w`, path, name, err)
		}
	}
	return false, nil
}
