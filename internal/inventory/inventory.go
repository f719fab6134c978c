// Package inventory answers questions about machine state: which
// applications are installed and whether a reboot is already pending.
package inventory

import (
	"errors"
	"strings"

	"github.com/opsdeploy/mak2kms/internal/model"
	"github.com/opsdeploy/mak2kms/internal/winreg"
)

var (
	readString  = winreg.ReadString
	subKeyNames = winreg.SubKeyNames
	keyExists   = winreg.KeyExists
	hasValue    = winreg.HasValue
)

var uninstallPaths = []string{
	`SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`,
	`SOFTWARE\Wow6432Node\Microsoft\Windows\CurrentVersion\Uninstall`,
}

// FindApp walks the uninstall registry keys in both views and returns the
// first application whose display name starts with prefix, or nil when
// nothing matches.
func FindApp(prefix string) (*model.InstalledApp, error) {
	for _, path := range uninstallPaths {
		keys, err := subKeyNames(path)
		if err != nil {
			if errors.Is(err, winreg.ErrNotFound) {
				continue
			}
			return nil, err
		}
		for _, key := range keys {
			name, err := readString(path+`\`+key, "DisplayName")
			if err != nil {
				// plenty of uninstall entries carry no display name
				continue
			}
			if strings.HasPrefix(name, prefix) {
				version, _ := readString(path+`\`+key, "DisplayVersion")
				return &model.InstalledApp{DisplayName: name, DisplayVersion: version}, nil
			}
		}
	}
	return nil, nil
}
