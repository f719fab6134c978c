package inventory

const (
	cbsRebootPendingKey = `SOFTWARE\Microsoft\Windows\CurrentVersion\Component Based Servicing\RebootPending`
	wuRebootRequiredKey = `SOFTWARE\Microsoft\Windows\CurrentVersion\WindowsUpdate\Auto Update\RebootRequired`
	sessionManagerKey   = `SYSTEM\CurrentControlSet\Control\Session Manager`
)

// RebootPending reports whether the servicing stack, Windows Update, or a
// pending file rename already requires a restart.
func RebootPending() (bool, error) {
	if pending, err := keyExists(cbsRebootPendingKey); err != nil || pending {
		return pending, err
	}
	if pending, err := keyExists(wuRebootRequiredKey); err != nil || pending {
		return pending, err
	}
	return hasValue(sessionManagerKey, "PendingFileRenameOperations")
}
