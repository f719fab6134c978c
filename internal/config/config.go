package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/opsdeploy/mak2kms/internal/model"
)

// ToolPaths holds absolute paths to the external licensing tools. If empty,
// the well-known system locations are used.
type ToolPaths struct {
	CScript string // cscript.exe; %WINDIR%\System32 when empty
	SLMgr   string // slmgr.vbs; %WINDIR%\System32 when empty
	OSPP    string // ospp.vbs; discovered via the Office install root when empty
}

// Config is the top-level configuration for mak2kms. All values are compiled
// in and fixed for the lifetime of a run; construct with Default and treat as
// read-only.
type Config struct {
	// KMSHost and KMSPort identify the central KMS server every product is
	// pointed at.
	KMSHost string
	KMSPort string

	// OfficeAppName is the display-name prefix that gates the Office pass.
	OfficeAppName string

	Tools ToolPaths

	// LogDir receives the per-run log file. MetricsDir receives the textfile
	// collector output; metrics are skipped when it is empty.
	LogDir     string
	MetricsDir string

	// RunTimeout bounds the whole remediation run.
	RunTimeout time.Duration

	windowsKeys map[string]string
	officeKeys  map[model.Product]string
}

// Default returns the compiled-in configuration.
func Default() *Config {
	dir := defaultLogDir()
	return &Config{
		KMSHost:       "globalkms.pwcinternal.com",
		KMSPort:       "1688",
		OfficeAppName: "Microsoft Office Professional Plus 2013",
		LogDir:        dir,
		MetricsDir:    dir,
		RunTimeout:    10 * time.Minute,
		windowsKeys: map[string]string{
			"6.1": "33PXH-7Y6KF-2VJC9-XBBR8-HVTHH",
			"6.3": "MHF9N-XY6XB-WVXMC-BTDCT-MKKG7",
		},
		officeKeys: map[model.Product]string{
			model.ProductOffice:  "YC7DK-G2NP3-2QQC3-J6H88-GVGXT",
			model.ProductVisio:   "C2FG9-N6J68-H8BTJ-BW3QX-RM3B3",
			model.ProductProject: "FN8TT-7WMH6-2D4X9-M337T-2342K",
		},
	}
}

// WindowsKey returns the KMS client key for an OS "major.minor" version.
func (c *Config) WindowsKey(shortVersion string) (string, bool) {
	key, ok := c.windowsKeys[shortVersion]
	return key, ok
}

// OfficeKey returns the KMS client key for an Office family product.
func (c *Config) OfficeKey(p model.Product) (string, bool) {
	key, ok := c.officeKeys[p]
	return key, ok
}

// KMSTarget returns the configured server as a comparable target.
func (c *Config) KMSTarget() model.KMSTarget {
	return model.KMSTarget{Host: c.KMSHost, Port: c.KMSPort}
}

func defaultLogDir() string {
	if runtime.GOOS == "windows" {
		windir := os.Getenv("WINDIR")
		if windir == "" {
			windir = `C:\Windows`
		}
		return filepath.Join(windir, "Logs", "Software")
	}
	return os.TempDir()
}
