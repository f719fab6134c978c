// Package ospp drives the Office 2013 licensing tool (OSPP.VBS via
// cscript.exe). The script ships inside the Office installation, so its
// location is discovered through the Office install root in the registry.
package ospp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/opsdeploy/mak2kms/internal/config"
	"github.com/opsdeploy/mak2kms/internal/executil"
	"github.com/opsdeploy/mak2kms/internal/model"
	"github.com/opsdeploy/mak2kms/internal/winreg"
)

const installRootKey = `SOFTWARE\Microsoft\Office\15.0\Common\InstallRoot`

// cscript forwards the script's exit code; 3010 is the Windows installer
// convention for success with a reboot pending, not a failure.
const rebootExitCode = 3010

var (
	run        = executil.Run
	readString = winreg.ReadString
	statFile   = os.Stat
)

// Engine wraps OSPP.VBS invocations for the local machine.
type Engine struct {
	cfg *config.Config
	vbs string
}

func NewEngine(cfg *config.Config) *Engine {
	return &Engine{cfg: cfg}
}

func (e *Engine) cscript() string {
	if e.cfg.Tools.CScript != "" {
		return e.cfg.Tools.CScript
	}
	windir := os.Getenv("WINDIR")
	if windir == "" {
		return "cscript.exe"
	}
	return filepath.Join(windir, "system32", "cscript.exe")
}

// scriptPath resolves OSPP.VBS, preferring the configured path and falling
// back to the Office 15.0 install root.
func (e *Engine) scriptPath() (string, error) {
	if e.cfg.Tools.OSPP != "" {
		return e.cfg.Tools.OSPP, nil
	}
	if e.vbs != "" {
		return e.vbs, nil
	}
	root, err := readString(installRootKey, "Path")
	if err != nil {
		return "", fmt.Errorf("locate ospp.vbs: office install root: %w", err)
	}
	path := filepath.Join(root, "OSPP.VBS")
	if _, err := statFile(path); err != nil {
		return "", fmt.Errorf("locate ospp.vbs: %w", err)
	}
	e.vbs = path
	return path, nil
}

// Detect queries every installed Office license and returns one status per
// installed key.
func (e *Engine) Detect(ctx context.Context) ([]model.ActivationStatus, error) {
	script, err := e.scriptPath()
	if err != nil {
		return nil, err
	}
	res := run(ctx, e.cscript(), "//Nologo", script, "/dstatus")
	if res.Err != nil {
		return nil, commandError("ospp /dstatus", res)
	}
	return parseStatuses(string(res.Stdout)), nil
}

// UnpublishKey removes an installed key identified by its last five characters.
func (e *Engine) UnpublishKey(ctx context.Context, last5 string) (int, error) {
	if last5 == "" {
		return -1, fmt.Errorf("last5 is required")
	}
	return e.mutate(ctx, "/unpkey:"+last5)
}

// PublishKey installs a product key.
func (e *Engine) PublishKey(ctx context.Context, key string) (int, error) {
	if key == "" {
		return -1, fmt.Errorf("key is required")
	}
	return e.mutate(ctx, "/inpkey:"+key)
}

// SetKMSHost points Office at a specific KMS server.
func (e *Engine) SetKMSHost(ctx context.Context, host string) (int, error) {
	if host == "" {
		return -1, fmt.Errorf("host is required")
	}
	return e.mutate(ctx, "/sethst:"+host)
}

// SetKMSPort sets the KMS server port Office activates against.
func (e *Engine) SetKMSPort(ctx context.Context, port string) (int, error) {
	if port == "" {
		return -1, fmt.Errorf("port is required")
	}
	return e.mutate(ctx, "/setprt:"+port)
}

// Activate asks Office to activate all installed licenses.
func (e *Engine) Activate(ctx context.Context) (int, error) {
	return e.mutate(ctx, "/act")
}

func (e *Engine) mutate(ctx context.Context, verb string) (int, error) {
	script, err := e.scriptPath()
	if err != nil {
		return -1, err
	}
	res := run(ctx, e.cscript(), "//Nologo", script, verb)
	if res.Err != nil && res.ExitCode != rebootExitCode {
		op := verb
		if i := strings.IndexByte(op, ':'); i > 0 {
			op = op[:i]
		}
		return res.ExitCode, commandError("ospp "+op, res)
	}
	return res.ExitCode, nil
}

func commandError(op string, res executil.Result) error {
	detail := strings.TrimSpace(string(res.Stderr))
	if detail == "" {
		detail = strings.TrimSpace(string(res.Stdout))
	}
	if detail != "" {
		return fmt.Errorf("%s: %w: %s", op, res.Err, detail)
	}
	return fmt.Errorf("%s: %w", op, res.Err)
}
