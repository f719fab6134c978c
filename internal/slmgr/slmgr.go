// Package slmgr drives the Windows licensing tool (slmgr.vbs via cscript.exe).
package slmgr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/opsdeploy/mak2kms/internal/config"
	"github.com/opsdeploy/mak2kms/internal/executil"
	"github.com/opsdeploy/mak2kms/internal/model"
)

// ErrToolingMissing reports that the script host or the licensing script is
// not present, so no licensing action can run at all.
var ErrToolingMissing = errors.New("windows licensing tooling missing")

// cscript forwards the script's exit code; 3010 is the Windows installer
// convention for success with a reboot pending, not a failure.
const rebootExitCode = 3010

var run = executil.Run

// Engine wraps slmgr.vbs invocations for the local machine.
type Engine struct {
	cfg *config.Config
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

func (e *Engine) script() string {
	if e.cfg.Tools.SLMgr != "" {
		return e.cfg.Tools.SLMgr
	}
	windir := os.Getenv("WINDIR")
	if windir == "" {
		return "slmgr.vbs"
	}
	return filepath.Join(windir, "system32", "slmgr.vbs")
}

// Locate verifies both tools exist before anything is mutated.
func (e *Engine) Locate() error {
	for _, tool := range []string{e.cscript(), e.script()} {
		if err := statTool(tool); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrToolingMissing, tool, err)
		}
	}
	return nil
}

func statTool(path string) error {
	if strings.ContainsAny(path, `/\`) {
		_, err := os.Stat(path)
		return err
	}
	_, err := exec.LookPath(path)
	return err
}

// Status queries the current OS activation state.
func (e *Engine) Status(ctx context.Context) (*model.ActivationStatus, error) {
	res := run(ctx, e.cscript(), "//Nologo", e.script(), "/dlv")
	if res.Err != nil {
		return nil, commandError("slmgr /dlv", res)
	}
	return parseStatus(string(res.Stdout)), nil
}

// InstallKey installs a product key, replacing whatever is currently installed.
func (e *Engine) InstallKey(ctx context.Context, key string) (int, error) {
	if key == "" {
		return -1, fmt.Errorf("key is required")
	}
	res := run(ctx, e.cscript(), "//Nologo", e.script(), "/ipk", key)
	if res.Err != nil && res.ExitCode != rebootExitCode {
		return res.ExitCode, commandError("slmgr /ipk", res)
	}
	return res.ExitCode, nil
}

// SetKMSTarget points the OS at a specific KMS server, bypassing DNS
// auto-discovery.
func (e *Engine) SetKMSTarget(ctx context.Context, host, port string) (int, error) {
	if host == "" {
		return -1, fmt.Errorf("host is required")
	}
	res := run(ctx, e.cscript(), "//Nologo", e.script(), "/skms", net.JoinHostPort(host, port))
	if res.Err != nil && res.ExitCode != rebootExitCode {
		return res.ExitCode, commandError("slmgr /skms", res)
	}
	return res.ExitCode, nil
}

// Activate asks the OS to activate against its configured KMS server.
func (e *Engine) Activate(ctx context.Context) (int, error) {
	res := run(ctx, e.cscript(), "//Nologo", e.script(), "/ato")
	if res.Err != nil && res.ExitCode != rebootExitCode {
		return res.ExitCode, commandError("slmgr /ato", res)
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
