package osgate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goversion "github.com/hashicorp/go-version"
	"github.com/shirou/gopsutil/v3/host"
)

// ErrUnsupported marks hosts this remediation must not touch.
var ErrUnsupported = errors.New("unsupported operating system")

// Info describes the host OS as far as eligibility is concerned.
type Info struct {
	Platform     string // e.g. "Microsoft Windows 7 Enterprise"
	Version      string // dotted kernel version, e.g. "6.1.7601"
	ShortVersion string // "major.minor", keys the Windows key table
}

var hostInfo = host.InfoWithContext

var win10 = goversion.Must(goversion.NewVersion("10.0"))

// Check resolves the host OS and rejects anything outside the supported
// range: non-Windows platforms and Windows 10 or later. The returned short
// version feeds the key table lookup.
func Check(ctx context.Context) (*Info, error) {
	hi, err := hostInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve host info: %w", err)
	}
	if hi.OS != "windows" {
		return nil, fmt.Errorf("%w: platform %s", ErrUnsupported, hi.OS)
	}

	// gopsutil reports the kernel version as "major.minor.build", sometimes
	// with a trailing "Build NNNN" suffix.
	raw := hi.KernelVersion
	if fields := strings.Fields(raw); len(fields) > 0 {
		raw = fields[0]
	}
	v, err := goversion.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("parse os version %q: %w", hi.KernelVersion, err)
	}
	if v.GreaterThanOrEqual(win10) {
		return nil, fmt.Errorf("%w: windows %s", ErrUnsupported, raw)
	}

	return &Info{
		Platform:     hi.Platform,
		Version:      raw,
		ShortVersion: shortVersion(raw),
	}, nil
}

func shortVersion(v string) string {
	parts := strings.SplitN(v, ".", 3)
	if len(parts) < 2 {
		return parts[0]
	}
	return parts[0] + "." + parts[1]
}
