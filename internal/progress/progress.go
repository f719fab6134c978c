// Package progress prints the user-visible step notices a deployment shows
// while it works. Silent deployments show nothing.
package progress

import (
	"fmt"
	"io"

	"github.com/opsdeploy/mak2kms/internal/model"
)

type Notifier struct {
	mode model.DeployMode
	out  io.Writer
}

func New(mode model.DeployMode, out io.Writer) *Notifier {
	return &Notifier{mode: mode, out: out}
}

// Step announces the next remediation stage. Interactive runs get a banner
// prefix, non-interactive runs a plain line, silent runs nothing.
func (n *Notifier) Step(format string, args ...interface{}) {
	switch n.mode {
	case model.ModeSilent:
	case model.ModeInteractive:
		fmt.Fprintf(n.out, "==> "+format+"\n", args...)
	default:
		fmt.Fprintf(n.out, format+"\n", args...)
	}
}
