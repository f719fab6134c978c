package exitcode

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opsdeploy/mak2kms/internal/osgate"
	"github.com/opsdeploy/mak2kms/internal/slmgr"
)

func TestFromRun(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		rebootRequired bool
		allowReboot    bool
		want           int
	}{
		{"clean run", nil, false, false, Success},
		{"reboot needed but passthru off", nil, true, false, Success},
		{"reboot needed with passthru", nil, true, true, RebootRequired},
		{"passthru flag without pending reboot", nil, false, true, Success},
		{"unsupported os", fmt.Errorf("gate: %w", osgate.ErrUnsupported), false, false, UnsupportedOS},
		{"tooling missing", fmt.Errorf("preflight: %w", slmgr.ErrToolingMissing), false, false, ToolingMissing},
		{"anything else", errors.New("slmgr /ipk: exit status 1"), false, false, Failure},
		{"failure wins over reboot", errors.New("boom"), true, true, Failure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromRun(tt.err, tt.rebootRequired, tt.allowReboot))
		})
	}
}
