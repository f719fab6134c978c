package osgate

import (
	"context"
	"errors"
	"testing"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubHostInfo(t *testing.T, hi *host.InfoStat, err error) {
	t.Helper()
	orig := hostInfo
	hostInfo = func(context.Context) (*host.InfoStat, error) {
		return hi, err
	}
	t.Cleanup(func() { hostInfo = orig })
}

func TestCheckEligibleVersions(t *testing.T) {
	tests := []struct {
		kernel    string
		wantShort string
	}{
		{"6.1.7601", "6.1"},
		{"6.1.7601 Build 7601", "6.1"},
		{"6.3.9600", "6.3"},
		{"6.2.9200", "6.2"},
	}
	for _, tt := range tests {
		t.Run(tt.kernel, func(t *testing.T) {
			stubHostInfo(t, &host.InfoStat{
				OS:            "windows",
				Platform:      "Microsoft Windows",
				KernelVersion: tt.kernel,
			}, nil)

			info, err := Check(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantShort, info.ShortVersion)
		})
	}
}

func TestCheckRejectsWindows10AndLater(t *testing.T) {
	for _, kernel := range []string{"10.0.19045", "10.0.22621 Build 22621", "11.0.22000"} {
		t.Run(kernel, func(t *testing.T) {
			stubHostInfo(t, &host.InfoStat{OS: "windows", KernelVersion: kernel}, nil)

			_, err := Check(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnsupported), "expected ErrUnsupported, got %v", err)
		})
	}
}

func TestCheckRejectsNonWindows(t *testing.T) {
	stubHostInfo(t, &host.InfoStat{OS: "linux", KernelVersion: "6.8.0"}, nil)

	_, err := Check(context.Background())
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestCheckHostInfoFailure(t *testing.T) {
	stubHostInfo(t, nil, errors.New("wmi unavailable"))

	_, err := Check(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnsupported), "a lookup failure is not an eligibility verdict")
}

func TestCheckUnparsableVersion(t *testing.T) {
	stubHostInfo(t, &host.InfoStat{OS: "windows", KernelVersion: "unknown"}, nil)

	_, err := Check(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnsupported))
}
