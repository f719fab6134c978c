package slmgr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdeploy/mak2kms/internal/config"
	"github.com/opsdeploy/mak2kms/internal/executil"
)

const dlvMAK = `
Software licensing service version: 6.1.7601.17514

Name: Windows(R) 7, Enterprise edition
Description: Windows Operating System - Windows(R) 7, VOLUME_MAK channel
Activation ID: ae2ee509-1b34-41c0-acb7-6d4650168915
Extended PID: 00392-00170-268-866529-03-1033-7601.0000-2342015
Installation ID: 020651753364524952906925002281239882169782029463127757
Partial Product Key: HVTHH
License Status: Licensed
Remaining Windows rearm count: 3
Trusted time: 8/21/2015 10:12:27 AM
`

const dlvKMSClient = `
Software licensing service version: 6.3.9600.16384

Name: Windows(R), EnterpriseS edition
Description: Windows(R) Operating System, VOLUME_KMSCLIENT channel
Partial Product Key: 3V66T
License Status: Licensed
Volume activation expiration: 255840 minute(s) (177 day(s))
Key Management Service client information
    Client Machine ID (CMID): 9482bb3c-7d6a-4b0f-acfa-77d53e2b2f54
    Registered KMS machine name: GLOBALKMS.pwcinternal.com:1688
    KMS machine extended PID: 55041-00206-471-111111-03-1033-9600.0000-2362015
    Activation interval: 120 minutes
    Renewal interval: 10080 minutes
    KMS host caching is enabled
`

type call struct {
	bin  string
	args []string
}

func stubRun(t *testing.T, res executil.Result) *[]call {
	t.Helper()
	var calls []call
	orig := run
	run = func(_ context.Context, bin string, args ...string) executil.Result {
		calls = append(calls, call{bin: bin, args: args})
		return res
	}
	t.Cleanup(func() { run = orig })
	return &calls
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Tools.CScript = "cscript.exe"
	cfg.Tools.SLMgr = `C:\Windows\system32\slmgr.vbs`
	return cfg
}

func TestParseStatusMAK(t *testing.T) {
	st := parseStatus(dlvMAK)

	assert.True(t, st.IsMAK)
	assert.Equal(t, "HVTHH", st.Last5)
	assert.Empty(t, st.KMSHost)
	assert.Equal(t, "Windows(R) 7, Enterprise edition", st.LicenseName)
	assert.Contains(t, st.Channel, "VOLUME_MAK")
}

func TestParseStatusKMSClient(t *testing.T) {
	st := parseStatus(dlvKMSClient)

	assert.False(t, st.IsMAK)
	assert.Equal(t, "3V66T", st.Last5)
	assert.Equal(t, "GLOBALKMS.pwcinternal.com:1688", st.KMSHost)
}

func TestParseStatusEmptyOutput(t *testing.T) {
	st := parseStatus("")

	assert.False(t, st.IsMAK)
	assert.Empty(t, st.Last5)
	assert.Empty(t, st.KMSHost)
}

func TestStatusRunsDLV(t *testing.T) {
	calls := stubRun(t, executil.Result{Stdout: []byte(dlvMAK)})
	e := NewEngine(testConfig())

	st, err := e.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, st.IsMAK)

	require.Len(t, *calls, 1)
	assert.Equal(t, "cscript.exe", (*calls)[0].bin)
	assert.Equal(t, []string{"//Nologo", `C:\Windows\system32\slmgr.vbs`, "/dlv"}, (*calls)[0].args)
}

func TestInstallKeyArgs(t *testing.T) {
	calls := stubRun(t, executil.Result{})
	e := NewEngine(testConfig())

	code, err := e.InstallKey(context.Background(), "33PXH-7Y6KF-2VJC9-XBBR8-HVTHH")
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	require.Len(t, *calls, 1)
	assert.Equal(t, []string{"//Nologo", `C:\Windows\system32\slmgr.vbs`, "/ipk", "33PXH-7Y6KF-2VJC9-XBBR8-HVTHH"}, (*calls)[0].args)
}

func TestInstallKeyRequiresKey(t *testing.T) {
	calls := stubRun(t, executil.Result{})
	e := NewEngine(testConfig())

	_, err := e.InstallKey(context.Background(), "")
	require.Error(t, err)
	assert.Empty(t, *calls, "nothing may run without a key")
}

func TestInstallKeyFailureSurfacesToolOutput(t *testing.T) {
	stubRun(t, executil.Result{
		Stderr:   []byte("Error: 0xC004F050 The Software Licensing Service reported that the product key is invalid."),
		ExitCode: 1,
		Err:      errors.New("exit status 1"),
	})
	e := NewEngine(testConfig())

	code, err := e.InstallKey(context.Background(), "33PXH-7Y6KF-2VJC9-XBBR8-HVTHH")
	require.Error(t, err)
	assert.Equal(t, 1, code)
	assert.Contains(t, err.Error(), "product key is invalid")
}

func TestMutationRebootExitIsNotAnError(t *testing.T) {
	stubRun(t, executil.Result{
		ExitCode: 3010,
		Err:      errors.New("exit status 3010"),
	})
	e := NewEngine(testConfig())
	ctx := context.Background()

	code, err := e.InstallKey(ctx, "33PXH-7Y6KF-2VJC9-XBBR8-HVTHH")
	require.NoError(t, err, "3010 is success with a reboot pending")
	assert.Equal(t, 3010, code)

	code, err = e.SetKMSTarget(ctx, "globalkms.pwcinternal.com", "1688")
	require.NoError(t, err)
	assert.Equal(t, 3010, code)

	code, err = e.Activate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3010, code)
}

func TestSetKMSTargetArgs(t *testing.T) {
	calls := stubRun(t, executil.Result{})
	e := NewEngine(testConfig())

	_, err := e.SetKMSTarget(context.Background(), "globalkms.pwcinternal.com", "1688")
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	assert.Equal(t, []string{"//Nologo", `C:\Windows\system32\slmgr.vbs`, "/skms", "globalkms.pwcinternal.com:1688"}, (*calls)[0].args)
}

func TestActivateArgs(t *testing.T) {
	calls := stubRun(t, executil.Result{})
	e := NewEngine(testConfig())

	_, err := e.Activate(context.Background())
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	assert.Equal(t, []string{"//Nologo", `C:\Windows\system32\slmgr.vbs`, "/ato"}, (*calls)[0].args)
}

func TestLocate(t *testing.T) {
	dir := t.TempDir()
	cscript := filepath.Join(dir, "cscript.exe")
	script := filepath.Join(dir, "slmgr.vbs")
	require.NoError(t, os.WriteFile(cscript, []byte("stub"), 0o755))
	require.NoError(t, os.WriteFile(script, []byte("stub"), 0o644))

	cfg := config.Default()
	cfg.Tools.CScript = cscript
	cfg.Tools.SLMgr = script
	require.NoError(t, NewEngine(cfg).Locate())

	cfg.Tools.SLMgr = filepath.Join(dir, "missing.vbs")
	err := NewEngine(cfg).Locate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToolingMissing)
}

func TestToolPathsFallBackToPATH(t *testing.T) {
	t.Setenv("WINDIR", "")
	e := NewEngine(config.Default())

	assert.Equal(t, "cscript.exe", e.cscript())
	assert.Equal(t, "slmgr.vbs", e.script())
}
