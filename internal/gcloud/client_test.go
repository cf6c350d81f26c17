package gcloud

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/gcp-bulk-provisioner/internal/executor"
)

// fakeRunner records invocations and replays canned responses.
type fakeRunner struct {
	calls  [][]string
	output []byte
	err    error
}

func (f *fakeRunner) run(name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return f.output, f.err
}

func TestCreateProject_CommandLine(t *testing.T) {
	f := &fakeRunner{}
	client := NewClientWithRunner("gcloud", f.run)

	require.NoError(t, client.CreateProject("demo-abc123-001", "Demo"))

	require.Len(t, f.calls, 1)
	assert.Equal(t, []string{"gcloud", "projects", "create", "demo-abc123-001", "--quiet", "--name=Demo"}, f.calls[0])
}

func TestCreateProject_AlreadyExists(t *testing.T) {
	f := &fakeRunner{
		output: []byte("ERROR: (gcloud.projects.create) Project creation failed. The project ID you specified is already in use: requested entity already exists."),
		err:    errors.New("exit status 1"),
	}
	client := NewClientWithRunner("gcloud", f.run)

	err := client.CreateProject("demo-abc123-001", "")
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestCreateProject_FailureCarriesOutput(t *testing.T) {
	f := &fakeRunner{
		output: []byte("ERROR: PERMISSION_DENIED: The caller does not have permission"),
		err:    errors.New("exit status 1"),
	}
	client := NewClientWithRunner("gcloud", f.run)

	err := client.CreateProject("demo-abc123-001", "")
	require.Error(t, err)
	assert.True(t, executor.IsPermanent(err), "authorization failure must classify as permanent")
}

func TestEnableService_CommandLine(t *testing.T) {
	f := &fakeRunner{}
	client := NewClientWithRunner("gcloud", f.run)

	require.NoError(t, client.EnableService("demo-abc123-001", "generativelanguage.googleapis.com"))

	require.Len(t, f.calls, 1)
	assert.Equal(t, []string{
		"gcloud", "services", "enable", "generativelanguage.googleapis.com",
		"--project=demo-abc123-001", "--quiet",
	}, f.calls[0])
}

func TestCreateAPIKey_ExtractsBareKeyString(t *testing.T) {
	f := &fakeRunner{output: []byte(`{"name":"projects/1/locations/global/keys/k","keyString":"AIzaSyTest"}`)}
	client := NewClientWithRunner("gcloud", f.run)

	key, err := client.CreateAPIKey("demo-abc123-001", "Demo")
	require.NoError(t, err)
	assert.Equal(t, "AIzaSyTest", key)
}

func TestCreateAPIKey_ExtractsOperationWrappedKeyString(t *testing.T) {
	f := &fakeRunner{output: []byte(`{"done":true,"response":{"@type":"type.googleapis.com/google.api.apikeys.v2.Key","keyString":"AIzaSyWrapped"}}`)}
	client := NewClientWithRunner("gcloud", f.run)

	key, err := client.CreateAPIKey("demo-abc123-001", "Demo")
	require.NoError(t, err)
	assert.Equal(t, "AIzaSyWrapped", key)
}

func TestCreateAPIKey_MissingKeyStringIsPermanent(t *testing.T) {
	f := &fakeRunner{output: []byte(`{"done":true,"response":{}}`)}
	client := NewClientWithRunner("gcloud", f.run)

	_, err := client.CreateAPIKey("demo-abc123-001", "Demo")
	require.Error(t, err)
	assert.True(t, executor.IsPermanent(err), "extraction failure must not be retried")

	var extr *executor.ExtractionError
	assert.ErrorAs(t, err, &extr)
	assert.Equal(t, "keyString", extr.Field)
}

func TestCreateAPIKey_MalformedJSONIsPermanent(t *testing.T) {
	f := &fakeRunner{output: []byte("not json at all")}
	client := NewClientWithRunner("gcloud", f.run)

	_, err := client.CreateAPIKey("demo-abc123-001", "Demo")
	require.Error(t, err)
	assert.True(t, executor.IsPermanent(err))
}

func TestListProjects_ParsesIDs(t *testing.T) {
	f := &fakeRunner{output: []byte(`[{"projectId":"demo-abc123-001"},{"projectId":"demo-abc123-002"}]`)}
	client := NewClientWithRunner("gcloud", f.run)

	ids, err := client.ListProjects("demo")
	require.NoError(t, err)
	assert.Equal(t, []string{"demo-abc123-001", "demo-abc123-002"}, ids)

	require.Len(t, f.calls, 1)
	assert.Contains(t, strings.Join(f.calls[0], " "), "--filter=projectId:demo*")
}

func TestDeleteProject_CommandLine(t *testing.T) {
	f := &fakeRunner{}
	client := NewClientWithRunner("gcloud", f.run)

	require.NoError(t, client.DeleteProject("demo-abc123-001"))
	require.Len(t, f.calls, 1)
	assert.Equal(t, []string{"gcloud", "projects", "delete", "demo-abc123-001", "--quiet"}, f.calls[0])
}

func TestPreflight_AuthParsing(t *testing.T) {
	f := &fakeRunner{output: []byte(`[{"account":"dev@example.com","status":"ACTIVE"}]`)}
	// "sh" resolves on PATH so the binary check passes without gcloud installed.
	client := NewClientWithRunner("sh", f.run)

	result := client.Preflight()
	assert.Equal(t, CheckOK, result.Binary)
	assert.Equal(t, CheckOK, result.Auth)
	assert.Equal(t, CheckOK, result.ProjectAccess)
	assert.Equal(t, "dev@example.com", result.ActiveAccount)
	assert.True(t, result.Ready())
}

func TestPreflight_MissingBinary(t *testing.T) {
	f := &fakeRunner{}
	client := NewClientWithRunner(fmt.Sprintf("definitely-not-installed-%d", 4242), f.run)

	result := client.Preflight()
	assert.Equal(t, CheckFailed, result.Binary)
	assert.False(t, result.Ready())
	assert.Empty(t, f.calls, "no commands should run when the binary is missing")
}

func TestPreflight_NoActiveAccount(t *testing.T) {
	f := &fakeRunner{output: []byte(`[]`)}
	client := NewClientWithRunner("sh", f.run)

	result := client.Preflight()
	assert.Equal(t, CheckOK, result.Binary)
	assert.Equal(t, CheckFailed, result.Auth)
	assert.False(t, result.Ready())
}
