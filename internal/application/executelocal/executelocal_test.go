package executelocal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chimera-systems/chimera/internal/domain"
)

type fakeBuild struct{}

func (fakeBuild) Build(ctx context.Context, path domain.ConfigPath) (domain.Fingerprint, error) {
	return "fp-local", nil
}
func (fakeBuild) Instantiate(ctx context.Context, path domain.ConfigPath) (string, error) {
	return "", nil
}
func (fakeBuild) Shell(ctx context.Context, path domain.ConfigPath, cmd string) (string, error) {
	return "", nil
}

type fakeSession struct {
	created bool
	ran     string
}

func (f *fakeSession) Create(ctx context.Context, id domain.SessionId) (bool, error) {
	f.created = true
	return true, nil
}
func (f *fakeSession) List(ctx context.Context) ([]domain.SessionId, error) { return nil, nil }
func (f *fakeSession) Kill(ctx context.Context, id domain.SessionId) (bool, error) {
	return true, nil
}
func (f *fakeSession) Run(ctx context.Context, id domain.SessionId, cmd string) (bool, error) {
	f.ran = cmd
	return true, nil
}
func (f *fakeSession) Attach(ctx context.Context, id domain.SessionId) (string, error) {
	return "", nil
}

func TestExecuteLocalBuildsAndRuns(t *testing.T) {
	session := &fakeSession{}
	uc := New(fakeBuild{}, session, func() time.Time { return time.Unix(0, 0) }, nil)

	out, err := uc.Execute(context.Background(), Input{
		ConfigPath: "/etc/chimera/local.nix", SessionName: "sess-1", Command: "echo hi",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.Fingerprint("fp-local"), out.Fingerprint)
	assert.True(t, out.Succeeded)
	assert.True(t, session.created)
	assert.Equal(t, "echo hi", session.ran)
}
