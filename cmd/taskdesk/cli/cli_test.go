package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdesk/taskdesk/internal/bootstrap"
)

func TestRootCommandListsSubcommands(t *testing.T) {
	root := NewRootCommand()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "seed", "jobs"} {
		assert.True(t, names[want], "missing %s", want)
	}
}

func TestJobsPruneRejectsNonPositiveRetention(t *testing.T) {
	root := NewRootCommand()
	root.SetArgs([]string{"jobs", "prune", "--days", "0"})
	root.SetOut(new(bytes.Buffer))
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retention must be positive")
}

func TestCommandsFailWithoutSecret(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	root := NewRootCommand()
	root.SetArgs([]string{"migrate"})
	require.Error(t, root.Execute())
}

func TestPrintReport(t *testing.T) {
	report := bootstrap.Report{PermissionsCreated: 23, RolesCreated: 4, AdminCreated: true}

	cmd := newSeedCommand()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	require.NoError(t, printReport(cmd, report, false))
	assert.Contains(t, out.String(), "roles created: 4")
	assert.Contains(t, out.String(), "admin created: true")

	out.Reset()
	require.NoError(t, printReport(cmd, report, true))
	assert.JSONEq(t, `{"permissionsCreated":23,"rolesCreated":4,"adminCreated":true,"failures":0}`, out.String())
}
