// Test Type: Integration Test
// Description: Runs dosort commands against a temporary catalog and rules file

package cli_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arthur-debert/dosort/internal/cli"
	"github.com/arthur-debert/dosort/pkg/errors"
	"github.com/arthur-debert/dosort/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const notesRules = `
rules:
  - name: Notes
    if:
      ext: txt
    then:
      move_to: "Notes/{year}"
      tags_add: [note]
  - name: Everything else
    if:
      filename.contains: "keep"
    then:
      tags_add: [kept]
`

type env struct {
	root  string
	inbox string
	lib   string
	rules string
}

func setup(t *testing.T) env {
	t.Helper()
	root := testutil.Isolate(t).Root
	e := env{
		root:  root,
		inbox: filepath.Join(root, "inbox"),
		lib:   filepath.Join(root, "lib"),
	}
	t.Setenv("DOSORT_ORGANIZE_BASE_DIR", e.lib)

	require.NoError(t, os.MkdirAll(e.inbox, 0755))
	e.rules = testutil.CreateFile(t, root, "rules.yaml", notesRules)
	return e
}

func (e env) file(t *testing.T, name, content string) string {
	t.Helper()
	return testutil.CreateFileAt(t, e.inbox, name, content, time.Date(2023, 6, 4, 10, 0, 0, 0, time.Local))
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestOrganize_EndToEnd(t *testing.T) {
	e := setup(t)
	note := e.file(t, "todo.txt", "buy milk")
	keep := e.file(t, "keep.bin", "blob")
	other := e.file(t, "photo.raw", "pixels")

	out, err := run(t, "add", note, keep, other)
	require.NoError(t, err)
	assert.Contains(t, out, "Added "+note)

	out, err = run(t, "organize", "--rules", e.rules, e.inbox)
	require.NoError(t, err)
	assert.Contains(t, out, "Total files: 3")
	assert.Contains(t, out, "Organized: 1")
	assert.Contains(t, out, "Tagged: 1")
	assert.Contains(t, out, "Unmatched: 1")

	moved := filepath.Join(e.lib, "Notes", "2023", "todo.txt")
	testutil.AssertFileContent(t, moved, "buy milk")
	testutil.AssertNotExists(t, note)

	out, err = run(t, "history", moved)
	require.NoError(t, err)
	assert.Contains(t, out, note+" -> "+moved)

	out, err = run(t, "tag", "list", moved)
	require.NoError(t, err)
	assert.Equal(t, moved+": note\n", out)

	out, err = run(t, "tag", "files", "kept")
	require.NoError(t, err)
	assert.Equal(t, keep+"\n", out)

	// a second run finds the note in place
	out, err = run(t, "organize", "--rules", e.rules)
	require.NoError(t, err)
	assert.Contains(t, out, "Skipped: 1")
}

func TestOrganize_RerunWithoutBaseDir(t *testing.T) {
	e := setup(t)
	t.Setenv("DOSORT_ORGANIZE_BASE_DIR", "")
	require.NoError(t, os.Unsetenv("DOSORT_ORGANIZE_BASE_DIR"))

	note := e.file(t, "todo.txt", "buy milk")
	_, err := run(t, "add", note)
	require.NoError(t, err)

	out, err := run(t, "organize", "--rules", e.rules)
	require.NoError(t, err)
	assert.Contains(t, out, "Organized: 1")

	moved := filepath.Join(e.root, "Notes", "2023", "todo.txt")
	testutil.AssertFileContent(t, moved, "buy milk")

	out, err = run(t, "organize", "--rules", e.rules)
	require.NoError(t, err)
	assert.Contains(t, out, "Organized: 0")
	assert.Contains(t, out, "Skipped: 1")
	testutil.AssertFileContent(t, moved, "buy milk")
	assert.NoDirExists(t, filepath.Join(e.root, "Notes", "2023", "Notes"))
}

func TestOrganize_DryRun(t *testing.T) {
	e := setup(t)
	note := e.file(t, "todo.txt", "buy milk")
	_, err := run(t, "add", note)
	require.NoError(t, err)

	out, err := run(t, "organize", "--rules", e.rules, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "ORGANIZE (DRY RUN)")
	assert.Contains(t, out, "would move")
	assert.FileExists(t, note)
}

func TestOrganize_FileFailureKeepsExitZero(t *testing.T) {
	e := setup(t)
	note := e.file(t, "todo.txt", "buy milk")
	_, err := run(t, "add", note)
	require.NoError(t, err)

	taken := filepath.Join(e.lib, "Notes", "2023", "todo.txt")
	testutil.CreateFile(t, filepath.Dir(taken), "todo.txt", "older")

	out, err := run(t, "organize", "--rules", e.rules)
	require.NoError(t, err)
	assert.Contains(t, out, "DESTINATION_EXISTS")
	assert.Contains(t, out, "Failed: 1")
	assert.FileExists(t, note)
}

func TestOrganize_ConfigErrors(t *testing.T) {
	e := setup(t)

	_, err := run(t, "organize", "--rules", filepath.Join(e.root, "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigLoad))

	bad := testutil.CreateFile(t, e.root, "bad.yaml", "rules:\n  - name: x\n    if: {ext: txt}\n    then: {explode: yes}\n")
	_, err = run(t, "organize", "--rules", bad)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigValid))

	_, err = run(t, "organize", "--rules", e.rules, "--concurrency", "0")
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))
}

func TestInitAndValidate(t *testing.T) {
	e := setup(t)
	rulesPath := filepath.Join(e.root, "config", "rules.yaml")

	out, err := run(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, rulesPath)
	assert.FileExists(t, rulesPath)

	_, err = run(t, "init")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrDestinationExists))

	_, err = run(t, "init", "--force")
	require.NoError(t, err)

	out, err = run(t, "rules", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "4 rules OK")
	assert.Contains(t, out, "1. Phone photos")
}

func TestTagAddRemove(t *testing.T) {
	e := setup(t)
	path := e.file(t, "a.txt", "x")
	_, err := run(t, "add", path)
	require.NoError(t, err)

	_, err = run(t, "tag", "add", path, "work", "urgent")
	require.NoError(t, err)

	out, err := run(t, "tag", "list", path)
	require.NoError(t, err)
	assert.Equal(t, path+": urgent, work\n", out)

	_, err = run(t, "tag", "remove", path, "urgent")
	require.NoError(t, err)

	out, err = run(t, "tag", "ls", path)
	require.NoError(t, err)
	assert.Equal(t, path+": work\n", out)

	_, err = run(t, "tag", "remove", path, "urgent")
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))

	_, err = run(t, "tag", "list", filepath.Join(e.inbox, "unknown.txt"))
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "dosort version")
}
