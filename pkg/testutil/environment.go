package testutil

import (
	"path/filepath"
	"testing"

	"github.com/arthur-debert/dosort/pkg/paths"
)

// Dirs are the isolated dosort directories of one test
type Dirs struct {
	Root   string
	Config string
	Data   string
	State  string
}

// Isolate points the dosort config, data and state directories at fresh
// directories below t.TempDir(). The environment is restored after the test.
func Isolate(t *testing.T) Dirs {
	t.Helper()

	root := t.TempDir()
	d := Dirs{
		Root:   root,
		Config: filepath.Join(root, "config"),
		Data:   filepath.Join(root, "data"),
		State:  filepath.Join(root, "state"),
	}
	t.Setenv(paths.EnvDosortConfigDir, d.Config)
	t.Setenv(paths.EnvDosortDataDir, d.Data)
	t.Setenv(paths.EnvDosortStateDir, d.State)
	return d
}
