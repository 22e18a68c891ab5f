// Package paths provides centralized path handling for dosort.
// It follows the XDG Base Directory layout and lets environment variables
// relocate each directory.
package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Environment variable names
const (
	// EnvDosortConfigDir overrides the XDG config directory for dosort
	EnvDosortConfigDir = "DOSORT_CONFIG_DIR"

	// EnvDosortDataDir overrides the XDG data directory for dosort
	EnvDosortDataDir = "DOSORT_DATA_DIR"

	// EnvDosortStateDir overrides the XDG state directory for dosort
	EnvDosortStateDir = "DOSORT_STATE_DIR"
)

// Default file names
const (
	DosortDirName   = "dosort"
	ConfigFileName  = "config.toml"
	RulesFileName   = "rules.yaml"
	CatalogFileName = "catalog.db"
	LogFileName     = "dosort.log"
)

// Paths resolves dosort's directories and default files
type Paths interface {
	ConfigDir() string
	DataDir() string
	StateDir() string
	ConfigFile() string
	RulesFile() string
	CatalogFile() string
	LogFile() string
}

type paths struct {
	config string
	data   string
	state  string
}

// New resolves the directories from the environment
func New() Paths {
	return &paths{
		config: dirFromEnv(EnvDosortConfigDir, xdg.ConfigHome),
		data:   dirFromEnv(EnvDosortDataDir, xdg.DataHome),
		state:  dirFromEnv(EnvDosortStateDir, xdg.StateHome),
	}
}

func dirFromEnv(env, base string) string {
	if dir := os.Getenv(env); dir != "" {
		return ExpandHome(dir)
	}
	return filepath.Join(base, DosortDirName)
}

func (p *paths) ConfigDir() string   { return p.config }
func (p *paths) DataDir() string     { return p.data }
func (p *paths) StateDir() string    { return p.state }
func (p *paths) ConfigFile() string  { return filepath.Join(p.config, ConfigFileName) }
func (p *paths) RulesFile() string   { return filepath.Join(p.config, RulesFileName) }
func (p *paths) CatalogFile() string { return filepath.Join(p.data, CatalogFileName) }
func (p *paths) LogFile() string     { return filepath.Join(p.state, LogFileName) }

// ExpandHome expands a leading ~ and environment variables in path
func ExpandHome(path string) string {
	if path == "~" || (len(path) > 1 && path[0] == '~' && path[1] == '/') {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return os.ExpandEnv(path)
}
