package cli

// Short messages (one-liners)
const (
	// Command descriptions
	MsgRootShort     = "Organize files with declarative rules"
	MsgVersionShort  = "Print version information"
	MsgVersionLong   = "Print detailed version information including commit hash and build date"
	MsgOrganizeShort = "Apply the rules to catalogued files"
	MsgInitShort     = "Write a sample rules file"
	MsgRulesShort    = "Inspect rule files"
	MsgValidateShort = "Validate a rules file"
	MsgAddShort      = "Register files in the catalog"
	MsgTagShort      = "Manage file tags"
	MsgTagAddShort   = "Add a tag to a file"
	MsgTagRmShort    = "Remove a tag from a file"
	MsgTagListShort  = "List the tags of a file"
	MsgTagFilesShort = "List files carrying a tag"
	MsgHistoryShort  = "Show the action history of a file"

	// Flag descriptions
	MsgFlagVerbose     = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagConfig      = "config file (default is $XDG_CONFIG_HOME/dosort/config.toml)"
	MsgFlagDB          = "catalog database (default is $XDG_DATA_HOME/dosort/catalog.db)"
	MsgFlagRules       = "rules file (default is $XDG_CONFIG_HOME/dosort/rules.yaml)"
	MsgFlagDryRun      = "Preview changes without executing them"
	MsgFlagNoVerify    = "Skip the SHA-256 check after each action"
	MsgFlagConcurrency = "Number of files processed at once"
	MsgFlagForce       = "Overwrite an existing rules file"

	// Status messages
	MsgRulesWritten    = "Wrote sample rules to %s\n"
	MsgRulesValid      = "%s: %d rules OK\n"
	MsgRuleItem        = "  %d. %s\n"
	MsgFileAdded       = "Added %s (id %d)\n"
	MsgTagAdded        = "Tagged %s with %s\n"
	MsgTagRemoved      = "Removed %s from %s\n"
	MsgNoFilesWithTag  = "No files tagged %s\n"

	// Errors
	MsgErrRulesExist    = "rules file %s already exists (use --force to overwrite)"
	MsgErrNotCatalogued = "%s is not in the catalog"
)

// Long messages
const (
	MsgRootLong = `dosort organizes files known to its catalog. Each file is checked against
an ordered list of rules; the first rule that matches decides where the file
goes, and every matching rule contributes tags.

Moves, copies, renames and links are verified with SHA-256 and rolled back
when the result does not match the original.`

	MsgOrganizeLong = `Organize evaluates every catalogued file below SCOPE (all files when SCOPE
is omitted) against the rules and executes the resulting plans.

Per-file failures are reported in the summary and do not change the exit
status. Only unreadable or invalid rules and an unusable catalog fail the
command.`

	MsgAddLong = `Add registers files in the catalog so that organize can act on them.
Only regular files named on the command line are registered.`
)

// MsgUsageTemplate is the cobra usage template with bold section titles
const MsgUsageTemplate = `{{boldUpper "usage"}}:{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if .HasExample}}

{{boldUpper "examples"}}:
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}

{{boldUpper "commands"}}:{{range .Commands}}{{if .IsAvailableCommand}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

{{boldUpper "flags"}}:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

{{boldUpper "global flags"}}:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableSubCommands}}

Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`
