package cli

// Short messages (one-liners)
const (
	// Command descriptions
	MsgRootShort = "Build and install packages from formulas"
	MsgRootLong  = `dopkg turns formulas into installed packages. Each install checks the
formula's dependencies, downloads and verifies its source archive, builds it in
a private staging directory, moves the result into the store and runs the
formula's self test.`
	MsgInstallShort    = "Install packages from formula files"
	MsgInstallLong     = "Install builds and installs each FORMULA file. Formulas must be listed in dependency order; independent formulas install in parallel."
	MsgUninstallShort  = "Remove an installed package"
	MsgListShort       = "List installed packages"
	MsgInfoShort       = "Show a formula and its installation status"
	MsgTestShort       = "Run a formula's self test against its installed package"
	MsgFetchShort      = "Download and verify a formula's source archive"
	MsgVersionShort    = "Print version information"
	MsgVersionLong     = "Print detailed version information including commit hash and build date"
	MsgCompletionShort = "Generate shell completion script"

	// Status messages
	MsgUninstalled   = "Uninstalled %s"
	MsgTestPassed    = "%s %s: self test passed"
	MsgNoTest        = "%s %s declares no self test"
	MsgFetched       = "%s"
	MsgVersionFormat = "dopkg version %s\n"
	MsgCommitFormat  = "Commit: %s\n"
	MsgBuiltFormat   = "Built:  %s\n"

	// Flag descriptions
	MsgFlagVerbose = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagConfig  = "Config file (default $XDG_CONFIG_HOME/dopkg/config.toml)"
	MsgFlagStore   = "Store root holding records, cellar and opt links"
	MsgFlagOutput  = "Output format: auto, term, text or json"
	MsgFlagJobs    = "Number of formulas to install in parallel"
	MsgFlagStrict  = "Uninstall a fresh package whose self test fails"
)
