package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Add    *AddCommand
	Report *ReportCommand
	Status *StatusCommand
	Serve  *ServeCommand
	Prune  *PruneCommand
	Purge  *PurgeCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "tagpivot"
	parser.LongDescription = "Local, on-device analysis of browsing interests: trend temperature, topic polarization, and bridge-tag discovery."

	cmds := &commands{
		Add:    &AddCommand{globals: &globals, version: version},
		Report: &ReportCommand{globals: &globals, version: version},
		Status: &StatusCommand{globals: &globals, version: version},
		Serve:  &ServeCommand{globals: &globals, version: version},
		Prune:  &PruneCommand{globals: &globals, version: version},
		Purge:  &PurgeCommand{globals: &globals, version: version},
	}

	parser.AddCommand("add", "Record a tag event", "Record a tag event for a visited URL.", cmds.Add)
	parser.AddCommand("report", "Run the analysis pipeline", "Run window selection, temperature, polarization, and bridge discovery over the stored events.", cmds.Report)
	parser.AddCommand("status", "Show store health and statistics", "Show store health, database statistics, and configuration summary.", cmds.Status)
	parser.AddCommand("serve", "Start the ingest daemon", "Start the local HTTP ingest daemon.", cmds.Serve)
	parser.AddCommand("prune", "Apply retention pruning", "Apply retention pruning to remove old events.", cmds.Prune)
	parser.AddCommand("purge", "Delete ALL stored data", "Delete ALL stored data. Destructive operation with safety prompt.", cmds.Purge)

	return parser, &globals, cmds
}

// Run is the main entry point for the tagpivot CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("tagpivot %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
