package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/phobologic/rpcaudit/internal/config"
)

const configHeader = `# rpcaudit configuration.
#
# Flags given on the command line override these values.
# root:          directory audited when no path argument is given
# marker:        decorator name that marks an RPC endpoint (bare, dotted or called)
# extensions:    file extensions to audit; files starting with "_" are always skipped
# exclude:       gitignore-style patterns relative to root
# prune:         skip VCS, virtualenv and cache dirs, hidden entries and symlinks
# ignore_params: extra parameter names never required in Args: (self, cls and kwargs always are)
# fail_on_issues: exit 1 when any issue or unparseable file is found
`

func newInitCmd(stdout, stderr io.Writer) *cobra.Command {
	var dryRun, force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default " + config.DefaultFile,
		Long: `Write a commented default configuration file.

path defaults to ./` + config.DefaultFile + `. An existing file is left alone
unless --force is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultFile
			if len(args) > 0 {
				path = args[0]
			}
			return runInit(path, dryRun, force, stdout, stderr)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the file instead of writing it")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

// runInit implements the `rpcaudit init` subcommand.
func runInit(path string, dryRun, force bool, stdout, stderr io.Writer) error {
	content, err := generateConfig()
	if err != nil {
		return err
	}

	if dryRun {
		_, _ = fmt.Fprint(stdout, content)
		return nil
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	_, _ = fmt.Fprintf(stderr, "wrote default configuration to %s\n", path)
	return nil
}

// generateConfig returns the header comment followed by the default values.
func generateConfig() (string, error) {
	body, err := config.Default().Marshal()
	if err != nil {
		return "", fmt.Errorf("encoding defaults: %w", err)
	}
	return configHeader + "\n" + string(body), nil
}
