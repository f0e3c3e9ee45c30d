package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmtools/rmusb/internal/precommit"
)

var verifyHooksCmd = &cobra.Command{
	Use:   "verify-hooks [config-file]",
	Short: "Validate a pre-commit hook configuration file",
	Long: `Validate a pre-commit hook configuration file.

Checks that the file is well-formed: every source names a repository and
a pinned revision, declares at least one hook, hook ids are unique per
source, and exclude patterns compile. Cloning the sources and running
the hooks is pre-commit's job; this only checks the file.

Defaults to ./` + precommit.ConfigFileName + `.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerifyHooks,
}

func runVerifyHooks(cmd *cobra.Command, args []string) error {
	path := precommit.ConfigFileName
	if len(args) == 1 {
		path = args[0]
	}

	sources, err := precommit.LoadFile(path)
	if err != nil {
		return err
	}
	if err := precommit.Validate(sources); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	hooks := 0
	for _, src := range sources {
		hooks += len(src.Hooks)
	}
	fmt.Printf("%s: OK (%d sources, %d hooks)\n", path, len(sources), hooks)
	return nil
}
