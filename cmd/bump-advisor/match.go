package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bump-advisor/pkg/advisory"
	"github.com/bump-advisor/pkg/bump"
	"github.com/bump-advisor/pkg/scanner"
)

func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match a single version change against an advisory file",
		RunE:  runMatch,
	}

	cmd.Flags().String("package", "", "Package name")
	cmd.Flags().String("from", "", "Version before the update")
	cmd.Flags().String("to", "", "Version after the update")
	cmd.Flags().String("ecosystem", "", "Package ecosystem (npm | pip | go ...)")
	cmd.Flags().String("advisories", "", "Path to a JSON advisory file")
	for _, name := range []string{"package", "from", "to", "advisories"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func runMatch(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)

	b := bump.Bump{}
	b.Package, _ = cmd.Flags().GetString("package")
	b.From, _ = cmd.Flags().GetString("from")
	b.To, _ = cmd.Flags().GetString("to")
	b.Ecosystem, _ = cmd.Flags().GetString("ecosystem")
	if !b.Valid() {
		return fmt.Errorf("--package, --from and --to must all be set")
	}

	path, _ := cmd.Flags().GetString("advisories")
	source, err := advisory.LoadFile(path)
	if err != nil {
		return err
	}

	resolutions, err := scanner.New(source, cfg).ScanBumps(cmd.Context(), b)
	if err != nil {
		return err
	}
	return report(cmd, cfg, resolutions)
}
