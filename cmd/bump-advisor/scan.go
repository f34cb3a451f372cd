package main

import (
	"github.com/spf13/cobra"

	"github.com/bump-advisor/pkg/advisory"
	"github.com/bump-advisor/pkg/lockfile"
	"github.com/bump-advisor/pkg/scanner"
)

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Report advisories resolved between two lockfile revisions",
		Long:  `Diffs two lockfiles, then matches every upgraded package against OSV (or an advisory file) and reports the CVEs the upgrades resolve.`,
		RunE:  runScan,
	}

	cmd.Flags().String("base", "", "Lockfile before the change")
	cmd.Flags().String("head", "", "Lockfile after the change")
	cmd.Flags().String("ecosystem", "", "Force ecosystem: npm | pip | go (detected from the file name if omitted)")
	cmd.Flags().String("advisories", "", "Read advisories from a JSON file instead of OSV")
	cmd.Flags().String("osv-url", "", "Alternate OSV API base URL")
	_ = cmd.MarkFlagRequired("base")
	_ = cmd.MarkFlagRequired("head")
	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	basePath, _ := cmd.Flags().GetString("base")
	headPath, _ := cmd.Flags().GetString("head")
	ecosystem, _ := cmd.Flags().GetString("ecosystem")

	// The base revision is often a temp file, so both sides use the parser
	// chosen for head.
	parser, err := lockfile.ParserFor(headPath, ecosystem)
	if err != nil {
		return err
	}

	base, err := lockfile.ParseWith(parser, basePath)
	if err != nil {
		return err
	}
	head, err := lockfile.ParseWith(parser, headPath)
	if err != nil {
		return err
	}

	source, err := scanSource(cmd)
	if err != nil {
		return err
	}

	resolutions, err := scanner.New(source, cfg).Scan(cmd.Context(), base, head)
	if err != nil {
		return err
	}
	return report(cmd, cfg, resolutions)
}

func scanSource(cmd *cobra.Command) (advisory.Source, error) {
	if path, _ := cmd.Flags().GetString("advisories"); path != "" {
		fs, err := advisory.LoadFile(path)
		if err != nil {
			return nil, err
		}
		return fs, nil
	}
	osv := advisory.NewOSVClient()
	if u, _ := cmd.Flags().GetString("osv-url"); u != "" {
		osv = osv.WithBaseURL(u)
	}
	return osv, nil
}
