package scanner

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/bump-advisor/pkg/advisory"
	"github.com/bump-advisor/pkg/bump"
	"github.com/bump-advisor/pkg/config"
	"github.com/bump-advisor/pkg/lockfile"
	"github.com/bump-advisor/pkg/matcher"
)

const defaultConcurrency = 8

// Scanner resolves every upgrade between two lockfile snapshots against an
// advisory source.
type Scanner struct {
	advisorySource advisory.Source
	config         *config.Config
	concurrency    int
}

func New(advisorySource advisory.Source, cfg *config.Config) *Scanner {
	return &Scanner{
		advisorySource: advisorySource,
		config:         cfg,
		concurrency:    defaultConcurrency,
	}
}

// Scan diffs base against head and matches each upgrade. Only bumps that
// resolve at least one CVE are returned, in package order.
func (s *Scanner) Scan(ctx context.Context, base, head []lockfile.Dependency) ([]matcher.Resolution, error) {
	bumps := lockfile.Diff(base, head)
	slog.Info("lockfile diff", "upgrades", len(bumps))

	results := make([]matcher.Resolution, len(bumps))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, b := range bumps {
		if s.isIgnoredPackage(b.Package) {
			continue
		}
		g.Go(func() error {
			advs, err := s.advisorySource.ListForPackage(gctx, b.Ecosystem, b.Package, b.From)
			if err != nil {
				return fmt.Errorf("query advisories for %s: %w", b.Package, err)
			}
			res, err := matcher.Resolve(b, s.filter(advs))
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var resolved []matcher.Resolution
	for _, res := range results {
		if len(res.Matches) > 0 {
			resolved = append(resolved, res)
		}
	}
	return resolved, nil
}

// ScanBumps matches bumps that are already known, e.g. from the command line.
func (s *Scanner) ScanBumps(ctx context.Context, bumps ...bump.Bump) ([]matcher.Resolution, error) {
	var out []matcher.Resolution
	for _, b := range bumps {
		advs, err := s.advisorySource.ListForPackage(ctx, b.Ecosystem, b.Package, b.From)
		if err != nil {
			return nil, fmt.Errorf("query advisories for %s: %w", b.Package, err)
		}
		res, err := matcher.Resolve(b, s.filter(advs))
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (s *Scanner) filter(advs []advisory.Advisory) []advisory.Advisory {
	kept := make([]advisory.Advisory, 0, len(advs))
	for _, adv := range advs {
		if s.isIgnored(adv) {
			continue
		}
		if !meetsMinSeverity(adv.Severity, s.config.Severity) {
			slog.Debug("advisory below minimum severity", "id", adv.ID, "severity", adv.Severity)
			continue
		}
		kept = append(kept, adv)
	}
	return kept
}

func (s *Scanner) isIgnored(adv advisory.Advisory) bool {
	ids := append([]string{adv.ID}, adv.CVEs...)
	return s.config.IsIgnored(adv.Package, ids...)
}

func (s *Scanner) isIgnoredPackage(name string) bool {
	return s.config.IsIgnored(name)
}

func meetsMinSeverity(severity, minimum string) bool {
	rank := advisory.SeverityRank(severity)
	if rank == 0 || minimum == "" {
		return true // unknown severity passes through
	}
	return rank >= advisory.SeverityRank(minimum)
}
