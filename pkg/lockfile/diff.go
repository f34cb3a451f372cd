package lockfile

import (
	"sort"

	"github.com/bump-advisor/pkg/bump"
	"github.com/bump-advisor/pkg/version"
)

// Diff returns the upgrades between two snapshots of the same lockfile.
// Packages present at one version in base and a single, higher version in
// head become bumps; additions, removals, downgrades and packages held at
// several versions are left out.
func Diff(base, head []Dependency) []bump.Bump {
	before := versionsByName(base)
	after := versionsByName(head)

	var bumps []bump.Bump
	for key, from := range before {
		to, ok := after[key]
		if !ok || len(from.versions) != 1 || len(to.versions) != 1 {
			continue
		}
		if version.CompareStrings(to.versions[0], from.versions[0]) <= 0 {
			continue
		}
		bumps = append(bumps, bump.Bump{
			Package:   from.name,
			From:      from.versions[0],
			To:        to.versions[0],
			Ecosystem: from.ecosystem,
		})
	}

	sort.Slice(bumps, func(i, j int) bool { return bumps[i].Package < bumps[j].Package })
	return bumps
}

type pkgVersions struct {
	name      string
	ecosystem string
	versions  []string
}

func versionsByName(deps []Dependency) map[string]*pkgVersions {
	out := make(map[string]*pkgVersions)
	for _, d := range deps {
		if d.Version == "" {
			continue
		}
		key := d.Ecosystem + ":" + d.Name
		pv, ok := out[key]
		if !ok {
			pv = &pkgVersions{name: d.Name, ecosystem: d.Ecosystem}
			out[key] = pv
		}
		if !contains(pv.versions, d.Version) {
			pv.versions = append(pv.versions, d.Version)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
