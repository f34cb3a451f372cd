package lockfile

import (
	"bufio"
	"os"
	"strings"

	"golang.org/x/mod/semver"
)

type GoSumParser struct{}

func (p *GoSumParser) Ecosystem() string { return "go" }

func (p *GoSumParser) Parse(path string) ([]Dependency, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	seen := make(map[string]bool)
	var deps []Dependency

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		mod := fields[0]
		// "module v1.2.3 h1:..." and "module v1.2.3/go.mod h1:..."
		ver := strings.TrimSuffix(fields[1], "/go.mod")
		if !semver.IsValid(ver) {
			continue
		}
		ver = goVersion(ver)

		key := mod + "@" + ver
		if seen[key] {
			continue
		}
		seen[key] = true

		deps = append(deps, Dependency{
			Name:      mod,
			Version:   ver,
			Ecosystem: "go",
		})
	}
	return deps, scanner.Err()
}

// goVersion drops the "v" prefix and any build suffix such as "+incompatible".
func goVersion(v string) string {
	v = strings.TrimSuffix(v, semver.Build(v))
	return strings.TrimPrefix(v, "v")
}
