package lockfile

import (
	"bufio"
	"os"
	"strings"
)

type PyPIParser struct{}

func (p *PyPIParser) Ecosystem() string { return "pip" }

// Parse reads pinned requirements. Only "==" pins name a single version, so
// ranged requirements are skipped.
func (p *PyPIParser) Parse(path string) ([]Dependency, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var deps []Dependency
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}

		name, version := parsePin(line)
		if name == "" || version == "" {
			continue
		}
		deps = append(deps, Dependency{
			Name:      name,
			Version:   version,
			Ecosystem: "pip",
		})
	}
	return deps, scanner.Err()
}

func parsePin(line string) (name, version string) {
	// Environment markers, hashes and comments follow the pin.
	for _, sep := range []string{";", " #", " --hash", "\\"} {
		if idx := strings.Index(line, sep); idx >= 0 {
			line = line[:idx]
		}
	}
	line = strings.TrimSpace(line)

	name, version, ok := strings.Cut(line, "==")
	if !ok {
		return "", ""
	}
	name = strings.TrimSpace(name)
	if idx := strings.Index(name, "["); idx >= 0 {
		name = name[:idx]
	}
	version = strings.TrimPrefix(strings.TrimSpace(version), "=")
	return strings.ToLower(name), strings.TrimSpace(version)
}
