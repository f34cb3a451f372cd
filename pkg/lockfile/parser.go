package lockfile

import (
	"fmt"
	"path/filepath"
	"strings"
)

type Dependency struct {
	Name      string
	Version   string
	Ecosystem string
}

type Parser interface {
	Parse(path string) ([]Dependency, error)
	Ecosystem() string
}

// NewParser picks a parser from the file name.
func NewParser(path string) (Parser, error) {
	base := filepath.Base(path)
	switch {
	case base == "package-lock.json" || base == "npm-shrinkwrap.json":
		return &NPMParser{}, nil
	case base == "requirements.txt" || strings.HasSuffix(base, "requirements.txt"):
		return &PyPIParser{}, nil
	case base == "go.sum":
		return &GoSumParser{}, nil
	case base == "go.mod":
		return &GoModParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported lockfile: %s", base)
	}
}

// ForEcosystem returns the parser for an ecosystem name, for lockfiles saved
// under a name NewParser cannot recognize (e.g. a base revision dumped from git).
func ForEcosystem(ecosystem string) (Parser, error) {
	switch strings.ToLower(ecosystem) {
	case "npm":
		return &NPMParser{}, nil
	case "pip", "pypi":
		return &PyPIParser{}, nil
	case "go":
		return &GoSumParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported ecosystem: %s", ecosystem)
	}
}

// ParserFor picks the parser for path. When ecosystem is set it decides,
// but a file name that identifies a parser of that same ecosystem (go.mod
// versus go.sum) still selects that parser.
func ParserFor(path, ecosystem string) (Parser, error) {
	byName, nameErr := NewParser(path)
	if ecosystem == "" {
		return byName, nameErr
	}
	p, err := ForEcosystem(ecosystem)
	if err != nil {
		return nil, err
	}
	if nameErr == nil && byName.Ecosystem() == p.Ecosystem() {
		return byName, nil
	}
	return p, nil
}

// ParseWith runs p over path.
func ParseWith(p Parser, path string) ([]Dependency, error) {
	deps, err := p.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return deps, nil
}

// ParseFile parses path with the parser ParserFor selects.
func ParseFile(path, ecosystem string) ([]Dependency, error) {
	p, err := ParserFor(path, ecosystem)
	if err != nil {
		return nil, err
	}
	return ParseWith(p, path)
}
