package lockfile

import (
	"os"

	"golang.org/x/mod/modfile"
)

// GoModParser reads the require block of a go.mod. Unlike go.sum it lists a
// single selected version per module.
type GoModParser struct{}

func (p *GoModParser) Ecosystem() string { return "go" }

func (p *GoModParser) Parse(path string) ([]Dependency, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	f, err := modfile.ParseLax(path, data, nil)
	if err != nil {
		return nil, err
	}

	deps := make([]Dependency, 0, len(f.Require))
	for _, req := range f.Require {
		deps = append(deps, Dependency{
			Name:      req.Mod.Path,
			Version:   goVersion(req.Mod.Version),
			Ecosystem: "go",
		})
	}
	return deps, nil
}
