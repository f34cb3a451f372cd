package reporter

import (
	"io"

	"github.com/bump-advisor/pkg/matcher"
)

type Reporter interface {
	Report(resolutions []matcher.Resolution) error
}

func New(format string, w io.Writer) Reporter {
	switch format {
	case "json":
		return &JSONReporter{w: w}
	case "sarif":
		return &SARIFReporter{w: w}
	default:
		return &TableReporter{w: w}
	}
}

func countMatches(resolutions []matcher.Resolution) int {
	n := 0
	for _, r := range resolutions {
		n += len(r.Matches)
	}
	return n
}
