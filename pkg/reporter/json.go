package reporter

import (
	"encoding/json"
	"io"

	"github.com/bump-advisor/pkg/matcher"
)

type JSONReporter struct {
	w io.Writer
}

func (r *JSONReporter) Report(resolutions []matcher.Resolution) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")

	type output struct {
		Resolved    int                  `json:"resolved"`
		Resolutions []matcher.Resolution `json:"resolutions"`
	}

	if resolutions == nil {
		resolutions = []matcher.Resolution{}
	}
	return enc.Encode(output{
		Resolved:    countMatches(resolutions),
		Resolutions: resolutions,
	})
}
