package reporter

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/bump-advisor/pkg/matcher"
)

type TableReporter struct {
	w io.Writer
}

func (r *TableReporter) Report(resolutions []matcher.Resolution) error {
	if countMatches(resolutions) == 0 {
		fmt.Fprintln(r.w, "No advisories are resolved by these updates.")
		return nil
	}

	w := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PACKAGE\tFROM\tTO\tCVE\tALERT\tURL")
	fmt.Fprintln(w, "-------\t----\t--\t---\t-----\t---")

	for _, res := range resolutions {
		for _, m := range matcher.SortByCVE(res.Matches) {
			alert := "-"
			if m.AlertID != 0 {
				alert = fmt.Sprintf("#%d", m.AlertID)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				res.Bump.Package,
				res.Bump.From,
				res.Bump.To,
				m.CVE,
				alert,
				m.AlertURL,
			)
		}
	}
	return w.Flush()
}
