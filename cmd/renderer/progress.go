package main

import (
	"fmt"
	"io"

	"golang.org/x/time/rate"
)

// progressReporter prints the number of scanlines left.  On a terminal the
// line is overwritten in place; otherwise each report gets its own line.
type progressReporter struct {
	out     io.Writer
	inPlace bool
	limiter *rate.Limiter
}

func newProgressReporter(out io.Writer, inPlace bool, every rate.Limit) *progressReporter {
	return &progressReporter{
		out:     out,
		inPlace: inPlace,
		limiter: rate.NewLimiter(every, 1),
	}
}

// Report has the signature of camera.ProgressFunction.  Reports are throttled,
// except for the last row.
func (p *progressReporter) Report(rowsDone, rowsTotal int) {
	if rowsDone < rowsTotal && !p.limiter.Allow() {
		return
	}

	if p.inPlace {
		fmt.Fprintf(p.out, "\rScanlines remaining: %d ", rowsTotal-rowsDone)
	} else {
		fmt.Fprintf(p.out, "Scanlines remaining: %d\n", rowsTotal-rowsDone)
	}
}

func (p *progressReporter) Done() {
	if p.inPlace {
		fmt.Fprintf(p.out, "\rDone.                 \n")
	} else {
		fmt.Fprintf(p.out, "Done.\n")
	}
}
