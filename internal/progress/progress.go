// Package progress drives the terminal spinner a running `scan` shows
// while a walk is in flight. The scan's own item count isn't known ahead
// of time (unlike a fixed-size file list), so this only ever runs in
// spinner mode in practice; determinate mode is kept for a future caller
// with a known total (e.g. a resumed scan replaying a fixed row count).
package progress

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

const describeThrottle = 50 * time.Millisecond

// Bar wraps progressbar/v3 with an enabled/disabled toggle so callers
// don't need an `if !opts.noProgress` guard at every call site. Every
// method is a no-op on a disabled Bar.
type Bar struct {
	bar *progressbar.ProgressBar
}

// New builds a Bar. total<0 renders an indeterminate spinner (the scan
// case, since the item count isn't known until the walk finishes);
// total>=0 renders a determinate bar. enabled=false returns a Bar whose
// methods do nothing, for --no-progress / non-interactive runs.
func New(enabled bool, total int64) *Bar {
	if !enabled {
		return &Bar{}
	}

	opts := []progressbar.Option{
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionThrottle(describeThrottle),
		progressbar.OptionClearOnFinish(),
	}

	if total < 0 {
		opts = append(opts,
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetElapsedTime(false),
		)
		return &Bar{bar: progressbar.NewOptions(-1, opts...)}
	}

	opts = append(opts, progressbar.OptionSetWidth(40))
	return &Bar{bar: progressbar.NewOptions64(total, opts...)}
}

// Set moves a determinate Bar to an absolute value; meaningless on a
// spinner and ignored there.
func (b *Bar) Set(n uint64) {
	if b.bar != nil {
		_ = b.bar.Set64(int64(n))
	}
}

// Describe replaces the bar's label, e.g. with a live entries-scanned
// count polled from progresschannel.Snapshot.
func (b *Bar) Describe(s fmt.Stringer) {
	if b.bar != nil {
		b.bar.Describe(s.String())
	}
}

// Finish stops the bar and prints a one-line completion summary in its
// place.
func (b *Bar) Finish(s fmt.Stringer) {
	if b.bar != nil {
		_ = b.bar.Finish()
		fmt.Fprintln(os.Stderr, "done: "+s.String())
	}
}
