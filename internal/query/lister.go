package query

import (
	"context"
	"os"
)

// ChildStat is a single-level directory listing result: enough to show an
// unscanned child in synthesis mode without recursing into it.
type ChildStat struct {
	Name  string
	IsDir bool
	Size  int64
	MTime int64
}

// Lister lists the immediate children of a URI, used only by synthesis
// mode (spec.md §4.6.2) when no catalogued scan covers the requested URI.
type Lister interface {
	ListChildren(ctx context.Context, uri string) ([]ChildStat, error)
}

// osLister is the default Lister, for local filesystem paths.
type osLister struct{}

// NewOSLister returns a Lister backed by os.ReadDir/os.Stat, suitable for
// local-path URIs. Object-store synthesis would need its own Lister
// (single-level prefix listing) -- out of scope here since spec.md's
// literal synthesis scenario (§8) is a local-filesystem empty-bucket case.
func NewOSLister() Lister { return osLister{} }

func (osLister) ListChildren(_ context.Context, uri string) ([]ChildStat, error) {
	ents, err := os.ReadDir(uri)
	if err != nil {
		return nil, err
	}
	out := make([]ChildStat, 0, len(ents))
	for _, e := range ents {
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, ChildStat{
			Name:  e.Name(),
			IsDir: e.IsDir(),
			Size:  info.Size(),
			MTime: info.ModTime().Unix(),
		})
	}
	return out, nil
}
