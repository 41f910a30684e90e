package updater

import (
	"fmt"
	"regexp"
	"strings"
)

// Rules is the compiled form of the configured path filters.
// Every pattern is tested against the forward-slash path relative to the sync root.
// Empty patterns are dropped, they would otherwise match every path.
type Rules struct {
	downloadIgnore []*regexp.Regexp
	onlyIfMissing  []string
	deleteIgnore   []*regexp.Regexp
}

func NewRules(downloadIgnore, onlyIfMissing, deleteIgnore []string) (*Rules, error) {
	dl, err := compileAll(downloadIgnore)
	if err != nil {
		return nil, fmt.Errorf("download ignore: %w", err)
	}

	del, err := compileAll(deleteIgnore)
	if err != nil {
		return nil, fmt.Errorf("delete ignore: %w", err)
	}

	var substrings []string
	for _, s := range onlyIfMissing {
		if s != "" {
			substrings = append(substrings, s)
		}
	}

	return &Rules{
		downloadIgnore: dl,
		onlyIfMissing:  substrings,
		deleteIgnore:   del,
	}, nil
}

// IgnoreDownload reports whether the remote file must neither be downloaded
// nor counted as seen on the server.
func (r *Rules) IgnoreDownload(rel string) bool {
	return matchAny(r.downloadIgnore, rel)
}

// OnlyIfMissing reports whether an existing local copy of rel is never overwritten.
func (r *Rules) OnlyIfMissing(rel string) bool {
	for _, s := range r.onlyIfMissing {
		if strings.Contains(rel, s) {
			return true
		}
	}
	return false
}

// IgnoreDelete reports whether the local path is protected from deletion.
func (r *Rules) IgnoreDelete(rel string) bool {
	return matchAny(r.deleteIgnore, rel)
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if p == "" {
			continue
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func matchAny(set []*regexp.Regexp, rel string) bool {
	for _, re := range set {
		if re.MatchString(rel) {
			return true
		}
	}
	return false
}
