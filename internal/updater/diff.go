package updater

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/spf13/afero"

	"github.com/sershocode/supdater/internal/remote"
)

// Action is what the orchestrator does with one remote entry.
type Action int

const (
	// ActionRecord only records the entry in the state (directories).
	ActionRecord Action = iota
	// ActionSkip drops the entry entirely (links, entries outside the root).
	ActionSkip
	// ActionIgnore drops a remote file matched by the download-ignore rules.
	ActionIgnore
	// ActionTransfer sends the file through the download decision.
	ActionTransfer
)

// DiffEngine maps remote entries onto the local tree and computes the deletion set.
type DiffEngine struct {
	rules      *Rules
	selfIgnore mapset.Set[string]
}

func NewDiffEngine(rules *Rules, selfIgnore []string) *DiffEngine {
	return &DiffEngine{
		rules:      rules,
		selfIgnore: mapset.NewThreadUnsafeSet(selfIgnore...),
	}
}

// RelPath strips the remote root from a listed path. The second return is false
// for the root itself and for paths outside of it.
func RelPath(root, entryPath string) (string, bool) {
	root = strings.TrimSuffix(root, "/")
	if root == "" {
		rel := strings.TrimLeft(entryPath, "/")
		return rel, rel != ""
	}
	if !strings.HasPrefix(entryPath, root+"/") {
		return "", false
	}
	rel := strings.TrimLeft(entryPath[len(root):], "/")
	return rel, rel != ""
}

// Classify records entry in state and returns the action to take together
// with its root-relative path.
func (d *DiffEngine) Classify(state *ReconciliationState, root string, entry remote.Entry) (string, Action) {
	rel, ok := RelPath(root, entry.Path)
	if !ok {
		return "", ActionSkip
	}

	switch entry.Kind {
	case remote.KindDirectory:
		state.RemoteDirs.Add(rel)
		return rel, ActionRecord
	case remote.KindFile:
		if d.rules.IgnoreDownload(rel) {
			state.Ignored.Add(rel)
			return rel, ActionIgnore
		}
		state.RemoteFiles.Add(rel)
		return rel, ActionTransfer
	default:
		return rel, ActionSkip
	}
}

// LocalTree is a snapshot of the files and directories under the sync root.
type LocalTree struct {
	Files mapset.Set[string]
	Dirs  mapset.Set[string]
}

// ScanLocal walks fsys from its root. fsys is expected to be rooted at the sync root.
func ScanLocal(fsys afero.Fs) (*LocalTree, error) {
	tree := &LocalTree{
		Files: mapset.NewThreadUnsafeSet[string](),
		Dirs:  mapset.NewThreadUnsafeSet[string](),
	}

	err := afero.Walk(fsys, ".", func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == "." {
			return nil
		}

		rel := filepath.ToSlash(path)
		if info.IsDir() {
			tree.Dirs.Add(rel)
		} else {
			tree.Files.Add(rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan local tree: %w", err)
	}
	return tree, nil
}

// ComputeDeletions returns the local paths absent from the remote listing.
// Files also honor the self-ignore set; directories only the delete-ignore rules.
// It refuses to run on a partial listing.
func (d *DiffEngine) ComputeDeletions(local *LocalTree, state *ReconciliationState) (*DeletionPlan, error) {
	if !state.Complete() {
		return nil, ErrIncompleteListing
	}

	plan := &DeletionPlan{}

	for rel := range local.Files.Difference(state.RemoteFiles).Iter() {
		if d.selfIgnore.Contains(rel) {
			continue
		}
		if d.rules.IgnoreDelete(rel) {
			plan.Protected++
			continue
		}
		plan.Files = append(plan.Files, rel)
	}

	for rel := range local.Dirs.Difference(state.RemoteDirs).Iter() {
		if d.rules.IgnoreDelete(rel) {
			plan.Protected++
			continue
		}
		plan.Dirs = append(plan.Dirs, rel)
	}

	slices.Sort(plan.Files)
	slices.SortFunc(plan.Dirs, func(a, b string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return strings.Compare(a, b)
	})

	return plan, nil
}
