package updater

// Reporter receives per-entry progress of a run. Implementations render it for
// the user; the engine never writes to the console directly.
type Reporter interface {
	Ignored(rel string)
	UpToDate(rel string)
	Downloading(rel string, size int64)
	Downloaded(rel string, size int64)
	Deleting(rel string, dir bool)
}

type nopReporter struct{}

func (nopReporter) Ignored(string)            {}
func (nopReporter) UpToDate(string)           {}
func (nopReporter) Downloading(string, int64) {}
func (nopReporter) Downloaded(string, int64)  {}
func (nopReporter) Deleting(string, bool)     {}
