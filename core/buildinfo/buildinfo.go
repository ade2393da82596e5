package buildinfo

// These variables are set via -ldflags at build time:
//
//	-X 'github.com/surokacs/petertrain-bot/core/buildinfo.Version=v0.3.0'
//	-X 'github.com/surokacs/petertrain-bot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/surokacs/petertrain-bot/core/buildinfo.Date=2026-10-01T12:00:00Z'
var (
	// Version reports the semantic version or tag of the build.
	Version = "dev"
	// Commit reports the source control commit used for the build.
	Commit = "local"
	// Date reports the build timestamp in RFC3339 format.
	Date = ""
)

// Info is a serialisable snapshot of the build metadata.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date,omitempty"`
}

// Current returns the build metadata of the running binary.
func Current() Info {
	return Info{Version: Version, Commit: Commit, Date: Date}
}
