package version

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// String is the one-line version banner.
func String() string {
	return Version + " (commit: " + GitCommit + ", built: " + BuildDate + ")"
}
