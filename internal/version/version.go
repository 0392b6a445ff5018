package version

// Set with -ldflags "-X sales-dashboard/internal/version.Version=..." at build time.
var (
	Version = "dev"
	Commit  = "none"
)
