package version

var (
	// GitCommit is the current HEAD set using ldflags.
	GitCommit string

	// LCCoreSemVer is the current version of ledgercore.
	// Must be a string because scripts like dist.sh read this file.
	LCCoreSemVer = "0.1.0"
)

// Version 带上git commit的版本号
func Version() string {
	if GitCommit != "" {
		return LCCoreSemVer + "-" + GitCommit
	}
	return LCCoreSemVer
}
