package version

// Build information. Populated at build time via -ldflags:
//
//	-X emojisync/pkg/version.Version=v0.3.0
//	-X emojisync/pkg/version.GitCommit=$(git rev-parse HEAD)
//	-X emojisync/pkg/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)
