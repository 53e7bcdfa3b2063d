package version

// Version is the current version of the vconf binaries.
// This value can be overridden at build time using:
//   go build -ldflags="-X 'github.com/cchaithanya83/video-conferncing-platform/internal/version.Version=v1.0.0'"
var Version = "dev"
