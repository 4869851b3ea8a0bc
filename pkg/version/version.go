package version

// Version is the build version, overridden with -ldflags "-X aisview/pkg/version.Version=...".
var Version = "v0.3.0"
