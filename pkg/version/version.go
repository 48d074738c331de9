package version

// Version is the vcu version. Overridden at build time with -ldflags.
var Version = "dev"
