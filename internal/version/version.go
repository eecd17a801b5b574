package version

// Version is the current version of mindful-paint.
// It is set at build time with:
//
//	go build -ldflags="-X 'mindful-paint/internal/version.Version=v1.0.0'"
var Version = "dev"
