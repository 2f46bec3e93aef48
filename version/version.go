package version

// Version is the release of the phonebook binary, set at build time with
// -ldflags "-X github.com/Daskott/phonebook/version.Version=..."
var Version = "0.1.0"
