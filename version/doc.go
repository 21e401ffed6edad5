// Package version exposes the firmware build identity.
//
// Version and build metadata are set at compile time via -ldflags:
//
//	go build -ldflags "-X github.com/terrasense/mowkit/version.Version=1.4.0"
//
// Fields left unset are filled from the binary's embedded VCS build info
// where available.
package version
