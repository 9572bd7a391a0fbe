// Package buildinfo carries the version string stamped into the
// avrorouter binary at link time.
package buildinfo

import "fmt"

// Version is overridden at build time via:
//
//	go build -ldflags "-X github.com/ghc888/MaxScale/internal/buildinfo.Version=1.2.3"
var Version = "dev"

// String renders the version for the `avrorouter version` command.
func String() string {
	return fmt.Sprintf("avrorouter %s", Version)
}
