// Package common holds process-wide helpers shared by the binaries: version
// information and logger construction.
package common

// PackageName is used as the metrics namespace and the default log service tag.
const PackageName = "holder_address_registry"

// Version is overridden at build time with -ldflags "-X .../common.Version=...".
var Version = "dev"
