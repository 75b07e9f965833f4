// Package main (cmd/registry_client) is a command-line client for the holder
// address registry.
//
// Commands:
//
//	register     --primary 0x... --secondary <base58>
//	lookup       --primary 0x...
//	eligibility  --primary 0x...
//	export       --credential <secret> [--out addresses.csv]
//	config
//
// The server is selected with --server-addr (REGISTRY_SERVER_ADDR).
package main
