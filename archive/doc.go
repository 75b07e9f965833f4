// Package archive stores export snapshots in one or more sinks.
//
// Each successful CSV export can be copied to the configured archives so
// operators keep a history of what was handed out. Archiving is best effort:
// a failing sink is logged and skipped.
//
// # Archive URI Format
//
//   - file:///var/lib/registry/exports/
//   - s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/prefix/?region=us-west-2&endpoint=custom.s3.com
//   - ipfs://host:port/?timeout=30s
package archive
