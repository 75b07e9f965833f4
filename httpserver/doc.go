/*
Package httpserver serves the holder address registry API.

A wallet-connection UI posts a primary (EVM) address together with the
secondary (base58 ed25519) address it wants recorded. The server validates the
secondary address, optionally re-checks asset ownership on chain, and stores the
mapping once. Later registrations for the same primary address are rejected with
a message naming the address already on file.

Operators download all registrations as CSV by posting the shared export
credential. Responses are gzip-compressed when the client accepts it.

API Endpoints:

  - POST /api/save-address, POST /api/register
  - GET /api/get-address?primaryAddress=, GET /api/registrations/{primaryAddress}
  - POST /api/export-csv
  - GET /api/eligibility?address=
  - GET /api/config
  - GET /livez, /readyz, /drain, /undrain
  - /debug/pprof when enabled

Request bodies are limited to 1MB. Metrics are served on a separate listener.
*/
package httpserver
