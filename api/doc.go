/*
Package api defines the wire contract of the holder address registry.

It holds the request and response types shared by the server (package httpserver)
and the client library (package api/clients), the route paths, and the server
configuration.

# Endpoints

  - POST /api/save-address (alias POST /api/register): register primary -> secondary
  - GET /api/get-address?primaryAddress= (alias GET /api/registrations/{primaryAddress}): lookup
  - POST /api/export-csv: CSV export gated by the shared export credential
  - GET /api/eligibility?address=: ownership gate result for a wallet
  - GET /api/config: supported chain IDs and asset contracts

Registration failures are reported as plain text. A conflict message always
contains "secondary address: " followed by the address the wallet is already
registered with; ParseConflict extracts it.
*/
package api
