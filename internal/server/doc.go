// Package server implements the OTA HTTP server for embedded field devices.
//
// The server owns a raw TCP accept loop rather than sitting behind
// net/http's Server. Two device-side constraints drive this:
//
//   - Admission control must happen before any request bytes are read.
//     A connection arriving at capacity is closed immediately, so a slow
//     or malicious client can never pin a handler by trickling a request
//     line. net/http only surfaces a connection after parsing begins.
//
//   - Response bytes must be exactly what the device firmware's minimal
//     HTTP parser expects. Writing the status line and headers by hand
//     gives byte-level control over header order and formatting.
//
// # Endpoints
//
//	GET /version  JSON digest/size of the current firmware artifact
//	GET /update   firmware body, resumable via Range: bytes=<a>-<b>
//	GET /status   server health: active connections, firmware presence
//
// Everything else, including non-GET methods, is a 404. Every response
// carries Connection: close; devices open a fresh connection per request.
//
// # Range semantics
//
// Only the single-range form bytes=<start>-<end> is supported, with
// either side optional. The suffix form bytes=-N is rejected with 416
// rather than misread as starting at byte 0; devices resuming a
// download always know their absolute offset, so the suffix form has no
// legitimate client. Multiple ranges are likewise rejected.
package server
