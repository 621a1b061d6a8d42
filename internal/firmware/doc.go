// Package firmware provides access to the firmware artifact on disk.
//
// The artifact is a plain file the operator drops into the configured
// directory; nothing is persisted about it between server restarts. The
// package offers two things on top of the filesystem: a metadata cache
// that memoizes the artifact's content digest keyed by modification
// time, and a chunked streamer that delivers an exact byte range to a
// client in bounded memory.
//
// Devices compare the digest from GET /version against the digest of
// their running image to decide whether to download. The digest is MD5
// in hex form; the algorithm is fixed by the device-side protocol (the
// wire field is named firmware_md5) and is a fingerprint for change
// detection, not a security boundary.
package firmware
