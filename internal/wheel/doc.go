// Package wheel resolves, downloads, and validates the pyzed wheel and the
// prebuilt Windows dependency wheels.
//
// # Resolution
//
// Exactly one candidate is built for a host: the file name and URL are pure
// functions of the OS, machine name, SDK version, and Python version. There
// is no index lookup.
//
// # Download
//
// A wheel is fetched with a single GET. The status code is checked before
// anything is written, and the body is streamed to a temporary file that is
// renamed into place. When the TLS handshake fails because the server
// certificate cannot be trusted, the caller may supply a repair function
// returning extra root certificates; the download is then retried once.
//
// # Validation
//
// No checksums or signatures are published for these wheels, so a download
// is only accepted when it is larger than MinArtifactSize and starts with the
// ZIP signature. This rejects HTML error pages served with a 200 status.
package wheel
