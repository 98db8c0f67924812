// Package fetch downloads source archives and verifies them against the
// digest a formula declares.
//
// Verified archives live in a content-addressed cache laid out as
// <downloads>/<algorithm>/<digest>/<basename>. Bytes are hashed while they
// are written to a pending file, and the file is only published into the
// cache once the digest matches. Transport faults are retried with
// exponential backoff; a hash mismatch never is. Concurrent requests for the
// same URL and digest share one download.
package fetch
