// Package vision wraps the hosted visual-analysis API used when heuristic
// extraction cannot identify a record photo with enough confidence. Requests
// carry the photo as base64 and ask for a JSON-only response; transient
// failures are retried with exponential backoff.
package vision
