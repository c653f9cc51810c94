// Package ocrapi is the HTTP client for the text recognition backend.
//
// # Contract
//
//	POST {base}/api/ocr     multipart form, one part named "image"
//	GET  {base}/api/health  liveness probe
//
// A successful recognition returns:
//
//	{"text": "...", "qa_pairs": [{"question": "...", "answer": "..."}]}
//
// qa_pairs may be empty but must be present. Any non-2xx status yields a
// *StatusError; a 2xx body that does not match this shape yields
// ErrMalformedResponse. Callers that only need a pass/fail signal can treat
// every error the same way.
//
// Each request carries an X-Request-ID header so client and backend logs can
// be correlated.
package ocrapi
