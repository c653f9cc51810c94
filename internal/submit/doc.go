// Package submit drives the single in-flight recognition request.
//
// The Controller holds one Outcome at a time: Idle, Loading, Success or
// Failure. Submit moves to Loading, discarding any previous result, issues
// exactly one request, and always lands in Success or Failure. A Submit
// call made while another is Loading is ignored. Nothing returns the
// controller to Idle once a request has been made.
//
// Every failure (transport error, non-2xx status, malformed body) is
// reported to the user with the same GenericErrorMessage; the cause goes to
// the operator log only.
package submit
