// Package present renders a successful recognition and tracks which answers
// the user has revealed.
//
// Disclosure state is keyed by the 0-based index of each question/answer pair
// and lives exactly as long as the Success it belongs to: Update with any new
// outcome discards it. All answers start hidden.
package present
