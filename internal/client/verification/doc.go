// Package verification drives a single document verification attempt:
// input selection, encoding, submission, and the simulated progress shown
// while the backend works.
//
// A Pipeline moves idle → uploading → analyzing → complete, or to error
// from either in-flight state. Reset returns it to idle from anywhere.
package verification
