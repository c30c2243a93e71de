package verification

import (
	"errors"
)

// ErrAttemptInFlight is returned when an input or submission is attempted
// while a submission is running.
var ErrAttemptInFlight = errors.New("verification already in progress")

// ErrUnsupportedType is returned by Encode for anything other than JPEG,
// PNG or PDF.
var ErrUnsupportedType = errors.New("unsupported file type")

const (
	MsgReady           = "Ready to verify your document"
	MsgMissingInputs   = "Please select both a document type and file"
	MsgUnsupportedType = "Unsupported file type. Please upload a JPEG, PNG, or PDF file."
	MsgProcessing      = "Processing document..."
	MsgAnalyzing       = "Analyzing document..."
	MsgComplete        = "Verification complete!"
	MsgStepUp          = "MFA verification required"
	MsgInvalidResponse = "Invalid response format from server"
	MsgTooLargeHint    = "Try reducing resolution or compressing the image."
	MsgEncodeFailed    = "Verification failed. Please try again with a smaller image."
	MsgCancelled       = "Verification cancelled"
)
