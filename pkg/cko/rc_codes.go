package cko

// RC Classification

// ApprovedRCs complete the capture.
var ApprovedRCs = map[string]bool{
	"00": true, // Approved or completed successfully
}

// RetryableRCs are declines another acquirer may still approve.
var RetryableRCs = map[string]bool{
	"19": true, // Re-enter transaction
	"68": true, // Response received too late
	"90": true, // Cutoff in progress
	"91": true, // Issuer or switch inoperative
	"92": true, // Unable to route transaction
	"96": true, // System malfunction
}

func IsApproved(rc string) bool {
	return ApprovedRCs[rc]
}

// IsRetryable reports whether a decline may be retried on another network.
// Any RC that is neither approved nor listed here is a final decline.
func IsRetryable(rc string) bool {
	return RetryableRCs[rc]
}
