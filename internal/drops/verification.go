package drops

// Reason explains how an ownership verification concluded.
type Reason string

const (
	// ReasonVerified means the linked profile references the official domain.
	ReasonVerified Reason = "verified"
	// ReasonNoDomain means the official URL had no usable host.
	ReasonNoDomain Reason = "no_domain"
	// ReasonFetchFailed means the official page could not be retrieved.
	ReasonFetchFailed Reason = "fetch_failed"
	// ReasonNoHandle means the page did not link a social profile.
	ReasonNoHandle Reason = "no_handle"
	// ReasonLookupFailed means the profile lookup errored.
	ReasonLookupFailed Reason = "lookup_failed"
	// ReasonProfileMismatch means the profile does not mention the domain.
	ReasonProfileMismatch Reason = "profile_mismatch"
)

// Verification is the outcome of an ownership check. Domain and Handle are
// populated as far as the check progressed, even when Verified is false.
type Verification struct {
	Verified bool   `json:"verified"`
	Domain   string `json:"domain,omitempty"`
	Handle   string `json:"handle,omitempty"`
	Reason   Reason `json:"reason"`
}
