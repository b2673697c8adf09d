package droperrors

import (
	"errors"
	"strings"
)

// Claim (C) Errors
var (
	ErrInvalidSignature = errors.New("C1|InvalidSignature: Recovered signer does not match the named recipient, or the signature encoding is malformed or malleable.")
	ErrAlreadyClaimed   = errors.New("C2|AlreadyClaimed: The ledger already records this recipient as claimed.")
	ErrInvalidProof     = errors.New("C3|InvalidProof: Root recomputed from the leaf and proof path does not match the distribution root.")
)

// Signature tooling (S) Errors
var (
	ErrInvalidSignatureLength = errors.New("S1|InvalidSignatureLength: A raw signature buffer must be exactly 65 bytes (r, s, v).")
)

// Builder (B) Errors
var (
	ErrEmptyWhitelist      = errors.New("B1|EmptyWhitelist: Cannot build a distribution tree over zero entitlements.")
	ErrDuplicateRecipient  = errors.New("B2|DuplicateRecipient: The same recipient appears more than once in the whitelist.")
	ErrRecipientNotInTree  = errors.New("B3|RecipientNotInTree: No leaf in the tree matches the requested recipient.")
	ErrLeafIndexOutOfRange = errors.New("B4|LeafIndexOutOfRange: Leaf index does not address any entitlement in the tree.")
)

// GetErrorName extracts the error name from the error message.
func GetErrorName(err error) string {
	if err == nil {
		return "No Error"
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "|") || !strings.Contains(errStr, ":") {
		return errStr
	}
	parts := strings.SplitN(errStr, "|", 2)
	if len(parts) < 2 {
		return errStr
	}
	nameDesc := parts[1]
	nameParts := strings.SplitN(nameDesc, ":", 2)
	if len(nameParts) < 1 {
		return errStr
	}
	return strings.TrimSpace(nameParts[0])
}

// GetErrorCode extracts the error code from the error message.
func GetErrorCode(err error) string {
	if err == nil {
		return ""
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "|") {
		return ""
	}
	parts := strings.SplitN(errStr, "|", 2)
	return strings.TrimSpace(parts[0])
}
