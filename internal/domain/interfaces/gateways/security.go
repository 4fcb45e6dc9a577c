// Package gateways defines interfaces for external service adapters.
package gateways

import (
	"context"
)

// SignatureGateway verifies detached signatures of downloaded archives
type SignatureGateway interface {
	VerifyGPGSignature(ctx context.Context, filePath, sigURL string) error
}
