package signer

import (
	"github.com/pkg/errors"

	"github.com/sentinel-bridge/sentinel/pkg/hostChain"
)

// ErrUnknownSigningKey means the requested key is not held by this signer.
var ErrUnknownSigningKey = errors.New("signing key not held by this signer")

// ISigner signs host-chain payloads with one of the keys this node holds.
// Keys are addressed by their 32-byte public key, which doubles as the
// node's on-chain signing identity.
type ISigner interface {
	// SigningKeys lists the public keys this signer can sign with, in a
	// stable sorted order.
	SigningKeys() []hostChain.AccountId

	SignMessage(signingKey hostChain.AccountId, data []byte) ([]byte, error)

	VerifyMessage(signingKey hostChain.AccountId, message []byte, signature []byte) (bool, error)
}
