package inMemorySigner

import (
	"bytes"
	"crypto/ed25519"
	"sort"

	"github.com/sentinel-bridge/sentinel/pkg/hostChain"
	"github.com/sentinel-bridge/sentinel/pkg/signer"
)

// InMemorySigner holds ed25519 signing keys in process memory, keyed by
// their 32-byte public key.
type InMemorySigner struct {
	keys map[hostChain.AccountId]ed25519.PrivateKey
}

func NewInMemorySigner() *InMemorySigner {
	return &InMemorySigner{
		keys: make(map[hostChain.AccountId]ed25519.PrivateKey),
	}
}

// AddSeed derives a keypair from a 32-byte seed and registers it. Returns
// the public key the host chain knows this key by.
func (ims *InMemorySigner) AddSeed(seed []byte) (hostChain.AccountId, error) {
	if len(seed) != ed25519.SeedSize {
		return hostChain.AccountId{}, signer.ErrUnknownSigningKey
	}
	privateKey := ed25519.NewKeyFromSeed(seed)

	var publicKey hostChain.AccountId
	copy(publicKey[:], privateKey.Public().(ed25519.PublicKey))
	ims.keys[publicKey] = privateKey
	return publicKey, nil
}

func (ims *InMemorySigner) SigningKeys() []hostChain.AccountId {
	keys := make([]hostChain.AccountId, 0, len(ims.keys))
	for key := range ims.keys {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i][:], keys[j][:]) < 0
	})
	return keys
}

func (ims *InMemorySigner) SignMessage(signingKey hostChain.AccountId, data []byte) ([]byte, error) {
	privateKey, ok := ims.keys[signingKey]
	if !ok {
		return nil, signer.ErrUnknownSigningKey
	}
	return ed25519.Sign(privateKey, data), nil
}

func (ims *InMemorySigner) VerifyMessage(signingKey hostChain.AccountId, message []byte, signature []byte) (bool, error) {
	if _, ok := ims.keys[signingKey]; !ok {
		return false, signer.ErrUnknownSigningKey
	}
	return ed25519.Verify(ed25519.PublicKey(signingKey[:]), message, signature), nil
}
