package inMemorySigner

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-bridge/sentinel/pkg/hostChain"
	"github.com/sentinel-bridge/sentinel/pkg/signer"
)

func seed(b byte) []byte {
	s := make([]byte, 32)
	s[0] = b
	return s
}

func Test_InMemorySigner(t *testing.T) {
	t.Run("Should sign and verify with a registered key", func(t *testing.T) {
		ims := NewInMemorySigner()
		publicKey, err := ims.AddSeed(seed(1))
		require.NoError(t, err)

		message := []byte("vote payload")
		signature, err := ims.SignMessage(publicKey, message)
		require.NoError(t, err)

		valid, err := ims.VerifyMessage(publicKey, message, signature)
		require.NoError(t, err)
		assert.True(t, valid)

		valid, err = ims.VerifyMessage(publicKey, []byte("tampered"), signature)
		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("Should reject unknown signing keys", func(t *testing.T) {
		ims := NewInMemorySigner()

		_, err := ims.SignMessage(hostChain.AccountId{0xff}, []byte("payload"))
		assert.ErrorIs(t, err, signer.ErrUnknownSigningKey)

		_, err = ims.VerifyMessage(hostChain.AccountId{0xff}, []byte("payload"), nil)
		assert.ErrorIs(t, err, signer.ErrUnknownSigningKey)
	})

	t.Run("Should reject malformed seeds", func(t *testing.T) {
		ims := NewInMemorySigner()
		_, err := ims.AddSeed([]byte{0x01, 0x02})
		assert.Error(t, err)
	})

	t.Run("Should list signing keys in sorted order", func(t *testing.T) {
		ims := NewInMemorySigner()
		for b := byte(1); b <= 5; b++ {
			_, err := ims.AddSeed(seed(b))
			require.NoError(t, err)
		}

		keys := ims.SigningKeys()
		require.Len(t, keys, 5)
		for i := 1; i < len(keys); i++ {
			assert.Negative(t, bytes.Compare(keys[i-1][:], keys[i][:]))
		}
	})
}
