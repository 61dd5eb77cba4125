package keystore

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/sentinel-bridge/sentinel/pkg/hostChain"
	"github.com/sentinel-bridge/sentinel/pkg/signer/inMemorySigner"
)

var (
	ErrNoKeysFound      = errors.New("no keys found in the keystore")
	ErrMalformedKeyFile = errors.New("malformed keystore file")
)

// KeyType tags the purpose of a key in the keystore. It forms the first four
// bytes of each file name.
type KeyType [4]byte

var (
	// KeyTypeBridge tags the node's host-chain signing keys.
	KeyTypeBridge = KeyType{'b', 'r', 'd', 'g'}

	// KeyTypeEthereum tags the key used to send Ethereum transactions. The
	// public part of the file name is the 20-byte Ethereum address.
	KeyTypeEthereum = KeyType{'e', 't', 'h', 'k'}
)

// Keystore reads keys from a directory of flat files. Each file is named
// hex(keyType) followed by hex(publicKey), and its body is a JSON-encoded
// string holding the hex private key.
type Keystore struct {
	dir    string
	logger *zap.Logger
}

func NewKeystore(dir string, logger *zap.Logger) *Keystore {
	return &Keystore{dir: dir, logger: logger}
}

// LoadBridgeSigner loads every bridge-tagged key into an in-memory signer.
func (ks *Keystore) LoadBridgeSigner() (*inMemorySigner.InMemorySigner, error) {
	ims := inMemorySigner.NewInMemorySigner()

	publicKeys, err := ks.rawPublicKeys(KeyTypeBridge)
	if err != nil {
		return nil, err
	}
	if len(publicKeys) == 0 {
		return nil, ErrNoKeysFound
	}

	for _, publicKey := range publicKeys {
		if len(publicKey) != len(hostChain.AccountId{}) {
			ks.logger.Sugar().Warnw("Skipping bridge key with unexpected public key length",
				"length", len(publicKey),
			)
			continue
		}
		seed, err := ks.privateKey(KeyTypeBridge, publicKey)
		if err != nil {
			return nil, err
		}

		registered, err := ims.AddSeed(seed)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load bridge key")
		}
		ks.logger.Sugar().Infow("Loaded bridge signing key", "publicKey", registered.String())
	}
	return ims, nil
}

// EthereumKey returns the hex private key of the single Ethereum-tagged key,
// for the transaction-sending chain client.
func (ks *Keystore) EthereumKey() (string, error) {
	publicKeys, err := ks.rawPublicKeys(KeyTypeEthereum)
	if err != nil {
		return "", err
	}
	if len(publicKeys) == 0 {
		return "", ErrNoKeysFound
	}
	if len(publicKeys) > 1 {
		return "", errors.Errorf("multiple ethereum keys found in keystore, only one should be present")
	}

	seed, err := ks.privateKey(KeyTypeEthereum, publicKeys[0])
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(seed), nil
}

// rawPublicKeys lists the public key part of every file carrying the given
// key type tag. Files that do not decode as hex are ignored.
func (ks *Keystore) rawPublicKeys(keyType KeyType) ([][]byte, error) {
	entries, err := os.ReadDir(ks.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read keystore directory %s", ks.dir)
	}

	var publicKeys [][]byte
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		decoded, err := hex.DecodeString(entry.Name())
		if err != nil || len(decoded) <= len(keyType) {
			continue
		}
		if !strings.HasPrefix(entry.Name(), hex.EncodeToString(keyType[:])) {
			continue
		}
		publicKeys = append(publicKeys, decoded[len(keyType):])
	}
	return publicKeys, nil
}

func (ks *Keystore) privateKey(keyType KeyType, publicKey []byte) ([]byte, error) {
	fileName := hex.EncodeToString(keyType[:]) + hex.EncodeToString(publicKey)
	path := filepath.Join(ks.dir, fileName)

	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read keystore file %s", path)
	}

	var keyHex string
	if err := json.Unmarshal(contents, &keyHex); err != nil {
		return nil, errors.Wrapf(ErrMalformedKeyFile, "%s: %v", fileName, err)
	}

	keyBytes, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(keyHex), "0x"))
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedKeyFile, "%s: %v", fileName, err)
	}
	if len(keyBytes) < 32 {
		return nil, errors.Wrapf(ErrMalformedKeyFile, "%s: private key too short (%d bytes)", fileName, len(keyBytes))
	}
	return keyBytes[:32], nil
}
