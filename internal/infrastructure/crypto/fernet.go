package crypto

import (
	"errors"
	"fmt"
	"time"

	"github.com/fernet/fernet-go"
)

// Stored credentials do not expire; the TTL only has to outlive any record.
const tokenTTL = 100 * 365 * 24 * time.Hour

var ErrUndecryptable = errors.New("value is not a valid token for the configured key")

// FernetCipher encrypts credentials with Fernet tokens so that values written
// by earlier deployments of the console stay readable.
type FernetCipher struct {
	keys []*fernet.Key
}

// NewFernetCipher takes the primary key first; extra keys are accepted for
// decryption only, which allows key rotation.
func NewFernetCipher(primary string, previous ...string) (*FernetCipher, error) {
	keys := make([]*fernet.Key, 0, 1+len(previous))
	for i, raw := range append([]string{primary}, previous...) {
		k, err := fernet.DecodeKey(raw)
		if err != nil {
			return nil, fmt.Errorf("crypto: decode key %d: %w", i, err)
		}
		keys = append(keys, k)
	}
	return &FernetCipher{keys: keys}, nil
}

func (c *FernetCipher) Encrypt(plaintext string) (string, error) {
	tok, err := fernet.EncryptAndSign([]byte(plaintext), c.keys[0])
	if err != nil {
		return "", fmt.Errorf("crypto: encrypt: %w", err)
	}
	return string(tok), nil
}

func (c *FernetCipher) Decrypt(ciphertext string) (string, error) {
	msg := fernet.VerifyAndDecrypt([]byte(ciphertext), tokenTTL, c.keys)
	if msg == nil {
		return "", ErrUndecryptable
	}
	return string(msg), nil
}
