package codec

import (
	"errors"
	"fmt"

	"github.com/fernet/fernet-go"
)

var (
	ErrMissingKey = errors.New("encryption key is not configured")
	ErrDecrypt    = errors.New("unable to decrypt value")
)

// Cipher encrypts strings into Fernet tokens.
type Cipher struct {
	keys []*fernet.Key
}

// NewCipher accepts one or more base64 keys. The first key encrypts, all keys decrypt.
func NewCipher(encodedKeys ...string) (*Cipher, error) {
	if len(encodedKeys) == 0 || encodedKeys[0] == "" {
		return nil, ErrMissingKey
	}
	keys, err := fernet.DecodeKeys(encodedKeys...)
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}
	return &Cipher{keys: keys}, nil
}

func (c *Cipher) Encrypt(plain string) (string, error) {
	tok, err := fernet.EncryptAndSign([]byte(plain), c.keys[0])
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	return string(tok), nil
}

// Decrypt skips the token age check; sealed values are kept as long as their rows.
func (c *Cipher) Decrypt(token string) (string, error) {
	msg := fernet.VerifyAndDecrypt([]byte(token), 0, c.keys)
	if msg == nil {
		return "", ErrDecrypt
	}
	return string(msg), nil
}
