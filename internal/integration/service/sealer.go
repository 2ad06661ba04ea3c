package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"strings"

	"github.com/smallbiznis/missioncontrol/internal/integration/domain"
	"golang.org/x/crypto/hkdf"
)

const (
	sealedPrefix = "sealed:v1:"
	sealInfo     = "missioncontrol/integration-config/v1"
)

// sealer encrypts credential values inside a config bag. A sealer without a
// key passes values through unchanged.
type sealer struct {
	aead cipher.AEAD
}

func newSealer(secret string) (*sealer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return &sealer{}, nil
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(sealInfo)), key); err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &sealer{aead: aead}, nil
}

func (s *sealer) enabled() bool {
	return s != nil && s.aead != nil
}

func (s *sealer) seal(value string) (string, error) {
	if !s.enabled() || value == "" || strings.HasPrefix(value, sealedPrefix) {
		return value, nil
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	out := s.aead.Seal(nonce, nonce, []byte(value), nil)
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(out), nil
}

func (s *sealer) open(value string) (string, error) {
	if !strings.HasPrefix(value, sealedPrefix) {
		return value, nil
	}
	if !s.enabled() {
		return "", domain.ErrSealedValue
	}
	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", domain.ErrSealedValue
	}
	size := s.aead.NonceSize()
	if len(raw) < size {
		return "", domain.ErrSealedValue
	}
	plain, err := s.aead.Open(nil, raw[:size], raw[size:], nil)
	if err != nil {
		return "", domain.ErrSealedValue
	}
	return string(plain), nil
}

// sealBag seals every secret key holding a string.
func (s *sealer) sealBag(bag domain.ConfigBag) (domain.ConfigBag, error) {
	out := bag.Clone()
	for _, key := range domain.SecretKeys {
		value, ok := out[key].(string)
		if !ok {
			continue
		}
		sealed, err := s.seal(value)
		if err != nil {
			return nil, err
		}
		out[key] = sealed
	}
	return out, nil
}

// openBag reverses sealBag.
func (s *sealer) openBag(bag domain.ConfigBag) (domain.ConfigBag, error) {
	out := bag.Clone()
	for _, key := range domain.SecretKeys {
		value, ok := out[key].(string)
		if !ok {
			continue
		}
		plain, err := s.open(value)
		if err != nil {
			return nil, err
		}
		out[key] = plain
	}
	return out, nil
}
