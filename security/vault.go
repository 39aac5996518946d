package security

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"github.com/estait/crmbridge/core"
)

const (
	keyLength     = 32
	ivLength      = 16
	tagLength     = 16
	saltLength    = 64
	kdfIterations = 100_000
)

// Vault encrypts secret strings with AES-256-GCM. The cipher key is derived
// from the injected key material with PBKDF2-SHA256 over a per-envelope random
// salt, so the raw secret never touches the cipher directly. Envelope layout:
// base64(salt[64] || iv[16] || tag[16] || ciphertext).
type Vault struct {
	keyMaterial []byte
}

type Option func(*Vault)

// NewVault builds a vault from operator-provided key material. The key is
// injected rather than read from process environment so rotation and testing
// with alternate keys stay in the caller's hands.
func NewVault(keyMaterial []byte, opts ...Option) (*Vault, error) {
	material := bytes.TrimSpace(keyMaterial)
	if len(material) == 0 {
		return nil, core.NewConfigurationError("security: encryption key material is required")
	}
	vault := &Vault{keyMaterial: append([]byte(nil), material...)}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(vault)
	}
	return vault, nil
}

func NewVaultFromString(key string, opts ...Option) (*Vault, error) {
	return NewVault([]byte(key), opts...)
}

// Encrypt seals plaintext into a fresh envelope. Two calls with the same input
// produce different envelopes; envelope equality says nothing about plaintext
// equality.
func (v *Vault) Encrypt(_ context.Context, plaintext []byte) ([]byte, error) {
	if v == nil || len(v.keyMaterial) == 0 {
		return nil, core.NewConfigurationError("security: vault is not configured")
	}

	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("security: salt generation failed: %w", err)
	}
	iv := make([]byte, ivLength)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("security: iv generation failed: %w", err)
	}

	gcm, err := v.cipherFor(salt)
	if err != nil {
		return nil, err
	}

	sealed := gcm.Seal(nil, iv, plaintext, nil)
	if len(sealed) < tagLength {
		return nil, fmt.Errorf("security: sealed payload shorter than auth tag")
	}
	ciphertext := sealed[:len(sealed)-tagLength]
	tag := sealed[len(sealed)-tagLength:]

	combined := make([]byte, 0, saltLength+ivLength+tagLength+len(ciphertext))
	combined = append(combined, salt...)
	combined = append(combined, iv...)
	combined = append(combined, tag...)
	combined = append(combined, ciphertext...)

	encoded := make([]byte, base64.StdEncoding.EncodedLen(len(combined)))
	base64.StdEncoding.Encode(encoded, combined)
	return encoded, nil
}

// Decrypt opens an envelope produced by Encrypt, reconstructing salt, iv, and
// tag from the payload. Any malformed or tampered envelope fails with a
// credential-corrupt error and never yields plaintext.
func (v *Vault) Decrypt(_ context.Context, envelope []byte) ([]byte, error) {
	if v == nil || len(v.keyMaterial) == 0 {
		return nil, core.NewConfigurationError("security: vault is not configured")
	}

	combined, err := base64.StdEncoding.DecodeString(string(envelope))
	if err != nil {
		return nil, core.NewCredentialCorruptError("security: envelope is not valid base64", err)
	}
	if len(combined) < saltLength+ivLength+tagLength {
		return nil, core.NewCredentialCorruptError("security: envelope is truncated", nil)
	}

	salt := combined[:saltLength]
	iv := combined[saltLength : saltLength+ivLength]
	tag := combined[saltLength+ivLength : saltLength+ivLength+tagLength]
	ciphertext := combined[saltLength+ivLength+tagLength:]

	gcm, err := v.cipherFor(salt)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+tagLength)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, core.NewCredentialCorruptError("security: envelope failed authentication", err)
	}
	return plaintext, nil
}

// EncryptString is a convenience wrapper for callers handling token strings.
func (v *Vault) EncryptString(ctx context.Context, plaintext string) (string, error) {
	encrypted, err := v.Encrypt(ctx, []byte(plaintext))
	if err != nil {
		return "", err
	}
	return string(encrypted), nil
}

func (v *Vault) DecryptString(ctx context.Context, envelope string) (string, error) {
	plaintext, err := v.Decrypt(ctx, []byte(envelope))
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func (v *Vault) cipherFor(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(v.keyMaterial, salt, kdfIterations, keyLength, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("security: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivLength)
	if err != nil {
		return nil, fmt.Errorf("security: create gcm: %w", err)
	}
	return gcm, nil
}

var _ core.SecretProvider = (*Vault)(nil)
