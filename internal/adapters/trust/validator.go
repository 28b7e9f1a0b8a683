package trust

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/eleven-am/meshview/internal/domain"
)

const (
	// HashHeader carries the hex SHA-256 digest of the (possibly encrypted)
	// message body.
	HashHeader = "X-Topology-Hash"
	// SigHeader carries the HMAC signature binding the body digest to the
	// request URI path.
	SigHeader = "X-Topology-Sig"
)

var (
	errCiphertextFormat = errors.New("malformed ciphertext envelope")
	errDecryptFailed    = errors.New("message could not be decrypted in any accepted key window")
)

// Validator wraps outgoing announcement bodies with integrity and,
// optionally, confidentiality envelopes, and verifies incoming ones.
//
// The signature binds the request URI path, not just the payload, so a
// captured envelope cannot be replayed against a different connector
// endpoint. Response signatures bind the original request's path for the
// same reason.
//
// Trust failures never surface as errors to the transport: verification
// returns a plain verdict and the caller decides whether to ignore the peer.
type Validator struct {
	config domain.TrustConfig
	signer *Signer
	logger *slog.Logger
}

func NewValidator(config domain.TrustConfig, logger *slog.Logger) (*Validator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	signer, err := NewSigner(config)
	if err != nil {
		return nil, err
	}

	if config.SkewWindows < 0 {
		config.SkewWindows = 0
	}

	return &Validator{
		config: config,
		signer: signer,
		logger: logger.With("component", "connector-trust"),
	}, nil
}

// EncodeMessage encrypts plaintext with the current window key when
// encryption is enabled, producing a hex "iv:ciphertext" envelope. With
// encryption disabled it is the identity transform.
func (v *Validator) EncodeMessage(plaintext string) (string, error) {
	if !v.config.EncryptionEnabled {
		return plaintext, nil
	}

	key := v.signer.DeriveKey(v.signer.CurrentWindow(time.Now()))
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ciphertext), nil
}

// DecodeMessage reverses EncodeMessage, trying the current key window and up
// to SkewWindows preceding ones to tolerate clock skew between peers.
func (v *Validator) DecodeMessage(wire string) (string, error) {
	if !v.config.EncryptionEnabled {
		return wire, nil
	}

	ivHex, ctHex, ok := strings.Cut(wire, ":")
	if !ok {
		return "", errCiphertextFormat
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return "", errCiphertextFormat
	}
	ciphertext, err := hex.DecodeString(ctHex)
	if err != nil || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", errCiphertextFormat
	}

	current := v.signer.CurrentWindow(time.Now())
	for window := current; window >= current-int64(v.config.SkewWindows); window-- {
		block, err := aes.NewCipher(v.signer.DeriveKey(window))
		if err != nil {
			return "", err
		}

		plaintext := make([]byte, len(ciphertext))
		cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

		if unpadded, ok := pkcs7Unpad(plaintext, aes.BlockSize); ok {
			return string(unpadded), nil
		}
	}

	return "", errDecryptFailed
}

// TrustRequest attaches the hash and signature headers to an outgoing
// request carrying wireBody. With HMAC disabled the request is sent bare.
func (v *Validator) TrustRequest(req *http.Request, wireBody string) {
	if !v.config.HMACEnabled {
		return
	}
	hash, sig := v.envelope(req.URL.Path, wireBody)
	req.Header.Set(HashHeader, hash)
	req.Header.Set(SigHeader, sig)
}

// IsTrustedRequest verifies the trust headers of an incoming request against
// its body. It returns false when either header is absent while HMAC is
// enabled, when the body digest does not match, or when no accepted key
// window reproduces the signature.
func (v *Validator) IsTrustedRequest(req *http.Request, body string) bool {
	return v.verify(req.Header.Get(HashHeader), req.Header.Get(SigHeader), req.URL.Path, body)
}

// TrustResponse attaches trust headers to a response, binding the signature
// to the original request's URI path rather than any response target, so a
// captured response cannot be replayed against a different endpoint.
func (v *Validator) TrustResponse(w http.ResponseWriter, req *http.Request, wireBody string) {
	if !v.config.HMACEnabled {
		return
	}
	hash, sig := v.envelope(req.URL.Path, wireBody)
	w.Header().Set(HashHeader, hash)
	w.Header().Set(SigHeader, sig)
}

// IsTrustedResponse verifies a response's trust headers against the path of
// the request that produced it.
func (v *Validator) IsTrustedResponse(requestPath string, resp *http.Response, body string) bool {
	return v.verify(resp.Header.Get(HashHeader), resp.Header.Get(SigHeader), requestPath, body)
}

func (v *Validator) envelope(path, wireBody string) (hash, sig string) {
	hash = Digest([]byte(wireBody))
	key := v.signer.DeriveKey(v.signer.CurrentWindow(time.Now()))
	sig = v.signer.Sign(key, path+hash)
	return hash, sig
}

func (v *Validator) verify(hashHeader, sigHeader, path, body string) bool {
	if !v.config.HMACEnabled {
		return true
	}
	if hashHeader == "" || sigHeader == "" {
		v.logger.Debug("trust headers absent, message untrusted", "path", path)
		return false
	}
	if Digest([]byte(body)) != hashHeader {
		v.logger.Debug("body digest mismatch, message untrusted", "path", path)
		return false
	}

	current := v.signer.CurrentWindow(time.Now())
	for window := current; window >= current-int64(v.config.SkewWindows); window-- {
		if v.signer.Verify(v.signer.DeriveKey(window), path+hashHeader, sigHeader) {
			return true
		}
	}

	v.logger.Debug("signature did not verify in any accepted key window", "path", path)
	return false
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padding)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padding)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, bool) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, false
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, false
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, false
		}
	}
	return data[:len(data)-padding], true
}
