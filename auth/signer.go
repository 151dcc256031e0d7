// Package auth computes the RSA-PSS authentication material required by
// the Kalshi trade API. Every signed request carries a millisecond
// timestamp, the API key ID, and a base64 PSS signature over
// timestamp + method + path.
package auth

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/awnumar/memguard"
)

// APIPrefix is the versioned REST root every signed path must begin with.
const APIPrefix = "/trade-api/v2"

const minKeyBits = 2048

var (
	// ErrNotRSA is returned when the PEM file holds a key of the wrong family.
	ErrNotRSA = errors.New("auth: private key is not RSA")
	// ErrKeyTooSmall is returned for RSA keys below 2048 bits.
	ErrKeyTooSmall = errors.New("auth: RSA key smaller than 2048 bits")
)

// Signer produces authenticated headers for API requests. The private key
// is immutable after construction; Signer is safe for concurrent use.
type Signer struct {
	keyID string
	key   *rsa.PrivateKey
	now   func() time.Time
}

// NewSigner wraps an already-parsed RSA private key.
func NewSigner(keyID string, key *rsa.PrivateKey) (*Signer, error) {
	if keyID == "" {
		return nil, errors.New("auth: empty API key ID")
	}
	if key == nil {
		return nil, errors.New("auth: nil private key")
	}
	if key.N.BitLen() < minKeyBits {
		return nil, ErrKeyTooSmall
	}
	return &Signer{keyID: keyID, key: key, now: time.Now}, nil
}

// LoadSigner reads a PEM-encoded RSA private key from disk. The raw PEM
// bytes are held in a memguard locked buffer and wiped once the key is
// parsed. Wrong key family, undersized keys, and unreadable files all
// fail here, before any request is made.
func LoadSigner(keyID, pemPath string) (*Signer, error) {
	f, err := os.Open(pemPath)
	if err != nil {
		return nil, fmt.Errorf("auth: open private key %s: %w", pemPath, err)
	}
	defer f.Close()

	buf, err := memguard.NewBufferFromEntireReader(f)
	if err != nil {
		return nil, fmt.Errorf("auth: read private key %s: %w", pemPath, err)
	}
	defer buf.Destroy()
	if buf.Size() == 0 {
		return nil, fmt.Errorf("auth: private key file %s is empty", pemPath)
	}

	key, err := ParsePrivateKey(buf.Bytes())
	if err != nil {
		return nil, err
	}
	return NewSigner(keyID, key)
}

// ParsePrivateKey decodes a PEM block and parses PKCS#8 or PKCS#1 RSA
// private keys. Encrypted PEM blocks are rejected.
func ParsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("auth: no PEM block found in key file")
	}
	if strings.Contains(block.Type, "ENCRYPTED") || block.Headers["Proc-Type"] != "" {
		return nil, errors.New("auth: encrypted private keys are not supported")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, ErrNotRSA
		}
		return rsaKey, nil
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("auth: parse private key: %w", err)
	}
	return key, nil
}

// KeyID returns the API key identifier sent with every request.
func (s *Signer) KeyID() string { return s.keyID }

// Sign produces the timestamp string and base64 PSS signature for the
// given method and path at the given instant. The path must already
// exclude any query string and begin with APIPrefix.
func (s *Signer) Sign(method, path string, now time.Time) (timestamp, signature string, err error) {
	ts := strconv.FormatInt(now.UnixMilli(), 10)
	msg := ts + strings.ToUpper(method) + path

	digest := sha256.Sum256([]byte(msg))
	sig, err := rsa.SignPSS(rand.Reader, s.key, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
	})
	if err != nil {
		return "", "", fmt.Errorf("auth: sign: %w", err)
	}
	return ts, base64.StdEncoding.EncodeToString(sig), nil
}

// Headers computes the full authenticated header set for a request to
// endpoint. The query string is stripped before signing: the verifying
// side signs over the bare path only, so including it would always fail
// verification. The request itself still targets the full endpoint.
func (s *Signer) Headers(method, endpoint string) (http.Header, error) {
	path := endpoint
	if u, err := url.Parse(endpoint); err == nil {
		path = u.Path
	} else if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		path = endpoint[:i]
	}
	if !strings.HasPrefix(path, APIPrefix) {
		path = APIPrefix + path
	}

	ts, sig, err := s.Sign(method, path, s.now())
	if err != nil {
		return nil, err
	}

	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("KALSHI-ACCESS-KEY", s.keyID)
	h.Set("KALSHI-ACCESS-SIGNATURE", sig)
	h.Set("KALSHI-ACCESS-TIMESTAMP", ts)
	return h, nil
}
