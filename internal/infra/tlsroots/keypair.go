package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pkcs12"
)

var (
	// ErrNoCertsFound is returned when a file holds no certificate.
	ErrNoCertsFound = errors.New("tlsroots: no certificates found")

	// ErrNoKeyFound is returned when a key file holds no private key.
	ErrNoKeyFound = errors.New("tlsroots: no private key found")

	// ErrKeyPassword is returned when an encrypted key cannot be decrypted.
	ErrKeyPassword = errors.New("tlsroots: wrong key password")
)

// IsPKCS12 reports whether path names a PKCS#12 bundle by its extension.
func IsPKCS12(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pfx", ".p12":
		return true
	}
	return false
}

// LoadKeyPair loads a certificate chain and its private key.
//
// A .pfx/.p12 certFile is read as a PKCS#12 bundle and keyFile is ignored.
// Otherwise both files are PEM; an encrypted PEM key is decrypted with
// password.
func LoadKeyPair(certFile, keyFile, password string) (tls.Certificate, error) {
	if IsPKCS12(certFile) {
		data, err := os.ReadFile(certFile)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("tlsroots: read bundle: %w", err)
		}
		return ParsePKCS12(data, password)
	}

	certPEM, err := os.ReadFile(certFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("tlsroots: read cert: %w", err)
	}
	keyPEM, err := os.ReadFile(keyFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("tlsroots: read key: %w", err)
	}
	return ParsePEM(certPEM, keyPEM, password)
}

// ParsePEM builds a key pair from PEM data. password may be empty for an
// unencrypted key.
func ParsePEM(certPEM, keyPEM []byte, password string) (tls.Certificate, error) {
	keyPEM, err := decryptKey(keyPEM, password)
	if err != nil {
		return tls.Certificate{}, err
	}
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("tlsroots: key pair: %w", err)
	}
	return cert, nil
}

// decryptKey returns keyPEM with its first private key block decrypted when
// the block uses legacy PEM encryption.
func decryptKey(keyPEM []byte, password string) ([]byte, error) {
	rest := keyPEM
	for len(rest) > 0 {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if !strings.HasSuffix(block.Type, "PRIVATE KEY") {
			continue
		}
		//nolint:staticcheck // legacy encrypted keys are still issued by Windows tooling
		if !x509.IsEncryptedPEMBlock(block) {
			return keyPEM, nil
		}
		//nolint:staticcheck
		der, err := x509.DecryptPEMBlock(block, []byte(password))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrKeyPassword, err)
		}
		return pem.EncodeToMemory(&pem.Block{Type: block.Type, Bytes: der}), nil
	}
	return nil, ErrNoKeyFound
}

// ParsePKCS12 builds a key pair from a PKCS#12 bundle. All certificates in
// the bundle are kept in the chain.
func ParsePKCS12(data []byte, password string) (tls.Certificate, error) {
	blocks, err := pkcs12.ToPEM(data, password)
	if err != nil {
		if errors.Is(err, pkcs12.ErrIncorrectPassword) {
			return tls.Certificate{}, ErrKeyPassword
		}
		return tls.Certificate{}, fmt.Errorf("tlsroots: decode bundle: %w", err)
	}

	var certPEM, keyPEM []byte
	for _, b := range blocks {
		switch {
		case b.Type == "CERTIFICATE":
			certPEM = append(certPEM, pem.EncodeToMemory(b)...)
		case strings.HasSuffix(b.Type, "PRIVATE KEY"):
			keyPEM = append(keyPEM, pem.EncodeToMemory(b)...)
		}
	}
	if certPEM == nil {
		return tls.Certificate{}, ErrNoCertsFound
	}
	if keyPEM == nil {
		return tls.Certificate{}, ErrNoKeyFound
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("tlsroots: bundle key pair: %w", err)
	}
	return cert, nil
}
