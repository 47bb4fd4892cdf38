// SPDX-License-Identifier: BSD-3-Clause

package cert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/one-kvm/one-kvm/pkg/file"
)

const (
	certFile = "server.crt"
	keyFile  = "server.key"
	validity = 10 * 365 * 24 * time.Hour
)

// EnsureSelfSigned makes sure dir contains a certificate and key pair,
// generating a self-signed ECDSA P-256 certificate for hostname when absent.
// It returns the certificate and key paths.
func EnsureSelfSigned(dir, hostname string) (string, string, error) {
	certPath := filepath.Join(dir, certFile)
	keyPath := filepath.Join(dir, keyFile)

	if exists(certPath) && exists(keyPath) {
		return certPath, keyPath, nil
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrCertWrite, err)
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrKeyGeneration, err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrCertCreation, err)
	}

	template := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   hostname,
			Organization: []string{"one-kvm"},
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(validity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{hostname},
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrCertCreation, err)
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrCertCreation, err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	if err := file.AtomicUpdateFile(certPath, certPEM, 0o644); err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrCertWrite, err)
	}
	if err := file.AtomicUpdateFile(keyPath, keyPEM, 0o600); err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrCertWrite, err)
	}

	return certPath, keyPath, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
