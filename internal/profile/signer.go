package profile

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"go.mozilla.org/pkcs7"
)

// Signer wraps profiles in PKCS#7 SignedData. The zero value passes data through.
type Signer struct {
	cert  *x509.Certificate
	chain []*x509.Certificate
	key   crypto.PrivateKey
}

// NewSigner parses PEM certificate and key material. When either is empty the
// returned signer is disabled. Extra certificates after the first are added
// to the signature as the chain.
func NewSigner(certPEM, keyPEM string) (*Signer, error) {
	if certPEM == "" || keyPEM == "" {
		return &Signer{}, nil
	}

	certs, err := parseCertificates(unescape(certPEM))
	if err != nil {
		return nil, err
	}
	key, err := parsePrivateKey(unescape(keyPEM))
	if err != nil {
		return nil, err
	}

	return &Signer{cert: certs[0], chain: certs[1:], key: key}, nil
}

// Enabled reports whether profiles are signed.
func (s *Signer) Enabled() bool {
	return s != nil && s.cert != nil
}

// Sign returns DER encoded SignedData with the content attached.
func (s *Signer) Sign(data []byte) ([]byte, error) {
	if !s.Enabled() {
		return data, nil
	}

	sd, err := pkcs7.NewSignedData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to init signed data: %w", err)
	}
	sd.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)
	if err := sd.AddSigner(s.cert, s.key, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, fmt.Errorf("failed to add signer: %w", err)
	}
	for _, c := range s.chain {
		sd.AddCertificate(c)
	}

	signed, err := sd.Finish()
	if err != nil {
		return nil, fmt.Errorf("failed to sign profile: %w", err)
	}
	return signed, nil
}

func unescape(s string) []byte {
	return []byte(strings.ReplaceAll(s, `\n`, "\n"))
}

func parseCertificates(data []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		c, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse certificate: %w", err)
		}
		certs = append(certs, c)
	}
	if len(certs) == 0 {
		return nil, errors.New("no certificate found in PEM data")
	}
	return certs, nil
}

func parsePrivateKey(data []byte) (crypto.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("invalid private key PEM")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	return nil, errors.New("unsupported private key format")
}
