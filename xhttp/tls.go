package xhttp

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"

	"github.com/pavlo-v-chernykh/keystore-go/v4"
	"github.com/pkg/errors"
	"software.sslmate.com/src/go-pkcs12"
)

// TLSMaterial points at the trust and key stores of a cluster.
// Files ending in .jks are read as Java key stores, .pem/.crt/.key as PEM, anything else as PKCS12.
type TLSMaterial struct {
	TrustStorePath     string
	TrustStorePassword string
	KeyStorePath       string
	KeyStorePassword   string
	SelfSigned         bool
}

// NewTLSConfig builds a client TLS configuration from the given material.
//
// Host names are not verified so that internal clusters with certificates issued
// for another name stay reachable. The peer chain is still verified against the
// trust store (or the system pool when none is given), and with SelfSigned a
// single self-issued certificate is accepted.
func NewTLSConfig(material TLSMaterial) (*tls.Config, error) {
	roots, err := loadTrustStore(material.TrustStorePath, material.TrustStorePassword)
	if err != nil {
		return nil, err
	}

	config := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: true, //nolint:gosec // chain is verified in VerifyConnection
		VerifyConnection:   verifyChainIgnoringHostname(roots, material.SelfSigned),
	}

	if strings.TrimSpace(material.KeyStorePath) != "" {
		cert, err := loadKeyStore(material.KeyStorePath, material.KeyStorePassword)
		if err != nil {
			return nil, err
		}
		config.Certificates = []tls.Certificate{cert}
	}
	return config, nil
}

// TLSFromMaterial returns a provider building the configuration on first use
func TLSFromMaterial(material TLSMaterial) TLSProvider {
	return func() (*tls.Config, error) {
		return NewTLSConfig(material)
	}
}

func verifyChainIgnoringHostname(roots *x509.CertPool, selfSigned bool) func(tls.ConnectionState) error {
	return func(state tls.ConnectionState) error {
		if len(state.PeerCertificates) == 0 {
			return errors.New("server presented no certificate")
		}

		leaf := state.PeerCertificates[0]
		if selfSigned && len(state.PeerCertificates) == 1 && isSelfIssued(leaf) {
			return nil
		}

		intermediates := x509.NewCertPool()
		for _, cert := range state.PeerCertificates[1:] {
			intermediates.AddCert(cert)
		}
		_, err := leaf.Verify(x509.VerifyOptions{
			Roots:         roots,
			Intermediates: intermediates,
		})
		return errors.Wrap(err, "failed to verify server certificate")
	}
}

func isSelfIssued(cert *x509.Certificate) bool {
	return bytes.Equal(cert.RawIssuer, cert.RawSubject) && cert.CheckSignatureFrom(cert) == nil
}

// loadTrustStore returns nil when no path is set so the system pool is used
func loadTrustStore(path, password string) (*x509.CertPool, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read trust store %s", path)
	}

	var certs []*x509.Certificate
	switch storeType(path) {
	case "jks":
		certs, _, err = decodeJKS(content, password)
	case "pem":
		certs, err = decodePEMCertificates(content)
	default:
		certs, err = pkcs12.DecodeTrustStore(content, password)
		if err != nil {
			// trust stores exported with a private key entry are regular key stores
			_, cert, ca, chainErr := pkcs12.DecodeChain(content, password)
			if chainErr == nil {
				certs, err = append([]*x509.Certificate{cert}, ca...), nil
			}
		}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load trust store %s", path)
	}
	if len(certs) == 0 {
		return nil, errors.Errorf("trust store %s contains no certificate", path)
	}

	pool := x509.NewCertPool()
	for _, cert := range certs {
		pool.AddCert(cert)
	}
	return pool, nil
}

func loadKeyStore(path, password string) (tls.Certificate, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, errors.Wrapf(err, "failed to read key store %s", path)
	}

	switch storeType(path) {
	case "jks":
		_, cert, err := decodeJKS(content, password)
		if err != nil {
			return tls.Certificate{}, errors.Wrapf(err, "failed to load key store %s", path)
		}
		if cert == nil {
			return tls.Certificate{}, errors.Errorf("key store %s contains no private key entry", path)
		}
		return *cert, nil
	case "pem":
		cert, err := tls.X509KeyPair(content, content)
		return cert, errors.Wrapf(err, "failed to load key store %s", path)
	default:
		key, leaf, ca, err := pkcs12.DecodeChain(content, password)
		if err != nil {
			return tls.Certificate{}, errors.Wrapf(err, "failed to load key store %s", path)
		}
		chain := [][]byte{leaf.Raw}
		for _, cert := range ca {
			chain = append(chain, cert.Raw)
		}
		return tls.Certificate{Certificate: chain, PrivateKey: key, Leaf: leaf}, nil
	}
}

// decodeJKS returns trusted certificates and the first private key entry of a Java key store
func decodeJKS(content []byte, password string) ([]*x509.Certificate, *tls.Certificate, error) {
	ks := keystore.New()
	if err := ks.Load(bytes.NewReader(content), []byte(password)); err != nil {
		return nil, nil, err
	}

	var certs []*x509.Certificate
	var keyPair *tls.Certificate
	for _, alias := range ks.Aliases() {
		switch {
		case ks.IsTrustedCertificateEntry(alias):
			entry, err := ks.GetTrustedCertificateEntry(alias)
			if err != nil {
				return nil, nil, err
			}
			cert, err := x509.ParseCertificate(entry.Certificate.Content)
			if err != nil {
				return nil, nil, err
			}
			certs = append(certs, cert)
		case ks.IsPrivateKeyEntry(alias) && keyPair == nil:
			entry, err := ks.GetPrivateKeyEntry(alias, []byte(password))
			if err != nil {
				return nil, nil, err
			}
			key, err := x509.ParsePKCS8PrivateKey(entry.PrivateKey)
			if err != nil {
				return nil, nil, err
			}
			chain := make([][]byte, 0, len(entry.CertificateChain))
			for _, c := range entry.CertificateChain {
				chain = append(chain, c.Content)
				if cert, err := x509.ParseCertificate(c.Content); err == nil {
					certs = append(certs, cert)
				}
			}
			keyPair = &tls.Certificate{Certificate: chain, PrivateKey: key}
		}
	}
	return certs, keyPair, nil
}

func decodePEMCertificates(content []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	for {
		var block *pem.Block
		block, content = pem.Decode(content)
		if block == nil {
			return certs, nil
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		certs = append(certs, cert)
	}
}

func storeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jks":
		return "jks"
	case ".pem", ".crt", ".cer", ".key":
		return "pem"
	default:
		return "pkcs12"
	}
}
