// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oauth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestNewConfig creates a new config from the TestProvider. It will set the
// TestProvider's client ID/secret and allowed redirect URIs, and trust the
// TestProvider's CA when building the configuration.
func TestNewConfig(t *testing.T, tp *TestProvider, clientID, clientSecret, redirectURL string, opt ...Option) *Config {
	const op = "TestNewConfig"
	t.Helper()
	require := require.New(t)
	require.NotNilf(tp, "%s: test provider is nil", op)
	require.NotEmptyf(clientID, "%s: client id is empty", op)
	require.NotEmptyf(redirectURL, "%s: redirect URL is empty", op)

	tp.SetClientCreds(clientID, clientSecret)
	tp.SetAllowedRedirectURIs([]string{redirectURL})
	opts := append([]Option{WithProviderCA(tp.CACert())}, opt...)
	c, err := NewConfig(
		clientID,
		ClientSecret(clientSecret),
		tp.AuthURL(),
		tp.TokenURL(),
		redirectURL,
		opts...,
	)
	require.NoError(err)
	return c
}

// TestNewProvider creates a new Provider for the TestProvider (see
// TestNewConfig).  Provider.Done is called when the test completes.
func TestNewProvider(t *testing.T, tp *TestProvider, clientID, clientSecret, redirectURL string, opt ...Option) *Provider {
	t.Helper()
	require := require.New(t)
	c := TestNewConfig(t, tp, clientID, clientSecret, redirectURL, opt...)
	p, err := NewProvider(c)
	require.NoError(err)
	t.Cleanup(p.Done)
	return p
}

// TestGenerateCA will generate a test x509 CA cert, along with it encoded in a
// PEM format.
func TestGenerateCA(t *testing.T, hosts []string) (*x509.Certificate, string) {
	t.Helper()
	require := require.New(t)

	priv, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(err)

	// ECDSA, ED25519 and RSA subject keys should have the DigitalSignature
	// KeyUsage bits set in the x509.Certificate template
	keyUsage := x509.KeyUsageDigitalSignature

	validFor := 2 * time.Minute
	notBefore := time.Now()
	notAfter := notBefore.Add(validFor)

	serialNumberLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serialNumber, err := rand.Int(rand.Reader, serialNumberLimit)
	require.NoError(err)

	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"Acme Co"},
		},
		NotBefore: notBefore,
		NotAfter:  notAfter,

		KeyUsage:              keyUsage,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, h)
		}
	}

	template.IsCA = true
	template.KeyUsage |= x509.KeyUsageCertSign

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	require.NoError(err)

	c, err := x509.ParseCertificate(derBytes)
	require.NoError(err)

	return c, string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: derBytes}))
}
