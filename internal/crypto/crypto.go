// Package crypto handles the RSA keys used to sign federation requests.
package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
)

// Keypair is an RSA public/private keypair in PEM format.
type Keypair struct {
	PublicKey  []byte
	PrivateKey []byte
}

// GenerateRSAKeypair returns a new 2048 bit keypair.
func GenerateRSAKeypair() (*Keypair, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	return keypairFor(privateKey)
}

// KeypairFromPrivateKey parses a PEM encoded RSA private key and returns it
// together with the matching PEM encoded public key.
func KeypairFromPrivateKey(pemBytes []byte) (*Keypair, error) {
	_, privateKey, err := ParseRSAPrivateKey(pemBytes)
	if err != nil {
		return nil, err
	}
	return keypairFor(privateKey)
}

func keypairFor(privateKey *rsa.PrivateKey) (*Keypair, error) {
	publicKeyBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, err
	}
	return &Keypair{
		PublicKey: pem.EncodeToMemory(&pem.Block{
			Type:  "PUBLIC KEY",
			Bytes: publicKeyBytes,
		}),
		PrivateKey: pem.EncodeToMemory(&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
		}),
	}, nil
}

// ParseRSAPrivateKey parses a PEM encoded PKCS1 or PKCS8 private key, and
// returns the public key and private key.
func ParseRSAPrivateKey(pemBytes []byte) (*rsa.PublicKey, *rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, nil, errors.New("no PEM block found")
	}
	var parsed any
	var err error
	switch block.Type {
	case "RSA PRIVATE KEY":
		parsed, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		parsed, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	default:
		return nil, nil, errors.New("expected RSA PRIVATE KEY or PRIVATE KEY, got " + block.Type)
	}
	if err != nil {
		return nil, nil, err
	}
	privateKey, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, nil, errors.New("expected *rsa.PrivateKey")
	}
	return &privateKey.PublicKey, privateKey, nil
}

// ParseRSAPublicKey parses a PEM encoded PKIX or PKCS1 RSA public key.
func ParseRSAPublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	switch block.Type {
	case "PUBLIC KEY":
		parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		publicKey, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, errors.New("expected *rsa.PublicKey")
		}
		return publicKey, nil
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	default:
		return nil, errors.New("expected PUBLIC KEY or RSA PUBLIC KEY, got " + block.Type)
	}
}
