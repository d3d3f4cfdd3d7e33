// Package httpsig signs and verifies requests using the HTTP Signatures
// scheme described in draft-cavage-http-signatures-10.
package httpsig

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-fed/httpsig"
)

// Sign signs the request using the given keyID and privateKey.
// POST requests carry a Digest header computed over body.
func Sign(req *http.Request, keyID string, privateKey *rsa.PrivateKey, body []byte) error {
	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	headers := []string{httpsig.RequestTarget, "host", "date"}
	switch req.Method {
	case http.MethodGet:
		headers = append(headers, "accept")
	case http.MethodPost:
		headers = append(headers, "digest")
		addDigest(req, body)
	}

	var sb bytes.Buffer
	for _, header := range headers {
		switch header {
		case httpsig.RequestTarget:
			sb.WriteString("(request-target): ")
			sb.WriteString(strings.ToLower(req.Method))
			sb.WriteString(" ")
			sb.WriteString(req.URL.Path)
			if req.URL.RawQuery != "" {
				sb.WriteString("?")
				sb.WriteString(req.URL.RawQuery)
			}
		case "host":
			sb.WriteString("host: ")
			sb.WriteString(req.Host)
		default:
			sb.WriteString(header)
			sb.WriteString(": ")
			sb.WriteString(req.Header.Get(header))
		}
		sb.WriteString("\n")
	}
	digest := sha256.Sum256(bytes.TrimRight(sb.Bytes(), "\n"))
	sig, err := rsa.SignPKCS1v15(rand.Reader, privateKey, crypto.SHA256, digest[:])
	if err != nil {
		return err
	}
	req.Header.Set("Signature", fmt.Sprintf(`keyId="%s",algorithm="rsa-sha256",headers="%s",signature="%s"`,
		keyID, strings.Join(headers, " "), base64.StdEncoding.EncodeToString(sig)))
	return nil
}

func addDigest(req *http.Request, body []byte) {
	digest := sha256.Sum256(body)
	req.Header.Set("Digest", "SHA-256="+base64.StdEncoding.EncodeToString(digest[:]))
}

// ErrMissingSignature is returned by Verify when the request is not signed.
var ErrMissingSignature = errors.New("httpsig: request is not signed")

// Verify checks the signature on req using the public key returned by keyFn
// for the request's keyId. The keyId is returned so the caller can correlate
// the signer with the activity's actor.
func Verify(ctx context.Context, req *http.Request, keyFn func(ctx context.Context, keyID string) (crypto.PublicKey, error)) (string, error) {
	if req.Header.Get("Signature") == "" && req.Header.Get("Authorization") == "" {
		return "", ErrMissingSignature
	}
	verifier, err := httpsig.NewVerifier(req)
	if err != nil {
		return "", err
	}
	keyID := verifier.KeyId()
	pubKey, err := keyFn(ctx, keyID)
	if err != nil {
		return keyID, fmt.Errorf("fetch key %q: %w", keyID, err)
	}
	if err := verifier.Verify(pubKey, httpsig.RSA_SHA256); err != nil {
		return keyID, err
	}
	return keyID, nil
}
