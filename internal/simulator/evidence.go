/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package simulator

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/kentakayama/afc-simulator/internal/afc"
	"github.com/veraison/go-cose"
)

// Evidence is the signed record of the last exchange.
type Evidence struct {
	ExchangeID   string                `cbor:"exchangeId"`
	Request      []byte                `cbor:"request"`
	Response     *afc.ResponseEnvelope `cbor:"response"`
	ValidRequest bool                  `cbor:"validRequest"`
	IssuedAt     int64                 `cbor:"issuedAt"`
}

// EvidenceSigner signs evidence as COSE_Sign1 with ES256.
type EvidenceSigner struct {
	key    *ecdsa.PrivateKey
	signer cose.Signer
	kid    []byte
}

func NewEvidenceSigner(key *ecdsa.PrivateKey) (*EvidenceSigner, error) {
	signer, err := cose.NewSigner(cose.AlgorithmES256, key)
	if err != nil {
		return nil, err
	}
	kid, err := KeyID(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	return &EvidenceSigner{key: key, signer: signer, kid: kid}, nil
}

// GenerateEvidenceSigner creates a signer with a fresh P-256 key.
func GenerateEvidenceSigner() (*EvidenceSigner, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return NewEvidenceSigner(key)
}

// LoadEvidenceSigner reads a PEM encoded P-256 private key, in SEC 1 or
// PKCS #8 form.
func LoadEvidenceSigner(path string) (*EvidenceSigner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read evidence key: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("evidence key %s: no PEM block", path)
	}
	var key *ecdsa.PrivateKey
	switch block.Type {
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		var parsed any
		parsed, err = x509.ParsePKCS8PrivateKey(block.Bytes)
		if err == nil {
			var ok bool
			if key, ok = parsed.(*ecdsa.PrivateKey); !ok {
				err = fmt.Errorf("not an EC key")
			}
		}
	default:
		err = fmt.Errorf("unexpected PEM block %q", block.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("evidence key %s: %w", path, err)
	}
	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("evidence key %s: ES256 needs a P-256 key", path)
	}
	return NewEvidenceSigner(key)
}

// KeyID is the SHA-256 digest of the PKIX encoding of pub.
func KeyID(pub *ecdsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(der)
	return sum[:], nil
}

func (e *EvidenceSigner) PublicKey() *ecdsa.PublicKey {
	return &e.key.PublicKey
}

// PublicKeyPEM returns the verification key as a PEM "PUBLIC KEY" block.
func (e *EvidenceSigner) PublicKeyPEM() ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(&e.key.PublicKey)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// Sign encodes ev as CBOR and signs it.
func (e *EvidenceSigner) Sign(ev *Evidence) ([]byte, error) {
	payload, err := cbor.Marshal(ev)
	if err != nil {
		return nil, err
	}
	headers := cose.Headers{
		Protected: cose.ProtectedHeader{
			cose.HeaderLabelAlgorithm: cose.AlgorithmES256,
		},
		Unprotected: cose.UnprotectedHeader{
			cose.HeaderLabelKeyID: e.kid,
		},
	}
	return cose.Sign1(rand.Reader, e.signer, headers, payload, nil)
}

// VerifyEvidence checks a COSE_Sign1 evidence message against pub and
// decodes its payload.
func VerifyEvidence(pub *ecdsa.PublicKey, signed []byte) (*Evidence, error) {
	verifier, err := cose.NewVerifier(cose.AlgorithmES256, pub)
	if err != nil {
		return nil, err
	}
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(signed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvidence, err)
	}
	if err := msg.Verify(nil, verifier); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvidence, err)
	}
	var ev Evidence
	if err := cbor.Unmarshal(msg.Payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvidence, err)
	}
	return &ev, nil
}

// ParsePublicKeyPEM reads a PEM "PUBLIC KEY" block holding an EC key.
func ParsePublicKeyPEM(data []byte) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	pub, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not an EC public key")
	}
	return pub, nil
}

// Evidence signs the last answered exchange.
func (s *Simulator) Evidence() ([]byte, error) {
	if s.signer == nil {
		return nil, ErrNoSigner
	}
	s.mu.Lock()
	if s.sess.response == nil {
		s.mu.Unlock()
		return nil, ErrNoExchange
	}
	ev := &Evidence{
		ExchangeID:   s.sess.exchangeID,
		Request:      s.sess.request,
		Response:     s.sess.response.Clone(),
		ValidRequest: s.sess.validRequest,
		IssuedAt:     s.now().Unix(),
	}
	s.mu.Unlock()
	return s.signer.Sign(ev)
}

// EvidenceKey returns the PEM verification key of the evidence signer.
func (s *Simulator) EvidenceKey() ([]byte, error) {
	if s.signer == nil {
		return nil, ErrNoSigner
	}
	return s.signer.PublicKeyPEM()
}
