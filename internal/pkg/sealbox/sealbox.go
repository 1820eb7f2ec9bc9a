// Package sealbox encrypts small secrets at rest with NaCl secretbox.
package sealbox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

var ErrOpen = errors.New("sealbox: cannot open sealed value")

type Box struct {
	key [32]byte
}

// New derives the box key from an arbitrary passphrase.
func New(passphrase string) *Box {
	return &Box{key: sha256.Sum256([]byte(passphrase))}
}

// Seal returns base64(nonce || ciphertext).
func (b *Box) Seal(plain string) (string, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", err
	}
	out := secretbox.Seal(nonce[:], []byte(plain), &nonce, &b.key)
	return base64.StdEncoding.EncodeToString(out), nil
}

func (b *Box) Open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrOpen
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &b.key)
	if !ok {
		return "", ErrOpen
	}
	return string(plain), nil
}
