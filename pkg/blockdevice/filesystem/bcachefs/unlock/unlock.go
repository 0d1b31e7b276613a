// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package unlock derives and unwraps the bcachefs filesystem encryption key.
package unlock

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/scrypt"

	"github.com/siderolabs/go-bcachefs/pkg/blockdevice/filesystem/bcachefs"
)

var (
	// ErrNotEncrypted is returned for filesystems without the crypt field.
	ErrNotEncrypted = errors.New("filesystem is not encrypted")
	// ErrUnsupportedKDF is returned when the crypt field has no usable KDF configuration.
	ErrUnsupportedKDF = errors.New("unsupported key derivation function")
	// ErrWrongPassphrase is returned when the unwrapped key fails the magic check.
	ErrWrongPassphrase = errors.New("incorrect passphrase")
)

// DefaultScryptParams are the parameters bcachefs format uses for new filesystems.
var DefaultScryptParams = bcachefs.ScryptParams{N: 14, R: 3, P: 4}

// salt includes the terminating NUL.
var salt = []byte("bcache\x00")

// DeriveKey turns the passphrase into the key wrapping the filesystem key.
func DeriveKey(cf *bcachefs.CryptField, passphrase []byte) (bcachefs.Key, error) {
	params, ok := cf.ScryptParams()
	if !ok {
		return bcachefs.Key{}, ErrUnsupportedKDF
	}

	return deriveScrypt(params, passphrase)
}

func deriveScrypt(params bcachefs.ScryptParams, passphrase []byte) (bcachefs.Key, error) {
	if params.N == 0 || params.N > 62 || params.R > 29 || params.P > 29 {
		return bcachefs.Key{}, fmt.Errorf("%w: scrypt parameters N=%d R=%d P=%d out of range", ErrUnsupportedKDF, params.N, params.R, params.P)
	}

	n, r, p := params.Cost()

	dk, err := scrypt.Key(passphrase, salt, n, r, p, bcachefs.KeySize)
	if err != nil {
		return bcachefs.Key{}, fmt.Errorf("error deriving key: %w", err)
	}

	return bcachefs.KeyFromBytes([bcachefs.KeySize]byte(dk)), nil
}

// Unwrap returns the filesystem key, decrypting it with the passphrase if needed.
func Unwrap(sb *bcachefs.Superblock, passphrase []byte) (bcachefs.Key, error) {
	cf, ok := sb.CryptField()
	if !ok {
		return bcachefs.Key{}, ErrNotEncrypted
	}

	wrapped := cf.WrappedKey()
	if !wrapped.IsEncrypted() {
		return wrapped.Key, nil
	}

	passphraseKey, err := DeriveKey(cf, passphrase)
	if err != nil {
		return bcachefs.Key{}, err
	}

	plain, err := xorKey(passphraseKey, sb.Nonce(), wrapped)
	if err != nil {
		return bcachefs.Key{}, err
	}

	if plain.IsEncrypted() {
		return bcachefs.Key{}, ErrWrongPassphrase
	}

	return plain.Key, nil
}

// Wrap encrypts the filesystem key with a key derived from the passphrase.
func Wrap(params bcachefs.ScryptParams, nonce bcachefs.Nonce, key bcachefs.Key, passphrase []byte) (bcachefs.EncryptedKey, error) {
	passphraseKey, err := deriveScrypt(params, passphrase)
	if err != nil {
		return bcachefs.EncryptedKey{}, err
	}

	return xorKey(passphraseKey, nonce, bcachefs.EncryptedKey{
		Magic: bcachefs.KeyMagic,
		Key:   key,
	})
}

// xorKey runs ChaCha20 over the encoded key; encryption and decryption are the same operation.
func xorKey(key bcachefs.Key, nonce bcachefs.Nonce, in bcachefs.EncryptedKey) (bcachefs.EncryptedKey, error) {
	counter, iv := nonce.ChaCha20()

	c, err := chacha20.NewUnauthenticatedCipher(key.Bytes(), iv)
	if err != nil {
		return bcachefs.EncryptedKey{}, fmt.Errorf("error initializing cipher: %w", err)
	}

	c.SetCounter(counter)

	var buf bytes.Buffer

	if err = binary.Write(&buf, binary.LittleEndian, &in); err != nil {
		return bcachefs.EncryptedKey{}, fmt.Errorf("error encoding key: %w", err)
	}

	data := buf.Bytes()
	c.XORKeyStream(data, data)

	var out bcachefs.EncryptedKey

	if err = binary.Read(bytes.NewReader(data), binary.LittleEndian, &out); err != nil {
		return bcachefs.EncryptedKey{}, fmt.Errorf("error decoding key: %w", err)
	}

	return out, nil
}
