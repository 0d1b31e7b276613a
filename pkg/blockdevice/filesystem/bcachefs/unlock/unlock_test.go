// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package unlock_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siderolabs/go-bcachefs/pkg/blockdevice/filesystem/bcachefs"
	"github.com/siderolabs/go-bcachefs/pkg/blockdevice/filesystem/bcachefs/unlock"
)

// cheap parameters to keep the tests fast
var testParams = bcachefs.ScryptParams{N: 4, R: 0, P: 0}

var testKey = bcachefs.Key{0x0123456789abcdef, 0xfedcba9876543210, 42, 7}

func header() bcachefs.Header {
	return bcachefs.Header{
		UUID:      [16]byte{0x10, 0x20, 0x30, 0x40, 0x50, 0x60, 0x70, 0x80, 9, 9, 9, 9, 9, 9, 9, 9},
		BlockSize: 8,
	}
}

func encrypted(t *testing.T, passphrase string) *bcachefs.Superblock {
	t.Helper()

	hdr := header()

	// the nonce only depends on the header, parse it once to get it
	plain, err := bcachefs.Parse(bcachefs.NewBuilder(hdr).Bytes())
	require.NoError(t, err)

	wrapped, err := unlock.Wrap(testParams, plain.Nonce(), testKey, []byte(passphrase))
	require.NoError(t, err)

	assert.True(t, wrapped.IsEncrypted())
	assert.NotEqual(t, testKey, wrapped.Key)

	sb, err := bcachefs.Parse(bcachefs.NewBuilder(hdr).AddCrypt(0, testParams.KDFFlags(), wrapped).Bytes())
	require.NoError(t, err)

	return sb
}

func TestUnwrap(t *testing.T) {
	t.Parallel()

	sb := encrypted(t, "correct horse")

	key, err := unlock.Unwrap(sb, []byte("correct horse"))
	require.NoError(t, err)
	assert.Equal(t, testKey, key)

	_, err = unlock.Unwrap(sb, []byte("battery staple"))
	require.ErrorIs(t, err, unlock.ErrWrongPassphrase)
}

func TestUnwrapPlainKey(t *testing.T) {
	t.Parallel()

	sb, err := bcachefs.Parse(bcachefs.NewBuilder(header()).
		AddCrypt(0, testParams.KDFFlags(), bcachefs.EncryptedKey{Magic: bcachefs.KeyMagic, Key: testKey}).
		Bytes())
	require.NoError(t, err)

	key, err := unlock.Unwrap(sb, nil)
	require.NoError(t, err)
	assert.Equal(t, testKey, key)
}

func TestUnwrapNotEncrypted(t *testing.T) {
	t.Parallel()

	sb, err := bcachefs.Parse(bcachefs.NewBuilder(header()).Bytes())
	require.NoError(t, err)

	_, err = unlock.Unwrap(sb, []byte("x"))
	require.ErrorIs(t, err, unlock.ErrNotEncrypted)
}

func TestUnwrapUnsupportedKDF(t *testing.T) {
	t.Parallel()

	for _, test := range []struct {
		name     string
		flags    uint64
		kdfFlags uint64
	}{
		{
			name:     "unknown kind",
			flags:    3,
			kdfFlags: testParams.KDFFlags(),
		},
		{
			name:     "zero cost",
			kdfFlags: 0,
		},
		{
			name:     "cost overflow",
			kdfFlags: bcachefs.ScryptParams{N: 100, R: 1, P: 1}.KDFFlags(),
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			sb, err := bcachefs.Parse(bcachefs.NewBuilder(header()).
				AddCrypt(test.flags, test.kdfFlags, bcachefs.EncryptedKey{Magic: 1}).
				Bytes())
			require.NoError(t, err)

			_, err = unlock.Unwrap(sb, []byte("x"))
			require.ErrorIs(t, err, unlock.ErrUnsupportedKDF)
		})
	}
}

func TestDeriveKeyDeterministic(t *testing.T) {
	t.Parallel()

	sb := encrypted(t, "pass")

	cf, ok := sb.CryptField()
	require.True(t, ok)

	k1, err := unlock.DeriveKey(cf, []byte("pass"))
	require.NoError(t, err)

	k2, err := unlock.DeriveKey(cf, []byte("pass"))
	require.NoError(t, err)

	k3, err := unlock.DeriveKey(cf, []byte("other"))
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}
