package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeyPair(t *testing.T) {
	key, err := GenerateKeyPair()
	require.NoError(t, err)
	assert.Equal(t, KeyBits, key.N.BitLen())
}

// 公钥编码跨越存储边界，编码再解码必须是恒等变换
func TestPublicKeyB64RoundTrip(t *testing.T) {
	key, err := GenerateKeyPair()
	require.NoError(t, err)

	encoded := EncodePublicKeyB64(&key.PublicKey)
	decoded, err := DecodePublicKeyB64(encoded)
	require.NoError(t, err)

	assert.Equal(t, key.PublicKey.N, decoded.N)
	assert.Equal(t, key.PublicKey.E, decoded.E)
	assert.Equal(t, encoded, EncodePublicKeyB64(decoded))
}

func TestPrivateKeyPEMRoundTrip(t *testing.T) {
	key, err := GenerateKeyPair()
	require.NoError(t, err)

	pemBytes := EncodePrivateKeyPEM(key)
	decoded, err := DecodePrivateKeyPEM(pemBytes)
	require.NoError(t, err)

	assert.Equal(t, key.D, decoded.D)
	assert.Equal(t, key.N, decoded.N)
}

func TestDecodeMalformedKeys(t *testing.T) {
	tests := []struct {
		name string
		run  func() error
	}{
		{
			name: "Public key not base64",
			run: func() error {
				_, err := DecodePublicKeyB64("not-base64!!!")
				return err
			},
		},
		{
			name: "Public key base64 but not PEM",
			run: func() error {
				_, err := DecodePublicKeyB64("aGVsbG8gd29ybGQ=")
				return err
			},
		},
		{
			name: "Private key not PEM",
			run: func() error {
				_, err := DecodePrivateKeyPEM([]byte("garbage"))
				return err
			},
		},
		{
			name: "Private key wrong block type",
			run: func() error {
				_, err := DecodePrivateKeyPEM([]byte("-----BEGIN CERTIFICATE-----\nAAAA\n-----END CERTIFICATE-----\n"))
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrKeyDecode)
		})
	}
}
