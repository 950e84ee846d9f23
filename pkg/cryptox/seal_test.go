package cryptox_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/gatekeeper/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestSealOpen(t *testing.T) {
	s, err := cryptox.NewSealer([]byte("test-master-key-for-encryption-12345"))
	require.NoError(t, err)

	sealed, err := s.Seal("JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	require.NotContains(t, sealed, "JBSWY3DPEHPK3PXP")

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, "JBSWY3DPEHPK3PXP", opened)
}

func TestSealUsesFreshNonce(t *testing.T) {
	s, err := cryptox.NewSealer([]byte("test-master-key-multiple-times-xyz"))
	require.NoError(t, err)

	a, err := s.Seal("same")
	require.NoError(t, err)
	b, err := s.Seal("same")
	require.NoError(t, err)
	require.NotEqual(t, a, b, "multiple seals should produce different ciphertexts")
}

func TestOpenRejectsForeignKey(t *testing.T) {
	s1, err := cryptox.NewSealer([]byte("key-one"))
	require.NoError(t, err)
	s2, err := cryptox.NewSealer([]byte("key-two"))
	require.NoError(t, err)

	sealed, err := s1.Seal("secret")
	require.NoError(t, err)

	_, err = s2.Open(sealed)
	require.Error(t, err)
}

func TestOpenInvalidInput(t *testing.T) {
	s, err := cryptox.NewSealer([]byte("key"))
	require.NoError(t, err)

	_, err = s.Open("not base64!!")
	require.Error(t, err)

	_, err = s.Open("c2hvcnQ=") // "short"
	require.ErrorIs(t, err, cryptox.ErrCiphertextTooShort)
}

func TestLoadSealer(t *testing.T) {
	t.Run("from file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "master.key")
		require.NoError(t, os.WriteFile(path, []byte("file-based-master-key-content-xyz"), 0600))

		s, ephemeral, err := cryptox.LoadSealer(path)
		require.NoError(t, err)
		require.False(t, ephemeral)

		s2, _, err := cryptox.LoadSealer(path)
		require.NoError(t, err)

		sealed, err := s.Seal("x")
		require.NoError(t, err)
		opened, err := s2.Open(sealed)
		require.NoError(t, err)
		require.Equal(t, "x", opened)
	})

	t.Run("from env", func(t *testing.T) {
		t.Setenv("AUTH_MASTER_KEY", "env-master-key")
		_, ephemeral, err := cryptox.LoadSealer("")
		require.NoError(t, err)
		require.False(t, ephemeral)
	})

	t.Run("ephemeral", func(t *testing.T) {
		t.Setenv("AUTH_MASTER_KEY", "")
		_, ephemeral, err := cryptox.LoadSealer("")
		require.NoError(t, err)
		require.True(t, ephemeral)
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := cryptox.LoadSealer(filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
	})
}
