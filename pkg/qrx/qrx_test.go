package qrx_test

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/aussiebroadwan/gatekeeper/pkg/qrx"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestPNG(t *testing.T) {
	png, err := qrx.PNG("otpauth://totp/Gatekeeper:alice?secret=JBSWY3DPEHPK3PXP", 0)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(png, pngMagic))
}

func TestPNG_Empty(t *testing.T) {
	_, err := qrx.PNG("   ", 128)
	require.ErrorIs(t, err, qrx.ErrEmptyContent)
}

func TestDataURI(t *testing.T) {
	uri, err := qrx.DataURI("hello", 128)
	require.NoError(t, err)

	const prefix = "data:image/png;base64,"
	require.True(t, strings.HasPrefix(uri, prefix))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, prefix))
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(raw, pngMagic))
}
