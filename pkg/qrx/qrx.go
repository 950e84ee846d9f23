// Package qrx renders provisioning URIs as PNG QR codes.
package qrx

import (
	"encoding/base64"
	"errors"
	"strings"

	skipqrcode "github.com/skip2/go-qrcode"
)

var (
	ErrEmptyContent = errors.New("qr content cannot be empty")
	ErrEncode       = errors.New("failed to encode qr code")
)

const DefaultSize = 256

// PNG encodes content as a QR code image. Sizes <= 0 use DefaultSize.
func PNG(content string, size int) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if size <= 0 {
		size = DefaultSize
	}
	png, err := skipqrcode.Encode(content, skipqrcode.Medium, size)
	if err != nil {
		return nil, errors.Join(ErrEncode, err)
	}
	return png, nil
}

// DataURI returns the QR code as a data:image/png;base64 URI, ready for an
// <img src> attribute.
func DataURI(content string, size int) (string, error) {
	png, err := PNG(content, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
