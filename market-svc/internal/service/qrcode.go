package service

import (
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

type QRGenerator interface {
	Generate(orderID string) ([]byte, error)
}

// DefaultQRGenerator encodes the order tracking URL as a PNG.
type DefaultQRGenerator struct {
	BaseURL string
	Size    int
}

func (g DefaultQRGenerator) Generate(orderID string) ([]byte, error) {
	size := g.Size
	if size <= 0 {
		size = 256
	}
	trackingURL := fmt.Sprintf("%s/orders/%s", strings.TrimRight(g.BaseURL, "/"), orderID)
	return qrcode.Encode(trackingURL, qrcode.Medium, size)
}
