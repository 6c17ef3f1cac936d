package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ReceiptPrefix is the key prefix every payment receipt is stored under
const ReceiptPrefix = "receipts/"

var (
	ErrFileTooLarge    = errors.New("file exceeds maximum size")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// ReceiptPolicy holds upload limits for payment receipts
type ReceiptPolicy struct {
	MaxBytes     int64
	AllowedTypes []string
}

// Check validates the declared content type and size of an upload
func (p ReceiptPolicy) Check(contentType string, size int64) error {
	if p.MaxBytes > 0 && size > p.MaxBytes {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, size, p.MaxBytes)
	}
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	for _, allowed := range p.AllowedTypes {
		if ct == strings.ToLower(allowed) {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
}

// sniffLen is the number of leading bytes http.DetectContentType looks at
const sniffLen = 512

var typeExtensions = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

// Sniff detects the content type of r from its first bytes. The returned
// reader still yields the whole content.
func Sniff(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, err
	}
	head = head[:n]
	return http.DetectContentType(head), io.MultiReader(bytes.NewReader(head), r), nil
}

// NewReceiptKeyForType is NewReceiptKey with the extension taken from the
// detected content type when it is a known receipt type.
func NewReceiptKeyForType(contentType, filename string) string {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if ext, ok := typeExtensions[ct]; ok {
		return ReceiptPrefix + uuid.NewString() + ext
	}
	return NewReceiptKey(filename)
}

// NewReceiptKey returns a fresh storage key, keeping the extension of filename
func NewReceiptKey(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if len(ext) > 8 || strings.ContainsAny(ext, "/\\") {
		ext = ""
	}
	return ReceiptPrefix + uuid.NewString() + ext
}
