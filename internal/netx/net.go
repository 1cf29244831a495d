// Package netx holds small HTTP helpers shared by the gophid client.
package netx

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net"
	"net/url"
)

// MultipartFile writes r as a single form file field and returns the body
// together with its Content-Type.
func MultipartFile(field, filename string, r io.Reader) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return &buf, w.FormDataContentType(), nil
}

// IsUnavailable reports whether err means the server could not be reached,
// as opposed to the server answering with an error.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Timeout() || errors.Is(urlErr.Err, io.EOF) || errors.Is(urlErr.Err, io.ErrUnexpectedEOF)
	}
	return false
}
