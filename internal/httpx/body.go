package httpx

import (
	"compress/gzip"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
)

// DefaultMaxBodyBytes bounds how much of a page is read for classification.
const DefaultMaxBodyBytes = 2 << 20

// ReadBody reads at most max decoded bytes of resp's body as UTF-8 text,
// undoing gzip/deflate/br content encoding and converting from the declared
// or sniffed charset. It does not close the body.
func ReadBody(resp *http.Response, max int64) (string, error) {
	if max <= 0 {
		max = DefaultMaxBodyBytes
	}

	var reader io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", fmt.Errorf("gzip body: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "deflate":
		zr, err := zlib.NewReader(resp.Body)
		if err != nil {
			return "", fmt.Errorf("deflate body: %w", err)
		}
		defer zr.Close()
		reader = zr
	case "br":
		reader = brotli.NewReader(resp.Body)
	}

	utf8Reader, err := charset.NewReader(io.LimitReader(reader, max), resp.Header.Get("Content-Type"))
	switch {
	case errors.Is(err, io.EOF):
		return "", nil
	case err != nil:
		return "", err
	}
	reader = utf8Reader

	b, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
