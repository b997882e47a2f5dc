package fetcher

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/andybalholm/brotli"
	"github.com/nao1215/pagegrab/internal/model"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// acceptEncoding lists the content codings the fetcher can decode.
const acceptEncoding = "gzip, deflate, br"

// decodeError marks a body whose bytes arrived but could not be decoded.
type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return e.err.Error() }

func (e *decodeError) Unwrap() error { return e.err }

// sourceReader remembers the first non-EOF error of the wire body so that
// readBody can tell transport failures from decoding failures.
type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF && s.err == nil {
		s.err = err
	}
	return n, err
}

// readBody reads the complete response body, undoing any content coding.
// The body size is not capped here; only the declared length is checked
// before this is called. Errors from the connection are returned as is;
// errors from a decoder are returned as *decodeError.
func readBody(resp *http.Response) ([]byte, error) {
	src := &sourceReader{r: resp.Body}
	reader := io.Reader(src)
	var closers []io.Closer

	fail := func(format string, err error) ([]byte, error) {
		if src.err != nil {
			return nil, src.err
		}
		return nil, &decodeError{err: fmt.Errorf(format, err)}
	}

	coding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch coding {
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(src)
		if err != nil {
			return fail("gzip decode: %w", err)
		}
		reader = gz
		closers = append(closers, gz)
	case "br":
		reader = brotli.NewReader(src)
	case "deflate":
		rc, err := deflateReader(src)
		if err != nil {
			return fail("deflate decode: %w", err)
		}
		reader = rc
		closers = append(closers, rc)
	}

	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close() //nolint:errcheck // decoder close after full read
		}
	}()

	body, err := io.ReadAll(reader)
	if err != nil {
		if coding == "" {
			return nil, err
		}
		return fail(coding+" decode: %w", err)
	}
	return body, nil
}

// deflateReader accepts both zlib-wrapped (RFC 1950) and raw (RFC 1951)
// deflate streams, since servers disagree about what "deflate" means.
func deflateReader(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	header, err := br.Peek(2)
	if err != nil {
		return nil, err
	}
	// zlib: CM=8 in the low nibble and the 16-bit header divisible by 31.
	if header[0]&0x0f == 8 && (uint16(header[0])<<8|uint16(header[1]))%31 == 0 {
		return zlib.NewReader(br)
	}
	return flate.NewReader(br), nil
}

// decodeText converts body to UTF-8 text and reports the canonical name of
// the source encoding. The charset is taken from, in order: a byte order
// mark, the Content-Type charset parameter, a <meta> declaration. Bodies
// with no declaration are treated as UTF-8 when they are valid UTF-8.
func decodeText(body []byte, contentType string) (string, string) {
	enc, name, certain := charset.DetermineEncoding(body, contentType)

	// DetermineEncoding falls back to windows-1252 when nothing is declared.
	if !certain && name == "windows-1252" && utf8.Valid(body) {
		return string(body), model.DefaultEncoding
	}

	name = canonicalEncoding(enc, name)
	if name == model.DefaultEncoding || enc == encoding.Nop {
		return strings.ToValidUTF8(string(body), string(utf8.RuneError)), model.DefaultEncoding
	}

	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return strings.ToValidUTF8(string(body), string(utf8.RuneError)), model.DefaultEncoding
	}
	return string(decoded), name
}

// canonicalEncoding returns the WHATWG name of enc, falling back to the
// detector's label and finally to utf-8.
func canonicalEncoding(enc encoding.Encoding, label string) string {
	if enc != nil {
		if name, err := htmlindex.Name(enc); err == nil && name != "" {
			return name
		}
	}
	if label != "" {
		if e, err := htmlindex.Get(label); err == nil {
			if name, err := htmlindex.Name(e); err == nil {
				return name
			}
		}
	}
	return model.DefaultEncoding
}
