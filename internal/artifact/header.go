package artifact

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
)

// bytesPerLine is the number of array elements on each line of the header.
const bytesPerLine = 16

// ErrMalformedHeader indicates a header that was not produced by Render or
// whose size annotations disagree with its contents.
var ErrMalformedHeader = errors.New("malformed header")

// Render writes the header for compressed to w. original is the size of the
// artifact before compression.
//
// Every element is written as "0xhh, " and a newline plus two spaces of
// indent precedes elements 0, 16, 32 and so on.
func Render(w io.Writer, original int, compressed []byte, symbol string) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "#include <pgmspace.h>\n\n")
	fmt.Fprintf(bw, "// Original size: %d bytes\n", original)
	fmt.Fprintf(bw, "// Compressed size: %d bytes\n\n", len(compressed))
	fmt.Fprintf(bw, "const size_t %s_len = %d;\n", symbol, len(compressed))
	fmt.Fprintf(bw, "const uint8_t %s[] PROGMEM = {", symbol)

	const digits = "0123456789abcdef"
	token := []byte("0x00, ")
	for i, b := range compressed {
		if i%bytesPerLine == 0 {
			_, _ = bw.WriteString("\n  ")
		}
		token[2] = digits[b>>4]
		token[3] = digits[b&0x0f]
		_, _ = bw.Write(token)
	}
	_, _ = bw.WriteString("\n};\n")

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("rendering header: %w", err)
	}
	return nil
}

// Header is a generated header read back by Parse.
type Header struct {
	Symbol          string
	OriginalBytes   int
	CompressedBytes int
	Data            []byte
}

// Decompress returns the artifact embedded in the header.
func (h *Header) Decompress() ([]byte, error) {
	return Decompress(h.Data)
}

var (
	originalRe   = regexp.MustCompile(`(?m)^// Original size: (\d+) bytes$`)
	compressedRe = regexp.MustCompile(`(?m)^// Compressed size: (\d+) bytes$`)
	lengthRe     = regexp.MustCompile(`(?m)^const size_t ([A-Za-z_][A-Za-z0-9_]*)_len = (\d+);$`)
	arrayRe      = regexp.MustCompile(`(?s)const uint8_t ([A-Za-z_][A-Za-z0-9_]*)\[\] PROGMEM = \{(.*?)\};`)
	tokenRe      = regexp.MustCompile(`0x([0-9a-fA-F]{2})`)
)

// Parse reads a header written by Render. The size comments, the length
// constant and the number of array elements must all agree.
func Parse(r io.Reader) (*Header, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	original, err := matchInt(originalRe, src, "original size comment")
	if err != nil {
		return nil, err
	}
	compressed, err := matchInt(compressedRe, src, "compressed size comment")
	if err != nil {
		return nil, err
	}

	lm := lengthRe.FindSubmatch(src)
	if lm == nil {
		return nil, fmt.Errorf("%w: missing length constant", ErrMalformedHeader)
	}
	declared, err := strconv.Atoi(string(lm[2]))
	if err != nil {
		return nil, fmt.Errorf("%w: length constant: %v", ErrMalformedHeader, err)
	}

	am := arrayRe.FindSubmatch(src)
	if am == nil {
		return nil, fmt.Errorf("%w: missing byte array", ErrMalformedHeader)
	}
	if string(am[1]) != string(lm[1]) {
		return nil, fmt.Errorf("%w: array %q does not match length constant %q_len", ErrMalformedHeader, am[1], lm[1])
	}

	tokens := tokenRe.FindAllSubmatch(am[2], -1)
	data := make([]byte, len(tokens))
	for i, tok := range tokens {
		v, err := strconv.ParseUint(string(tok[1]), 16, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrMalformedHeader, i, err)
		}
		data[i] = byte(v)
	}

	if declared != len(data) || compressed != len(data) {
		return nil, fmt.Errorf("%w: %d elements, length constant %d, compressed size comment %d",
			ErrMalformedHeader, len(data), declared, compressed)
	}

	return &Header{
		Symbol:          string(am[1]),
		OriginalBytes:   original,
		CompressedBytes: len(data),
		Data:            data,
	}, nil
}

func matchInt(re *regexp.Regexp, src []byte, what string) (int, error) {
	m := re.FindSubmatch(src)
	if m == nil {
		return 0, fmt.Errorf("%w: missing %s", ErrMalformedHeader, what)
	}
	n, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrMalformedHeader, what, err)
	}
	return n, nil
}
