package extract

import (
	"bytes"
	"compress/zlib"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// RawScanStrategy is the last-resort extractor for files whose xref table or
// page tree is too damaged for the structured parsers. It walks every stream
// object, inflates FlateDecode data, and pulls the arguments of Tj/TJ
// show-text operators straight out of the decompressed bytes. No page tree
// is consulted, so it cannot honor a page filter.
type RawScanStrategy struct{}

var (
	streamRe   = regexp.MustCompile(`(?s)stream\r?\n(.*?)endstream`)
	showTextRe = regexp.MustCompile(`\(((?:\\.|[^\\()])*)\)\s*(?:Tj|'|")`)
	showArrRe  = regexp.MustCompile(`\[((?:\\.|[^\\\]])*)\]\s*TJ`)
	literalRe  = regexp.MustCompile(`\(((?:\\.|[^\\()])*)\)`)
)

func (s *RawScanStrategy) Name() string { return "rawscan" }

func (s *RawScanStrategy) Extract(data []byte, pages []int) (string, error) {
	if len(pages) > 0 {
		return "", errors.New("raw scan cannot select individual pages")
	}

	var sb strings.Builder
	for _, m := range streamRe.FindAllSubmatch(data, -1) {
		content := inflate(m[1])
		for _, op := range showTextRe.FindAllSubmatch(content, -1) {
			writeDecoded(&sb, op[1])
		}
		for _, arr := range showArrRe.FindAllSubmatch(content, -1) {
			for _, lit := range literalRe.FindAllSubmatch(arr[1], -1) {
				writeDecoded(&sb, lit[1])
			}
		}
	}
	return sb.String(), nil
}

// inflate attempts zlib decompression and falls back to the raw bytes for
// uncompressed streams.
func inflate(data []byte) []byte {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return data
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil && len(out) == 0 {
		return data
	}
	return out
}

// writeDecoded resolves PDF literal-string escapes and appends the result.
func writeDecoded(sb *strings.Builder, raw []byte) {
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		i++
		if i >= len(raw) {
			break
		}
		switch e := raw[i]; e {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'b', 'f':
			// Rare in show-text arguments; dropped.
		case '(', ')', '\\':
			sb.WriteByte(e)
		default:
			if e >= '0' && e <= '7' {
				oct := string(e)
				for len(oct) < 3 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7' {
					i++
					oct += string(raw[i])
				}
				if v, err := strconv.ParseUint(oct, 8, 16); err == nil && v < 256 {
					sb.WriteByte(byte(v))
				}
			}
		}
	}
	sb.WriteByte(' ')
}
