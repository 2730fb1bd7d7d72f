package css

import (
	"bytes"
	"fmt"

	"golang.org/x/text/encoding/htmlindex"
)

var (
	utf8BOM       = []byte{0xEF, 0xBB, 0xBF}
	charsetPrefix = []byte(`@charset "`)
)

// Decode converts stylesheet bytes to UTF-8. Encoding comes from the byte
// order mark or from the leading @charset rule, UTF-8 is assumed otherwise.
func Decode(data []byte) ([]byte, error) {
	if rest, ok := bytes.CutPrefix(data, utf8BOM); ok {
		return rest, nil
	}
	rest, ok := bytes.CutPrefix(data, charsetPrefix)
	if !ok {
		return data, nil
	}
	label, _, ok := bytes.Cut(rest, []byte(`";`))
	if !ok {
		return data, nil
	}

	enc, err := htmlindex.Get(string(label))
	if err != nil {
		return nil, fmt.Errorf("unknown stylesheet charset %q: %w", label, err)
	}
	if name, _ := htmlindex.Name(enc); name == "utf-8" {
		return data, nil
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("unable to decode stylesheet from %q: %w", label, err)
	}
	return out, nil
}
