package display

import (
	"encoding/base64"
	"fmt"
	"io"
)

// Kitty graphics protocol: a=T transmits and displays, f=100 marks PNG-style
// payloads, q=2 suppresses responses. Payloads over one escape sequence are
// split into 4 KiB chunks linked with m=1/m=0.
const (
	kittyStart = "\x1b_G"
	kittyEnd   = "\x1b\\"
	chunkSize  = 4096
)

func writeKitty(out io.Writer, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	if len(encoded) <= chunkSize {
		_, err := fmt.Fprintf(out, "%sa=T,f=100,q=2;%s%s", kittyStart, encoded, kittyEnd)
		return err
	}

	for first := true; len(encoded) > 0; first = false {
		n := chunkSize
		if len(encoded) < n {
			n = len(encoded)
		}
		chunk, rest := encoded[:n], encoded[n:]

		var params string
		switch {
		case first:
			params = "a=T,f=100,q=2,m=1"
		case len(rest) == 0:
			params = "m=0"
		default:
			params = "m=1"
		}

		if _, err := fmt.Fprintf(out, "%s%s;%s%s", kittyStart, params, chunk, kittyEnd); err != nil {
			return err
		}
		encoded = rest
	}

	return nil
}
