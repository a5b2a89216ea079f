package models

import (
	"bytes"
	"errors"
	"testing"
)

func TestDataURLRoundTrip(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G', 0x00, 0xff}
	url := EncodeDataURL("image/png", payload)

	mime, data, err := DecodeDataURL(url)
	if err != nil {
		t.Fatalf("DecodeDataURL() error = %v", err)
	}
	if mime != "image/png" {
		t.Errorf("DecodeDataURL() mime = %q, want image/png", mime)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("DecodeDataURL() data = %v, want %v", data, payload)
	}
}

func TestDecodeDataURL_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"no comma", "data:image/png;base64"},
		{"no data prefix", "image/png;base64,aGk="},
		{"missing mime", "data:;base64,aGk="},
		{"mime without slash", "data:png;base64,aGk="},
		{"bad base64", "data:image/png;base64,!!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := DecodeDataURL(tt.in); !errors.Is(err, ErrInvalidEncoding) {
				t.Errorf("DecodeDataURL(%q) error = %v, want ErrInvalidEncoding", tt.in, err)
			}
		})
	}
}
