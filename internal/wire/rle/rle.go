// Package rle implements the optional run-length encoding applied to
// DATA/FILE_P payloads (spec §4.J). The format is a sequence of
// (count:u8, byte:u8) pairs with 1 <= count <= 255.
package rle

// Encode run-length-encodes src. The caller is responsible for checking
// whether the result is actually smaller than src before using it; Encode
// itself never refuses to encode.
func Encode(src []byte) []byte {
	if len(src) == 0 {
		return src
	}

	out := make([]byte, 0, len(src))
	i := 0
	for i < len(src) {
		b := src[i]
		run := 1
		for i+run < len(src) && src[i+run] == b && run < 255 {
			run++
		}
		out = append(out, byte(run), b)
		i += run
	}
	return out
}

// Decode reverses Encode. It does not reject a malformed stream: a trailing
// odd byte is ignored and a pair with a zero count adds nothing. Neither can
// occur for data produced by Encode; Valid reports whether untrusted data is
// well formed.
func Decode(src []byte) []byte {
	if len(src) == 0 {
		return src
	}
	out := make([]byte, 0, len(src))
	for i := 0; i+1 < len(src); i += 2 {
		count := src[i]
		b := src[i+1]
		for n := byte(0); n < count; n++ {
			out = append(out, b)
		}
	}
	return out
}

// Valid reports whether src is a well-formed RLE stream: an even length
// with every count byte non-zero.
func Valid(src []byte) bool {
	if len(src)%2 != 0 {
		return false
	}
	for i := 0; i+1 < len(src); i += 2 {
		if src[i] == 0 {
			return false
		}
	}
	return true
}

// EncodeIfSmaller returns the RLE-encoded form of src and true if that
// encoding is strictly smaller than src; otherwise it returns src unchanged
// and false. This is the decision point behind the per-packet compressed
// flag (spec §4.J: "If the encoded size would exceed the input size, the
// server transmits the raw payload instead").
func EncodeIfSmaller(src []byte) (data []byte, compressed bool) {
	enc := Encode(src)
	if len(enc) < len(src) {
		return enc, true
	}
	return src, false
}
