package dagcbor

import (
	"bytes"
	"testing"
)

func TestReadBytes_Exact(t *testing.T) {
	got, err := readBytes(bytes.NewReader([]byte{1, 2, 3, 4}), 3)
	if err != nil {
		t.Fatalf("readBytes failed: %v", err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("got %v", got)
	}
}

// A huge declared length must not force a matching up-front allocation.
// With a short stream the read fails with UNEXPECTED_EOF; if the
// declared length drove the allocation this test would OOM first.
func TestReadBytes_DeclaredLengthDoesNotDriveAllocation(t *testing.T) {
	const declared = 1 << 40
	_, err := readBytes(bytes.NewReader([]byte{1, 2, 3}), declared)
	if !IsCode(err, CodeUnexpectedEOF) {
		t.Fatalf("got %v want UNEXPECTED_EOF", err)
	}
}

func TestReadBytes_LargerThanCap(t *testing.T) {
	data := bytes.Repeat([]byte{0x5a}, maxInitialAlloc+100)
	got, err := readBytes(bytes.NewReader(data), len(data))
	if err != nil {
		t.Fatalf("readBytes failed: %v", err)
	}
	if len(got) != len(data) || !bytes.Equal(got, data) {
		t.Fatalf("large read corrupted: %d bytes", len(got))
	}
}

func TestReadLen(t *testing.T) {
	cases := []struct {
		name  string
		minor uint8
		tail  []byte
		want  int
	}{
		{"inline 0", 0x00, nil, 0},
		{"inline 23", 0x17, nil, 23},
		{"uint8 follows", 0x18, []byte{200}, 200},
		{"uint16 follows", 0x19, []byte{0x01, 0x00}, 256},
		{"uint32 follows", 0x1a, []byte{0, 0x01, 0, 0}, 1 << 16},
		{"uint64 follows", 0x1b, []byte{0, 0, 0, 0, 0, 0, 0x01, 0}, 256},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := readLen(bytes.NewReader(tc.tail), tc.minor)
			if err != nil {
				t.Fatalf("readLen failed: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %d want %d", got, tc.want)
			}
		})
	}
}

func TestReadLen_Invalid(t *testing.T) {
	// 2^63 does not fit the host int.
	huge := []byte{0x80, 0, 0, 0, 0, 0, 0, 0}
	_, err := readLen(bytes.NewReader(huge), 0x1b)
	if !IsCode(err, CodeLengthOutOfRange) {
		t.Fatalf("got %v want LENGTH_OUT_OF_RANGE", err)
	}

	_, err = readLen(bytes.NewReader(nil), 0x1c)
	if !IsCode(err, CodeUnexpectedCode) {
		t.Fatalf("got %v want UNEXPECTED_CODE", err)
	}

	_, err = readLen(bytes.NewReader([]byte{0x01}), 0x19)
	if !IsCode(err, CodeUnexpectedEOF) {
		t.Fatalf("got %v want UNEXPECTED_EOF", err)
	}
}
