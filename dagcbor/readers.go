package dagcbor

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
)

// maxInitialAlloc caps the up-front buffer allocation for declared
// lengths, which are attacker controlled.
const maxInitialAlloc = 16 << 10

func readUint8(r io.Reader) (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, wrapIO(err)
	}
	return buf[0], nil
}

func readUint16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, wrapIO(err)
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, wrapIO(err)
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, wrapIO(err)
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// readBytes reads exactly n bytes. The initial allocation is capped at
// maxInitialAlloc regardless of n; the buffer still grows to exactly n
// bytes on success.
func readBytes(r io.Reader, n int) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, min(n, maxInitialAlloc)))
	if _, err := io.CopyN(buf, r, int64(n)); err != nil {
		return nil, wrapIO(err)
	}
	return buf.Bytes(), nil
}

// readLen resolves a length from the additional-information selector
// (the major-type byte with its high bits already subtracted).
func readLen(r io.Reader, minor uint8) (int, error) {
	switch {
	case minor <= 0x17:
		return int(minor), nil
	case minor == 0x18:
		v, err := readUint8(r)
		return int(v), err
	case minor == 0x19:
		v, err := readUint16(r)
		return int(v), err
	case minor == 0x1a:
		v, err := readUint32(r)
		if err != nil {
			return 0, err
		}
		if uint64(v) > uint64(math.MaxInt) {
			return 0, newError(CodeLengthOutOfRange)
		}
		return int(v), nil
	case minor == 0x1b:
		v, err := readUint64(r)
		if err != nil {
			return 0, err
		}
		if v > uint64(math.MaxInt) {
			return 0, newError(CodeLengthOutOfRange)
		}
		return int(v), nil
	default:
		return 0, newByteError(CodeUnexpectedCode, minor)
	}
}

func skip(r io.Seeker, n int64) error {
	if _, err := r.Seek(n, io.SeekCurrent); err != nil {
		return wrapIO(err)
	}
	return nil
}

// unread steps the stream back over the one lookahead byte taken when
// probing for an indefinite-length break marker.
func unread(r io.Seeker) error {
	if _, err := r.Seek(-1, io.SeekCurrent); err != nil {
		return wrapIO(err)
	}
	return nil
}
