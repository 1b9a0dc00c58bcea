package dagcbor

// parseUvarint decodes an unsigned LEB128 varint from the front of
// input and returns the value plus the unconsumed remainder.
//
// Unlike canonical multiformats varints, non-minimal encodings are
// accepted; the only rejection is a varint that would need 64 or more
// bits of shift to terminate, or one cut off by the end of the buffer.
func parseUvarint(input []byte) (uint64, []byte, error) {
	var value uint64
	var shift uint

	for {
		if len(input) == 0 {
			return 0, nil, newError(CodeInvalidVarint)
		}
		b := input[0]
		input = input[1:]

		value |= uint64(b&0x7f) << shift

		if b&0x80 == 0 {
			break
		}

		shift += 7
		if shift >= 64 {
			return 0, nil, newError(CodeInvalidVarint)
		}
	}

	return value, input, nil
}
