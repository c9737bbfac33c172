package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Stream identifies the origin of a v2-framed chunk.
type Stream byte

const (
	StreamStdout Stream = 1
	StreamStderr Stream = 2
)

// FrameHeaderLen is the fixed-size header preceding every v2 frame
// payload: 1 byte stream id + 4 byte big-endian length.
const FrameHeaderLen = 5

// EncodeFrame returns a stream-id + length-prefixed frame ready to be
// passed to ChunkedWriter.WriteChunk.
func EncodeFrame(s Stream, payload []byte) []byte {
	buf := make([]byte, FrameHeaderLen+len(payload))
	buf[0] = byte(s)
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(payload)))
	copy(buf[5:], payload)
	return buf
}

// DecodeFrame reads exactly one frame header + payload from r.
func DecodeFrame(r io.Reader) (Stream, []byte, error) {
	var hdr [FrameHeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, nil, err
	}
	s := Stream(hdr[0])
	if s != StreamStdout && s != StreamStderr {
		return 0, nil, fmt.Errorf("wire: unknown stream id %d", hdr[0])
	}
	n := binary.BigEndian.Uint32(hdr[1:5])
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, err
	}
	return s, payload, nil
}
