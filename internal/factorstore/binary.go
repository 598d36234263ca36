package factorstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/randls/internal/compress"
	"github.com/hupe1980/randls/internal/hash"
	"github.com/hupe1980/randls/internal/linalg"
	"gonum.org/v1/gonum/mat"
)

const (
	binaryMagic   = 0x4e534c52 // "RLSN"
	binaryVersion = 1
	headerSize    = 17
	maxDim        = 1 << 16
)

var errMalformed = errors.New("malformed factor blob")

// encode serializes a factor and its key.
func encode(key string, f *linalg.Factor, codec compress.Type) ([]byte, error) {
	n := f.Dim()
	pb := newPayloadBuffer(make([]byte, 0, 2+len(key)+4+8*(n*n+n)))
	pb.writeString(key)
	pb.writeUint32(uint32(n))
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			pb.writeFloat64(f.N.At(i, j))
		}
	}
	for _, v := range f.X0 {
		pb.writeFloat64(v)
	}
	if pb.err != nil {
		return nil, pb.err
	}

	payload, err := compress.Encode(pb.buf, codec)
	if err != nil {
		return nil, err
	}

	out := make([]byte, headerSize, headerSize+len(payload))
	binary.LittleEndian.PutUint32(out[0:4], binaryMagic)
	binary.LittleEndian.PutUint32(out[4:8], binaryVersion)
	out[8] = byte(codec)
	binary.LittleEndian.PutUint32(out[9:13], hash.CRC32C(payload))
	binary.LittleEndian.PutUint32(out[13:17], uint32(len(payload)))
	return append(out, payload...), nil
}

// decode parses a blob into the recorded key and factor.
func decode(data []byte) (string, *linalg.Factor, error) {
	if len(data) < headerSize {
		return "", nil, fmt.Errorf("%w: %d bytes is shorter than the header", errMalformed, len(data))
	}
	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != binaryMagic {
		return "", nil, fmt.Errorf("%w: invalid magic: %x", errMalformed, magic)
	}
	if version := binary.LittleEndian.Uint32(data[4:8]); version != binaryVersion {
		return "", nil, fmt.Errorf("%w: unsupported version: %d", errMalformed, version)
	}
	codec := compress.Type(data[8])
	checksum := binary.LittleEndian.Uint32(data[9:13])
	length := binary.LittleEndian.Uint32(data[13:17])

	payload := data[headerSize:]
	if uint32(len(payload)) != length {
		return "", nil, fmt.Errorf("%w: payload is %d bytes, header says %d", errMalformed, len(payload), length)
	}
	if hash.CRC32C(payload) != checksum {
		return "", nil, fmt.Errorf("%w: checksum mismatch", errMalformed)
	}

	raw, err := compress.Decode(payload, codec)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", errMalformed, err)
	}

	pb := newPayloadBuffer(raw)
	key := pb.readString()
	n := int(pb.readUint32())
	if pb.err == nil && (n == 0 || n > maxDim || len(raw)-pb.pos != 8*(n*n+n)) {
		return "", nil, fmt.Errorf("%w: dimension %d does not match payload", errMalformed, n)
	}

	nm := make([]float64, n*n)
	for i := range nm {
		nm[i] = pb.readFloat64()
	}
	x0 := make([]float64, n)
	for i := range x0 {
		x0[i] = pb.readFloat64()
	}
	if pb.err != nil {
		return "", nil, fmt.Errorf("%w: %w", errMalformed, pb.err)
	}

	f := &linalg.Factor{N: mat.NewDense(n, n, nm), X0: x0}
	if err := f.Validate(); err != nil {
		return "", nil, fmt.Errorf("%w: %w", errMalformed, err)
	}
	return key, f, nil
}

type payloadBuffer struct {
	buf []byte
	pos int
	err error
}

func newPayloadBuffer(b []byte) *payloadBuffer {
	return &payloadBuffer{buf: b}
}

func (p *payloadBuffer) writeUint32(v uint32) {
	if p.err != nil {
		return
	}
	p.buf = binary.LittleEndian.AppendUint32(p.buf, v)
}

func (p *payloadBuffer) writeFloat64(v float64) {
	if p.err != nil {
		return
	}
	p.buf = binary.LittleEndian.AppendUint64(p.buf, math.Float64bits(v))
}

func (p *payloadBuffer) writeString(s string) {
	if p.err != nil {
		return
	}
	if len(s) > 65535 {
		p.err = fmt.Errorf("string too long: %d", len(s))
		return
	}
	p.buf = binary.LittleEndian.AppendUint16(p.buf, uint16(len(s)))
	p.buf = append(p.buf, s...)
}

func (p *payloadBuffer) readUint32() uint32 {
	if p.err != nil {
		return 0
	}
	if p.pos+4 > len(p.buf) {
		p.err = io.ErrUnexpectedEOF
		return 0
	}
	v := binary.LittleEndian.Uint32(p.buf[p.pos:])
	p.pos += 4
	return v
}

func (p *payloadBuffer) readFloat64() float64 {
	if p.err != nil {
		return 0
	}
	if p.pos+8 > len(p.buf) {
		p.err = io.ErrUnexpectedEOF
		return 0
	}
	v := binary.LittleEndian.Uint64(p.buf[p.pos:])
	p.pos += 8
	return math.Float64frombits(v)
}

func (p *payloadBuffer) readString() string {
	if p.err != nil {
		return ""
	}
	if p.pos+2 > len(p.buf) {
		p.err = io.ErrUnexpectedEOF
		return ""
	}
	l := binary.LittleEndian.Uint16(p.buf[p.pos:])
	p.pos += 2

	if p.pos+int(l) > len(p.buf) {
		p.err = io.ErrUnexpectedEOF
		return ""
	}
	s := string(p.buf[p.pos : p.pos+int(l)])
	p.pos += int(l)
	return s
}
