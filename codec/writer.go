package codec

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/Neumenon/collate/collate"
)

// Option configures a Writer or Reader.
type Option func(*options)

type options struct {
	compress bool
	level    zstd.EncoderLevel
	maxBody  int
}

func newOptions(opts []Option) options {
	o := options{level: zstd.SpeedDefault, maxBody: MaxBodySize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithCompression stores the body zstd-compressed.
func WithCompression() Option {
	return func(o *options) { o.compress = true }
}

// WithCompressionLevel stores the body zstd-compressed at the given level.
func WithCompressionLevel(level zstd.EncoderLevel) Option {
	return func(o *options) {
		o.compress = true
		o.level = level
	}
}

// WithMaxBodySize sets the largest body a Reader accepts (default 256 MiB).
func WithMaxBodySize(n int) Option {
	return func(o *options) { o.maxBody = n }
}

var (
	encodersMu sync.Mutex
	encoders   = make(map[zstd.EncoderLevel]*zstd.Encoder)
)

// encoder returns a shared encoder; EncodeAll is safe for concurrent use.
func encoder(level zstd.EncoderLevel) (*zstd.Encoder, error) {
	encodersMu.Lock()
	defer encodersMu.Unlock()
	if enc, ok := encoders[level]; ok {
		return enc, nil
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, err
	}
	encoders[level] = enc
	return enc, nil
}

// Writer writes serialized tables to an io.Writer.
type Writer struct {
	w    io.Writer
	opts options
}

// NewWriter creates a table writer.
func NewWriter(w io.Writer, opts ...Option) *Writer {
	return &Writer{w: w, opts: newOptions(opts)}
}

// WriteTable writes one table record.
func (w *Writer) WriteTable(t *collate.Table) error {
	body, err := encodeBody(t)
	if err != nil {
		return err
	}
	var flags Flags
	if w.opts.compress {
		enc, err := encoder(w.opts.level)
		if err != nil {
			return fmt.Errorf("codec: zstd encoder: %w", err)
		}
		body = enc.EncodeAll(body, nil)
		flags |= FlagCompressed
	}

	header := make([]byte, 0, 5+binary.MaxVarintLen64)
	header = append(header, magic[:]...)
	header = append(header, Version, byte(flags))
	header = binary.AppendUvarint(header, uint64(len(body)))
	if _, err := w.w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := w.w.Write(body); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	var crc [4]byte
	binary.LittleEndian.PutUint32(crc[:], ComputeCRC(body))
	if _, err := w.w.Write(crc[:]); err != nil {
		return fmt.Errorf("write crc: %w", err)
	}
	return nil
}

// encodeBody serializes the metadata and the trie.
//
//	provenance     uvarint length + bytes
//	implicit       uvarint length + bytes
//	variableTop    uint32
//	meta flags     byte
//	settings       5 bytes
//	lead order     256 logical + 256 parent bytes
//	key count      uvarint
//	root count     uvarint
//	node count     uvarint
//	nodes          preorder: cp, children, elem count, elems
func encodeBody(t *collate.Table) ([]byte, error) {
	var b []byte
	b = appendString(b, t.Provenance())
	b = appendString(b, t.ImplicitPolicy().Name())
	b = binary.LittleEndian.AppendUint32(b, t.VariableTop())

	var meta byte
	if t.RetainCaseBits() {
		meta |= metaRetainCaseBits
	}
	if t.Normalization() {
		meta |= metaNormalization
	}
	b = append(b, meta)

	s := t.Settings()
	b = append(b, byte(s.Strength), byte(s.Variable), byte(s.L2Order), byte(s.CaseLevel), byte(s.CaseFirst))

	leads := t.LeadOrder()
	logical, parent := leads.Bytes()
	b = append(b, logical[:]...)
	b = append(b, parent[:]...)

	b = binary.AppendUvarint(b, uint64(t.Len()))
	b = binary.AppendUvarint(b, uint64(t.Roots()))

	var nodes []byte
	count := 0
	err := t.VisitNodes(func(cp rune, children int, elems []collate.Elem) error {
		count++
		nodes = binary.AppendUvarint(nodes, uint64(cp))
		nodes = binary.AppendUvarint(nodes, uint64(children))
		nodes = binary.AppendUvarint(nodes, uint64(len(elems)))
		for _, e := range elems {
			nodes = appendElem(nodes, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	b = binary.AppendUvarint(b, uint64(count))
	return append(b, nodes...), nil
}

func appendString(b []byte, s string) []byte {
	b = binary.AppendUvarint(b, uint64(len(s)))
	return append(b, s...)
}

// elemSize is the encoded size of one element.
const elemSize = 4 + 2 + 2 + 2 + 1

func appendElem(b []byte, e collate.Elem) []byte {
	b = binary.LittleEndian.AppendUint32(b, e.Primary)
	b = binary.LittleEndian.AppendUint16(b, e.Secondary)
	b = binary.LittleEndian.AppendUint16(b, e.Tertiary)
	b = binary.LittleEndian.AppendUint16(b, e.Quaternary)
	var v byte
	if e.Variable {
		v = 1
	}
	return append(b, v)
}
