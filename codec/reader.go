package codec

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"unicode/utf8"

	"github.com/klauspost/compress/zstd"

	"github.com/Neumenon/collate/collate"
)

// decompress inflates a zstd body. The decoder window is capped near
// limit and at most limit+1 bytes are produced.
func decompress(stored []byte, limit int) ([]byte, error) {
	dec, err := zstd.NewReader(bytes.NewReader(stored),
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(max(uint64(limit)+1, zstd.MinWindowSize)))
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return io.ReadAll(io.LimitReader(dec, int64(limit)+1))
}

// Reader reads serialized tables from an io.Reader.
type Reader struct {
	r    *bufio.Reader
	opts options
	off  int
}

// NewReader creates a table reader.
func NewReader(r io.Reader, opts ...Option) *Reader {
	return &Reader{r: bufio.NewReader(r), opts: newOptions(opts)}
}

// ReadTable reads the next table record. It returns io.EOF when the input
// is exhausted before a record starts.
func (r *Reader) ReadTable() (*collate.Table, error) {
	var head [5]byte
	n, err := io.ReadFull(r.r, head[:])
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, corrupt(r.off+n, "truncated header")
	}
	if head[0] != magic[0] || head[1] != magic[1] || head[2] != magic[2] {
		return nil, &IncompatibleTableVersionError{Want: Version, Magic: true}
	}
	if head[3] != Version {
		return nil, &IncompatibleTableVersionError{Got: head[3], Want: Version}
	}
	flags := Flags(head[4])
	if flags&^knownFlags != 0 {
		return nil, corrupt(r.off+4, "unknown flags %#02x", byte(flags))
	}
	r.off += len(head)

	size, err := binary.ReadUvarint(r.r)
	if err != nil {
		return nil, corrupt(r.off, "truncated body length")
	}
	r.off += uvarintLen(size)
	if size > uint64(r.opts.maxBody) {
		return nil, corrupt(r.off, "body too large: %d > %d", size, r.opts.maxBody)
	}

	stored := make([]byte, size)
	if n, err := io.ReadFull(r.r, stored); err != nil {
		return nil, corrupt(r.off+n, "truncated body")
	}
	bodyOff := r.off
	r.off += len(stored)

	var crc [4]byte
	if n, err := io.ReadFull(r.r, crc[:]); err != nil {
		return nil, corrupt(r.off+n, "truncated checksum")
	}
	if want, got := binary.LittleEndian.Uint32(crc[:]), ComputeCRC(stored); want != got {
		return nil, corrupt(r.off, "CRC mismatch: expected %08x, got %08x", want, got)
	}
	r.off += len(crc)

	body := stored
	if flags&FlagCompressed != 0 {
		var err error
		body, err = decompress(stored, r.opts.maxBody)
		if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
			return nil, corrupt(bodyOff, "decompressed body too large")
		}
		if err != nil {
			return nil, corrupt(bodyOff, "decompress: %v", err)
		}
		if len(body) > r.opts.maxBody {
			return nil, corrupt(bodyOff, "decompressed body too large")
		}
		// Offsets inside a compressed body refer to the decompressed bytes.
		bodyOff = 0
	}
	return decodeBody(body, bodyOff)
}

// Decode decodes exactly one table from b.
func Decode(b []byte, opts ...Option) (*collate.Table, error) {
	rd := NewReader(bytes.NewReader(b), opts...)
	t, err := rd.ReadTable()
	if errors.Is(err, io.EOF) {
		return nil, corrupt(0, "empty input")
	}
	if err != nil {
		return nil, err
	}
	if rd.off != len(b) {
		return nil, corrupt(rd.off, "%d trailing bytes", len(b)-rd.off)
	}
	return t, nil
}

// Encode serializes t.
func Encode(t *collate.Table, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	if err := NewWriter(&buf, opts...).WriteTable(t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func uvarintLen(v uint64) int {
	var buf [binary.MaxVarintLen64]byte
	return binary.PutUvarint(buf[:], v)
}

// ============================================================
// Body
// ============================================================

// cursor reads a body and tracks offsets for error reports.
type cursor struct {
	b    []byte
	pos  int
	base int
}

func (c *cursor) off() int { return c.base + c.pos }

func (c *cursor) need(n int, what string) error {
	if n < 0 || len(c.b)-c.pos < n {
		return corrupt(c.off(), "truncated %s", what)
	}
	return nil
}

func (c *cursor) uvarint(what string) (uint64, error) {
	v, n := binary.Uvarint(c.b[c.pos:])
	if n <= 0 {
		return 0, corrupt(c.off(), "truncated or overlong %s", what)
	}
	c.pos += n
	return v, nil
}

func (c *cursor) bytes(n int, what string) ([]byte, error) {
	if err := c.need(n, what); err != nil {
		return nil, err
	}
	out := c.b[c.pos : c.pos+n]
	c.pos += n
	return out, nil
}

func (c *cursor) string(what string) (string, error) {
	n, err := c.uvarint(what)
	if err != nil {
		return "", err
	}
	if n > uint64(len(c.b)) {
		return "", corrupt(c.off(), "truncated %s", what)
	}
	b, err := c.bytes(int(n), what)
	return string(b), err
}

type bodyDecoder struct {
	cursor
	builder     *collate.Builder
	leads       collate.LeadOrder
	variableTop uint32
	nodes       uint64
	read        uint64
	key         []rune
}

func decodeBody(body []byte, base int) (*collate.Table, error) {
	d := &bodyDecoder{cursor: cursor{b: body, base: base}, builder: collate.NewBuilder()}
	if err := d.metadata(); err != nil {
		return nil, err
	}

	count, err := d.uvarint("key count")
	if err != nil {
		return nil, err
	}
	roots, err := d.uvarint("root count")
	if err != nil {
		return nil, err
	}
	if d.nodes, err = d.uvarint("node count"); err != nil {
		return nil, err
	}
	if roots > d.nodes {
		return nil, corrupt(d.off(), "%d roots but %d nodes", roots, d.nodes)
	}
	if err := d.children(roots, 0); err != nil {
		return nil, err
	}
	if d.read != d.nodes {
		return nil, corrupt(d.off(), "child counts cover %d of %d nodes", d.read, d.nodes)
	}
	if d.pos != len(d.cursor.b) {
		return nil, corrupt(d.off(), "%d trailing body bytes", len(d.cursor.b)-d.pos)
	}
	if uint64(d.builder.Len()) != count {
		return nil, corrupt(d.off(), "key count %d, found %d", count, d.builder.Len())
	}

	t, err := d.builder.Build()
	if err != nil {
		return nil, corrupt(-1, "%v", err)
	}
	if t.VariableTop() != d.variableTop {
		return nil, corrupt(-1, "variable top %#x, elements give %#x", d.variableTop, t.VariableTop())
	}
	return t, nil
}

func (d *bodyDecoder) metadata() error {
	prov, err := d.string("provenance")
	if err != nil {
		return err
	}
	if !utf8.ValidString(prov) {
		return corrupt(d.off(), "provenance is not UTF-8")
	}
	d.builder.SetProvenance(prov)

	name, err := d.string("implicit policy")
	if err != nil {
		return err
	}
	policy, ok := collate.ImplicitPolicyByName(name)
	if !ok {
		return corrupt(d.off(), "unknown implicit policy %q", name)
	}
	d.builder.SetImplicitPolicy(policy)

	vt, err := d.bytes(4, "variable top")
	if err != nil {
		return err
	}
	d.variableTop = binary.LittleEndian.Uint32(vt)

	meta, err := d.bytes(1, "flags")
	if err != nil {
		return err
	}
	if meta[0]&^knownMeta != 0 {
		return corrupt(d.off()-1, "unknown table flags %#02x", meta[0])
	}
	d.builder.SetRetainCaseBits(meta[0]&metaRetainCaseBits != 0)
	d.builder.SetNormalization(meta[0]&metaNormalization != 0)

	s, err := d.bytes(5, "settings")
	if err != nil {
		return err
	}
	settings := collate.Options{
		Strength:  collate.Strength(s[0]),
		Variable:  collate.VariableWeighting(s[1]),
		L2Order:   collate.L2Order(s[2]),
		CaseLevel: collate.Switch(s[3]),
		CaseFirst: collate.CaseFirst(s[4]),
	}
	if err := d.builder.SetSettings(settings); err != nil {
		return corrupt(d.off()-5, "%v", err)
	}

	lo, err := d.bytes(512, "lead order")
	if err != nil {
		return err
	}
	var logical, parent [256]byte
	copy(logical[:], lo[:256])
	copy(parent[:], lo[256:])
	if d.leads, err = collate.NewLeadOrder(logical, parent); err != nil {
		return corrupt(d.off()-512, "%v", err)
	}
	d.builder.SetLeadOrder(d.leads)
	return nil
}

// children reads n sibling nodes and their subtrees.
func (d *bodyDecoder) children(n uint64, depth int) error {
	if depth >= maxDepth {
		return corrupt(d.off(), "trie deeper than %d", maxDepth)
	}
	prev := rune(-1)
	for i := uint64(0); i < n; i++ {
		if d.read == d.nodes {
			return corrupt(d.off(), "child counts exceed %d nodes", d.nodes)
		}
		d.read++

		at := d.off()
		v, err := d.uvarint("code point")
		if err != nil {
			return err
		}
		if v > utf8.MaxRune || !utf8.ValidRune(rune(v)) {
			return corrupt(at, "invalid code point %#x", v)
		}
		cp := rune(v)
		if cp <= prev {
			return corrupt(at, "sibling %U not after %U", cp, prev)
		}
		prev = cp

		kids, err := d.uvarint("child count")
		if err != nil {
			return err
		}
		if kids > d.nodes-d.read {
			return corrupt(at, "node claims %d children, %d nodes left", kids, d.nodes-d.read)
		}
		ne, err := d.uvarint("element count")
		if err != nil {
			return err
		}
		if ne > uint64(len(d.cursor.b)-d.pos)/elemSize {
			return corrupt(d.off(), "truncated elements")
		}
		if ne == 0 && kids == 0 {
			return corrupt(at, "node %U has neither value nor children", cp)
		}

		d.key = append(d.key, cp)
		if ne > 0 {
			elems := make([]collate.Elem, ne)
			for j := range elems {
				if elems[j], err = d.elem(); err != nil {
					return err
				}
			}
			if err := d.builder.Insert(d.key, elems); err != nil {
				return corrupt(at, "%v", err)
			}
		}
		if err := d.children(kids, depth+1); err != nil {
			return err
		}
		d.key = d.key[:len(d.key)-1]
	}
	return nil
}

func (d *bodyDecoder) elem() (collate.Elem, error) {
	at := d.off()
	b, err := d.bytes(elemSize, "element")
	if err != nil {
		return collate.Elem{}, err
	}
	e := collate.Elem{
		Primary:    binary.LittleEndian.Uint32(b[0:]),
		Secondary:  binary.LittleEndian.Uint16(b[4:]),
		Tertiary:   binary.LittleEndian.Uint16(b[6:]),
		Quaternary: binary.LittleEndian.Uint16(b[8:]),
	}
	switch b[10] {
	case 0:
	case 1:
		e.Variable = true
		if e.Primary == 0 {
			return e, corrupt(at, "variable element without primary")
		}
		if d.leads.Primary(e.Primary) >= d.variableTop {
			return e, corrupt(at, "variable element %s at or above variable top %#x", e, d.variableTop)
		}
	default:
		return e, corrupt(at+10, "invalid element flags %#02x", b[10])
	}
	return e, nil
}
