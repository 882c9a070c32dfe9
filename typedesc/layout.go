package typedesc

// Info describes the computed memory layout of a record.
type Info struct {
	Size    int
	Align   int
	Offsets map[string]int
}

// Calculator computes C struct layouts for record descriptors. Results
// are cached by record type name because the generator asks for the
// same layouts repeatedly while emitting field accessors.
type Calculator struct {
	cache map[string]Info
}

func NewCalculator() *Calculator {
	return &Calculator{
		cache: make(map[string]Info),
	}
}

// Record computes the layout of the named record. Fields are laid out
// in order with C rules: each field aligned to its natural alignment,
// the final size rounded up to the largest field alignment.
func (c *Calculator) Record(name string, fields []Field) Info {
	if name != "" {
		if cached, ok := c.cache[name]; ok {
			return cached
		}
	}

	info := Info{
		Align:   1,
		Offsets: make(map[string]int, len(fields)),
	}

	off := 0
	for _, f := range fields {
		size, align := c.fieldLayout(f.Desc)
		off = alignTo(off, align)
		info.Offsets[f.Name] = off
		off += size
		if align > info.Align {
			info.Align = align
		}
	}
	info.Size = alignTo(off, info.Align)

	if name != "" {
		c.cache[name] = info
	}
	return info
}

// fieldLayout returns the size and alignment of a single field. Nested
// records are laid out inline; every pointer-like kind takes a pointer
// slot.
func (c *Calculator) fieldLayout(d Desc) (size, align int) {
	if d.Kind == KindRecord && len(d.Fields) > 0 {
		info := c.Record(d.TypeName, d.Fields)
		return info.Size, info.Align
	}
	n := d.Slot().Size()
	if n == 0 {
		return 0, 1
	}
	return n, n
}

func alignTo(off, align int) int {
	if align <= 1 {
		return off
	}
	return (off + align - 1) &^ (align - 1)
}
