package procfs

import (
	"fmt"
)

type Address = uint64

// Device identifies the block device backing a mapping.
type Device struct {
	Maj uint32
	Min uint32
}

// Mapping is one line of /proc/<pid>/maps: a contiguous range of the
// process's virtual address space together with its backing file, if any.
type Mapping struct {
	// First address covered by the mapping.
	Begin Address
	// One-past-the-end address covered by the mapping.
	End Address
	// Access permissions of the mapping.
	Permissions MappingPermissions
	// Device of the backing file, zero for anonymous and virtual mappings.
	Device Device
	// Inode of the backing file, zero for anonymous and virtual mappings.
	Inode uint64
	// Offset from the beginning of the backing file to the mapping start.
	Offset int64
	// Path of the backing file. Virtual mappings carry bracketed
	// pseudo-names like [vdso] or [heap]. May be empty.
	Path string
}

// Region is a mapping reduced to the byte range it occupies.
type Region struct {
	Begin  Address
	Length uint64
}

// Region returns the byte range covered by the mapping.
// Length is positive for any successfully parsed mapping.
func (m *Mapping) Region() Region {
	return Region{Begin: m.Begin, Length: m.End - m.Begin}
}

type MappingPermissions int

const (
	MappingPermissionNone       MappingPermissions = 0b00000000
	MappingPermissionPrivate    MappingPermissions = 0b00000001
	MappingPermissionShared     MappingPermissions = 0b00000010
	MappingPermissionExecutable MappingPermissions = 0b00000100
	MappingPermissionWriteable  MappingPermissions = 0b00001000
	MappingPermissionReadable   MappingPermissions = 0b00010000
)

// String renders the permissions in maps file notation, e.g. "r-xp".
func (p MappingPermissions) String() string {
	buf := []byte("----")
	if p&MappingPermissionReadable != 0 {
		buf[0] = 'r'
	}
	if p&MappingPermissionWriteable != 0 {
		buf[1] = 'w'
	}
	if p&MappingPermissionExecutable != 0 {
		buf[2] = 'x'
	}
	if p&MappingPermissionShared != 0 {
		buf[3] = 's'
	} else {
		buf[3] = 'p'
	}
	return string(buf)
}

// parseHex consumes a run of lowercase hex digits from the head of b.
// Returns the parsed value and the unconsumed tail. Scanning and conversion
// happen in one pass to avoid allocating intermediate strings.
func parseHex(b []byte) (uint64, []byte, bool) {
	var v uint64
	i := 0
	for ; i < len(b); i++ {
		c := b[i]
		switch {
		case '0' <= c && c <= '9':
			v = v*16 + uint64(c-'0')
		case 'a' <= c && c <= 'f':
			v = v*16 + uint64(c-'a') + 10
		default:
			return v, b[i:], i > 0
		}
	}
	return v, nil, i > 0
}

// parseDec consumes a run of decimal digits from the head of b.
func parseDec(b []byte) (uint64, []byte, bool) {
	var v uint64
	i := 0
	for ; i < len(b); i++ {
		c := b[i]
		if c < '0' || c > '9' {
			return v, b[i:], i > 0
		}
		v = v*10 + uint64(c-'0')
	}
	return v, nil, i > 0
}

// skip consumes a single expected delimiter byte.
func skip(b []byte, c byte) ([]byte, bool) {
	if len(b) == 0 || b[0] != c {
		return b, false
	}
	return b[1:], true
}

func parsePermissions(b []byte) (MappingPermissions, bool) {
	if len(b) < 4 {
		return MappingPermissionNone, false
	}
	p := MappingPermissionNone
	if b[0] == 'r' {
		p |= MappingPermissionReadable
	}
	if b[1] == 'w' {
		p |= MappingPermissionWriteable
	}
	if b[2] == 'x' {
		p |= MappingPermissionExecutable
	}
	if b[3] == 's' {
		p |= MappingPermissionShared
	} else {
		p |= MappingPermissionPrivate
	}
	return p, true
}

// ParseMapping parses one maps line of the form
//
//	<begin_hex>-<end_hex> <perms> <offset> <maj>:<min> <inode> [path]
//
// into m. The path field is optional and may contain spaces; everything
// after the inode column, stripped of leading padding, is taken verbatim.
func ParseMapping(m *Mapping, line []byte) error {
	fail := func(what string) error {
		return fmt.Errorf("malformed maps line %q: bad %s", string(line), what)
	}

	var ok bool
	rest := line

	if m.Begin, rest, ok = parseHex(rest); !ok {
		return fail("begin address")
	}
	if rest, ok = skip(rest, '-'); !ok {
		return fail("address separator")
	}
	if m.End, rest, ok = parseHex(rest); !ok {
		return fail("end address")
	}
	if m.Begin >= m.End {
		return fail("address range")
	}
	if rest, ok = skip(rest, ' '); !ok {
		return fail("address field")
	}

	if m.Permissions, ok = parsePermissions(rest); !ok {
		return fail("permissions")
	}
	rest = rest[4:]
	if rest, ok = skip(rest, ' '); !ok {
		return fail("permissions field")
	}

	var offset uint64
	if offset, rest, ok = parseHex(rest); !ok {
		return fail("offset")
	}
	m.Offset = int64(offset)
	if rest, ok = skip(rest, ' '); !ok {
		return fail("offset field")
	}

	var maj, min uint64
	if maj, rest, ok = parseHex(rest); !ok {
		return fail("device major")
	}
	if rest, ok = skip(rest, ':'); !ok {
		return fail("device separator")
	}
	if min, rest, ok = parseHex(rest); !ok {
		return fail("device minor")
	}
	m.Device = Device{Maj: uint32(maj), Min: uint32(min)}
	if rest, ok = skip(rest, ' '); !ok {
		return fail("device field")
	}

	if m.Inode, rest, ok = parseDec(rest); !ok {
		return fail("inode")
	}
	if len(rest) > 0 && rest[0] != ' ' {
		return fail("inode field")
	}

	m.Path = ""
	for len(rest) > 0 && rest[0] == ' ' {
		rest = rest[1:]
	}
	if len(rest) > 0 {
		m.Path = string(rest)
	}
	return nil
}
