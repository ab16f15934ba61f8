package procfs

import (
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

////////////////////////////////////////////////////////////////////////////////

type mapfsBuilder struct {
	fs fstest.MapFS
}

func mfs() *mapfsBuilder {
	return &mapfsBuilder{make(fstest.MapFS)}
}

func (m *mapfsBuilder) add(path string, body []byte) *mapfsBuilder {
	m.fs[path] = &fstest.MapFile{Mode: 0o444, Data: body}
	return m
}

func (m *mapfsBuilder) done() fs.FS {
	return m.fs
}

const selfMaps = `563257d8f000-563257d91000 r--p 00000000 fd:01 1649                       /usr/bin/cat
563259694000-5632596b5000 rw-p 00000000 00:00 0                          [heap]
7f0aec0be000-7f0aec0e1000 r-xp 00001000 fd:01 2825                       /usr/lib/x86_64-linux-gnu/ld-2.31.so
7ffe14b51000-7ffe14b52000 r-xp 00000000 00:00 0                          [vdso]
ffffffffff600000-ffffffffff601000 --xp 00000000 00:00 0                  [vsyscall]
`

////////////////////////////////////////////////////////////////////////////////

func TestListMappings(t *testing.T) {
	fsys := mfs().add("self/maps", []byte(selfMaps)).done()

	var paths []string
	err := NewFS(fsys).Self().ListMappings(func(m *Mapping) error {
		paths = append(paths, m.Path)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{
		"/usr/bin/cat",
		"[heap]",
		"/usr/lib/x86_64-linux-gnu/ld-2.31.so",
		"[vdso]",
		"[vsyscall]",
	}, paths)
}

func TestListMappingsCallbackError(t *testing.T) {
	fsys := mfs().add("self/maps", []byte(selfMaps)).done()

	boom := errors.New("boom")
	calls := 0
	err := NewFS(fsys).Self().ListMappings(func(m *Mapping) error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls)
}

func TestFindMapping(t *testing.T) {
	for _, test := range []struct {
		name   string
		maps   string
		substr string
		error  error
		begin  Address
		length uint64
	}{
		{
			name:   "vdso",
			maps:   selfMaps,
			substr: "vdso",
			begin:  0x7ffe14b51000,
			length: 0x1000,
		},
		{
			name:   "single_vdso_line",
			maps:   "7f1a2b3c4000-7f1a2b3c6000 r-xp 00000000 00:00 0 [vdso]\n",
			substr: "vdso",
			begin:  0x7f1a2b3c4000,
			length: 0x2000,
		},
		{
			name: "first_occurrence_wins",
			maps: "7f0000000000-7f0000001000 r--p 00000000 00:00 0 /lib/libc.so\n" +
				"7f0000002000-7f0000004000 r-xp 00000000 00:00 0 /lib/libc.so\n",
			substr: "libc",
			begin:  0x7f0000000000,
			length: 0x1000,
		},
		{
			name:   "no_match",
			maps:   "563259694000-5632596b5000 rw-p 00000000 00:00 0 [heap]\n",
			substr: "vdso",
			error:  ErrNoSuchMapping,
		},
		{
			name:   "empty_maps",
			maps:   "",
			substr: "vdso",
			error:  ErrNoSuchMapping,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			fsys := mfs().add("self/maps", []byte(test.maps)).done()

			m, err := NewFS(fsys).Self().FindMapping(test.substr)
			if test.error != nil {
				require.ErrorIs(t, err, test.error)
				return
			}

			require.NoError(t, err)
			require.Equal(t, Region{Begin: test.begin, Length: test.length}, m.Region())
		})
	}
}

func TestFindMappingEmptySubstring(t *testing.T) {
	fsys := mfs().add("self/maps", []byte(selfMaps)).done()

	_, err := NewFS(fsys).Self().FindMapping("")
	require.ErrorContains(t, err, "empty mapping label substring")
}

func TestFindMappingNoProcess(t *testing.T) {
	_, err := NewFS(mfs().done()).Process(1234).FindMapping("vdso")
	require.ErrorIs(t, err, ErrNoSuchProcess)
}

////////////////////////////////////////////////////////////////////////////////

func syntheticImage(size int) []byte {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = byte(i * 31)
	}
	return buf
}

func TestReadMemory(t *testing.T) {
	image := syntheticImage(0x4000)
	fsys := mfs().add("1234/mem", image).done()

	region := Region{Begin: 0x1000, Length: 0x2000}
	buf, err := NewFS(fsys).Process(1234).ReadMemory(region)
	require.NoError(t, err)
	require.Len(t, buf, 0x2000)
	require.Equal(t, image[0x1000:0x3000], buf)
}

func TestReadMemoryPartial(t *testing.T) {
	// The image ends mid-region, as if the mapping shrank after location.
	fsys := mfs().add("1234/mem", syntheticImage(0x1800)).done()

	_, err := NewFS(fsys).Process(1234).ReadMemory(Region{Begin: 0x1000, Length: 0x2000})
	require.ErrorIs(t, err, ErrPartialRead)
}

func TestReadMemoryBeyondImage(t *testing.T) {
	fsys := mfs().add("1234/mem", syntheticImage(0x1000)).done()

	_, err := NewFS(fsys).Process(1234).ReadMemory(Region{Begin: 0x1000, Length: 0x1000})
	require.ErrorIs(t, err, ErrPartialRead)
}

func TestReadMemoryNoProcess(t *testing.T) {
	_, err := NewFS(mfs().done()).Process(1234).ReadMemory(Region{Begin: 0, Length: 0x1000})
	require.ErrorIs(t, err, ErrNoSuchProcess)
}
