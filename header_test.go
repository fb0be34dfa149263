package ustar

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/ustar/internal/testutil"
)

const (
	goodVisual = "somefile^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@000644 ^@000765 ^@000024 ^@00000000000 13124523641 013414^@ 0^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@ustar"
	badVisual  = "somefile^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@000644 ^@000765 ^@000024 ^@00000000000 13124523641 013414^@ 0^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@^@nope!"
)

func visualHeader(visual string) Header {
	b := Block(testutil.BlockFromVisual(visual))
	return NewHeader(&b)
}

func headerWith(fn func(b *Block)) Header {
	b := Block(testutil.HeaderBlock(testutil.TestEntry{Name: "somefile"}))
	fn(&b)
	return NewHeader(&b)
}

func TestHeader_HasMagic(t *testing.T) {
	t.Parallel()

	assert.True(t, visualHeader(goodVisual).HasMagic())
	assert.False(t, visualHeader(badVisual).HasMagic())

	tests := []struct {
		name  string
		magic string
		want  bool
	}{
		{name: "ustar", magic: "ustar\x00", want: true},
		{name: "gnu", magic: "ustar ", want: false},
		{name: "prefix only", magic: "ustarX", want: false},
		{name: "empty", magic: "\x00\x00\x00\x00\x00\x00", want: false},
		{name: "invalid utf-8", magic: "\xff\xfe\xfd\xfc\xfb\xfa", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := headerWith(func(b *Block) { copy(b[magicOff:magicOff+magicLen], tt.magic) })
			assert.Equal(t, tt.want, h.HasMagic())
		})
	}
}

func TestHasMagic_ShortInput(t *testing.T) {
	t.Parallel()

	full := testutil.HeaderBlock(testutil.TestEntry{Name: "a"})
	assert.True(t, HasMagic(full[:]))
	assert.False(t, HasMagic(full[:BlockSize-1]))
	assert.False(t, HasMagic(full[:263]))
	assert.False(t, HasMagic(nil))
}

func TestHeader_IsNull(t *testing.T) {
	t.Parallel()

	var zero Block
	assert.True(t, NewHeader(&zero).IsNull())
	assert.True(t, NewHeader(&zero).IsZero())

	assert.False(t, visualHeader(goodVisual).IsNull())

	onlyChecksumCleared := headerWith(func(b *Block) { b[checksumOff] = 0 })
	assert.True(t, onlyChecksumCleared.IsNull())
	assert.False(t, onlyChecksumCleared.IsZero())

	checksumTailSet := headerWith(func(b *Block) {
		clear(b[:])
		b[checksumOff+1] = '1'
	})
	assert.True(t, checksumTailSet.IsNull())
	assert.False(t, checksumTailSet.IsZero())
}

func TestHeader_Name(t *testing.T) {
	t.Parallel()

	t.Run("nul terminated", func(t *testing.T) {
		t.Parallel()

		name, err := visualHeader(goodVisual).Name()
		require.NoError(t, err)
		assert.Equal(t, "somefile", name)
	})

	t.Run("full width", func(t *testing.T) {
		t.Parallel()

		long := strings.Repeat("n", nameLen)
		h := headerWith(func(b *Block) { copy(b[:nameLen], long) })
		name, err := h.Name()
		require.NoError(t, err)
		assert.Equal(t, long, name)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		var zero Block
		name, err := NewHeader(&zero).Name()
		require.NoError(t, err)
		assert.Empty(t, name)
	})

	t.Run("invalid utf-8", func(t *testing.T) {
		t.Parallel()

		h := headerWith(func(b *Block) { copy(b[:], "bad\xff\xfename\x00") })
		_, err := h.Name()
		require.ErrorIs(t, err, ErrInvalidText)

		var fe *FieldError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "name", fe.Field)
		assert.Equal(t, nameOff, fe.Offset)
		assert.False(t, IsTerminal(err))
	})
}

func TestHeader_Size(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		field string
		want  int64
	}{
		{name: "zero", field: "00000000000\x00", want: 0},
		{name: "octal 13", field: "00000000013\x00", want: 0o13},
		{name: "decimal 13", field: "00000000015\x00", want: 13},
		{name: "one", field: "00000000001 ", want: 1},
		{name: "513", field: "00000001001\x00", want: 513},
		{name: "terminator ignored", field: "00000000010X", want: 8},
		{name: "max", field: "77777777777\x00", want: 1<<33 - 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := headerWith(func(b *Block) { copy(b[sizeOff:sizeOff+sizeLen], tt.field) })
			got, err := h.Size()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHeader_Size_InvalidDigit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		field  string
		offset int
		value  byte
	}{
		{name: "eight", field: "00000000080\x00", offset: sizeOff + 9, value: '8'},
		{name: "leading space", field: " 0000000001\x00", offset: sizeOff, value: ' '},
		{name: "nul", field: "0000\x000000000", offset: sizeOff + 4, value: 0},
		{name: "letter", field: "0000000000a\x00", offset: sizeOff + 10, value: 'a'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := headerWith(func(b *Block) { copy(b[sizeOff:sizeOff+sizeLen], tt.field) })
			_, err := h.Size()
			require.ErrorIs(t, err, ErrInvalidOctalDigit)

			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, "size", fe.Field)
			assert.Equal(t, tt.offset, fe.Offset)
			assert.Equal(t, tt.value, fe.Value)
			assert.Contains(t, fe.Error(), "size field")
		})
	}
}

func TestNumDataBlocks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		size int64
		want int64
	}{
		{size: -1, want: 0},
		{size: 0, want: 0},
		{size: 1, want: 1},
		{size: 511, want: 1},
		{size: 512, want: 1},
		{size: 513, want: 2},
		{size: 1024, want: 2},
		{size: 1<<33 - 1, want: 1 << 24},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NumDataBlocks(tt.size), "size %d", tt.size)
	}
}

func TestHeader_Metadata(t *testing.T) {
	t.Parallel()

	t.Run("visual fixture", func(t *testing.T) {
		t.Parallel()

		h := visualHeader(goodVisual)

		mode, err := h.Mode()
		require.NoError(t, err)
		assert.Equal(t, int64(0o644), mode)

		uid, err := h.UID()
		require.NoError(t, err)
		assert.Equal(t, int64(0o765), uid)

		gid, err := h.GID()
		require.NoError(t, err)
		assert.Equal(t, int64(0o24), gid)

		mtime, err := h.ModTime()
		require.NoError(t, err)
		assert.Equal(t, time.Unix(0o13124523641, 0), mtime)

		assert.Equal(t, byte('0'), h.Typeflag())
	})

	t.Run("built header", func(t *testing.T) {
		t.Parallel()

		modTime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		b := Block(testutil.HeaderBlock(testutil.TestEntry{
			Name:     "link",
			Mode:     0o755,
			UID:      1000,
			GID:      100,
			ModTime:  modTime,
			Typeflag: '2',
		}))
		copy(b[linknameOff:], "target/file")
		h := NewHeader(&b)

		mode, err := h.Mode()
		require.NoError(t, err)
		assert.Equal(t, int64(0o755), mode)

		uid, err := h.UID()
		require.NoError(t, err)
		assert.Equal(t, int64(1000), uid)

		gid, err := h.GID()
		require.NoError(t, err)
		assert.Equal(t, int64(100), gid)

		mtime, err := h.ModTime()
		require.NoError(t, err)
		assert.True(t, modTime.Equal(mtime))

		link, err := h.Linkname()
		require.NoError(t, err)
		assert.Equal(t, "target/file", link)

		assert.Equal(t, byte('2'), h.Typeflag())
		assert.Equal(t, "00", h.Version())
		assert.Same(t, &b, h.Block())
	})

	t.Run("invalid mode", func(t *testing.T) {
		t.Parallel()

		h := headerWith(func(b *Block) { copy(b[modeOff:modeOff+modeLen], "00064x \x00") })
		_, err := h.Mode()
		require.ErrorIs(t, err, ErrInvalidOctalDigit)

		var fe *FieldError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "mode", fe.Field)
		assert.Equal(t, modeOff+5, fe.Offset)
	})
}

func TestHeader_DoesNotMutateBlock(t *testing.T) {
	t.Parallel()

	b := Block(testutil.BlockFromVisual(goodVisual))
	before := b
	h := NewHeader(&b)

	_ = h.HasMagic()
	_ = h.IsNull()
	_, _ = h.Name()
	_, _ = h.Size()
	_, _ = h.Mode()

	assert.Equal(t, before, b)
}
