package frame

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFrame(color bool) *AsciiFrame {
	f := NewAsciiFrame(2, 3, color)
	copy(f.Chars, []rune(" .#░▒█"))
	if color {
		for i := range f.Colors {
			f.Colors[i] = RGB{uint8(i * 40), uint8(255 - i), 7}
		}
	}
	return f
}

func TestRawFrameValidate(t *testing.T) {
	tests := []struct {
		name  string
		frame *RawFrame
		ok    bool
	}{
		{"valid", &RawFrame{Index: 3, Width: 2, Height: 1, Pix: make([]byte, 6)}, true},
		{"zero width", &RawFrame{Index: 4, Width: 0, Height: 1}, false},
		{"zero height", &RawFrame{Index: 5, Width: 2, Height: 0}, false},
		{"short buffer", &RawFrame{Index: 6, Width: 2, Height: 2, Pix: make([]byte, 11)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.frame.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidFrame)
			idx, ok := FailedIndex(err)
			require.True(t, ok)
			assert.Equal(t, tt.frame.Index, idx)
		})
	}
}

func TestAtIndexKeepsFirstIndex(t *testing.T) {
	err := AtIndex(7, fmt.Errorf("%w: boom", ErrConversion))
	err = AtIndex(9, fmt.Errorf("wrapped: %w", err))
	idx, ok := FailedIndex(err)
	require.True(t, ok)
	assert.Equal(t, 7, idx)
	assert.True(t, errors.Is(err, ErrConversion))
	assert.NoError(t, AtIndex(1, nil))
}

func TestTextPlain(t *testing.T) {
	f := sampleFrame(false)
	assert.Equal(t, " .#\n░▒█", f.Text())
	assert.Equal(t, []string{" .#", "░▒█"}, f.Lines())
}

func TestTextColor(t *testing.T) {
	f := NewAsciiFrame(1, 2, true)
	f.Chars[0], f.Chars[1] = 'a', 'b'
	f.Colors[0] = RGB{1, 2, 3}
	f.Colors[1] = RGB{255, 0, 128}
	want := "\x1b[38;2;1;2;3ma\x1b[0m\x1b[38;2;255;0;128mb\x1b[0m"
	assert.Equal(t, want, f.Text())
}

func TestBinaryRoundTrip(t *testing.T) {
	for _, color := range []bool{false, true} {
		t.Run(fmt.Sprintf("color=%v", color), func(t *testing.T) {
			f := sampleFrame(color)
			data, err := f.MarshalBinary()
			require.NoError(t, err)

			var got AsciiFrame
			require.NoError(t, got.UnmarshalBinary(data))
			assert.True(t, f.Equal(&got))
			assert.Equal(t, f.Text(), got.Text())
		})
	}
}

func TestUnmarshalRejectsCorruptData(t *testing.T) {
	data, err := sampleFrame(true).MarshalBinary()
	require.NoError(t, err)

	var f AsciiFrame
	assert.Error(t, f.UnmarshalBinary(data[:len(data)-1]))
	assert.Error(t, f.UnmarshalBinary([]byte("nope")))

	bad := append([]byte(nil), data...)
	bad[3] = 99
	assert.Error(t, f.UnmarshalBinary(bad))
}

func TestSequence(t *testing.T) {
	s := Sequence{sampleFrame(false), sampleFrame(true)}
	assert.Equal(t, 2, s.Len())
	f, err := s.Frame(1)
	require.NoError(t, err)
	assert.True(t, f.HasColor())
	_, err = s.Frame(2)
	assert.Error(t, err)
}

func TestSchemeApply(t *testing.T) {
	s := Scheme{Tint: RGB{100, 200, 0}, Blend: 0.5}
	assert.Equal(t, RGB{50, 100, 0}, s.Apply(RGB{}))
	assert.Equal(t, RGB{177, 227, 127}, s.Apply(RGB{255, 255, 255}))
	assert.Equal(t, RGB{10, 20, 30}, Scheme{Blend: 0}.Apply(RGB{10, 20, 30}))

	crt, ok := LookupScheme("crt")
	require.True(t, ok)
	assert.Equal(t, "#33ff33", crt.Tint.Hex())
	_, ok = LookupScheme("amber")
	assert.False(t, ok)
}
