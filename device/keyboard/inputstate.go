// Package keyboard holds the wire format of a VIIPER virtual keyboard and
// the key code tables used by key-send actions.
package keyboard

import (
	"io"
)

// InputState is the set of held keys. The bitmap covers HID usages
// 0x00-0xFF so any number of keys may be held at once.
type InputState struct {
	Modifiers uint8
	KeyBitmap [32]uint8
}

// Press marks k held.
func (st *InputState) Press(k Key) {
	st.Modifiers |= k.Modifier
	if k.Usage != 0 {
		st.KeyBitmap[k.Usage/8] |= 1 << (k.Usage % 8)
	}
}

// Release marks k released.
func (st *InputState) Release(k Key) {
	st.Modifiers &^= k.Modifier
	if k.Usage != 0 {
		st.KeyBitmap[k.Usage/8] &^= 1 << (k.Usage % 8)
	}
}

// Held reports whether k is held.
func (st *InputState) Held(k Key) bool {
	if k.Modifier != 0 {
		return st.Modifiers&k.Modifier == k.Modifier
	}
	return k.Usage != 0 && st.KeyBitmap[k.Usage/8]&(1<<(k.Usage%8)) != 0
}

// Empty reports whether nothing is held.
func (st *InputState) Empty() bool {
	return st.Modifiers == 0 && st.KeyBitmap == [32]uint8{}
}

// MarshalBinary encodes the stream wire format:
//
//	Byte 0: Modifiers
//	Byte 1: Key count
//	Bytes 2+: HID usages of held keys
func (st *InputState) MarshalBinary() ([]byte, error) {
	b := make([]byte, 2, 2+8)
	b[0] = st.Modifiers
	for i := 0; i < 256; i++ {
		if st.KeyBitmap[i/8]&(1<<uint(i%8)) != 0 {
			b = append(b, uint8(i))
		}
	}
	b[1] = uint8(len(b) - 2)
	return b, nil
}

// UnmarshalBinary decodes the stream wire format.
func (st *InputState) UnmarshalBinary(data []byte) error {
	if len(data) < 2 {
		return io.ErrUnexpectedEOF
	}
	n := int(data[1])
	if len(data) < 2+n {
		return io.ErrUnexpectedEOF
	}
	st.Modifiers = data[0]
	st.KeyBitmap = [32]uint8{}
	for _, usage := range data[2 : 2+n] {
		st.KeyBitmap[usage/8] |= 1 << (usage % 8)
	}
	return nil
}
