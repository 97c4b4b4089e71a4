package keyboard_test

import (
	"testing"

	"github.com/Alia5/padbridge/device/keyboard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromVirtualKey(t *testing.T) {
	tests := []struct {
		vk   uint16
		want keyboard.Key
		name string
	}{
		{vk: 0x41, want: keyboard.Key{Usage: keyboard.KeyA}, name: "A"},
		{vk: 0x5A, want: keyboard.Key{Usage: keyboard.KeyZ}, name: "Z"},
		{vk: 0x30, want: keyboard.Key{Usage: keyboard.Key0}, name: "0"},
		{vk: 0x31, want: keyboard.Key{Usage: keyboard.Key1}, name: "1"},
		{vk: 0x60, want: keyboard.Key{Usage: keyboard.KeyKp0}, name: "Kp0"},
		{vk: 0x69, want: keyboard.Key{Usage: keyboard.KeyKp9}, name: "Kp9"},
		{vk: 0x70, want: keyboard.Key{Usage: keyboard.KeyF1}, name: "F1"},
		{vk: 0x7B, want: keyboard.Key{Usage: keyboard.KeyF12}, name: "F12"},
		{vk: 0x7C, want: keyboard.Key{Usage: keyboard.KeyF13}, name: "F13"},
		{vk: 27, want: keyboard.Key{Usage: keyboard.KeyEscape}, name: "Escape"},
		{vk: 44, want: keyboard.Key{Usage: keyboard.KeyPrintScreen}, name: "PrintScreen"},
		{vk: 36, want: keyboard.Key{Usage: keyboard.KeyHome}, name: "Home"},
		{vk: 160, want: keyboard.Key{Modifier: keyboard.ModLeftShift}, name: "LeftShift"},
		{vk: 162, want: keyboard.Key{Modifier: keyboard.ModLeftCtrl}, name: "LeftCtrl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := keyboard.FromVirtualKey(tt.vk)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.name, got.String())
		})
	}

	_, ok := keyboard.FromVirtualKey(0x01)
	assert.False(t, ok)
	_, ok = keyboard.FromVirtualKey(272)
	assert.False(t, ok)
}

func TestInputStatePressRelease(t *testing.T) {
	var st keyboard.InputState
	ctrl := keyboard.Key{Modifier: keyboard.ModLeftCtrl}
	c := keyboard.Key{Usage: keyboard.KeyC}

	assert.True(t, st.Empty())
	st.Press(ctrl)
	st.Press(c)
	assert.True(t, st.Held(ctrl))
	assert.True(t, st.Held(c))

	b, err := st.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{keyboard.ModLeftCtrl, 1, keyboard.KeyC}, b)

	var decoded keyboard.InputState
	require.NoError(t, decoded.UnmarshalBinary(b))
	assert.Equal(t, st, decoded)

	st.Release(c)
	st.Release(ctrl)
	assert.True(t, st.Empty())
}

func TestUnmarshalShort(t *testing.T) {
	var st keyboard.InputState
	assert.Error(t, st.UnmarshalBinary([]byte{0}))
	assert.Error(t, st.UnmarshalBinary([]byte{0, 2, keyboard.KeyA}))
}

func TestKeyNamesCoverVirtualKeys(t *testing.T) {
	for vk := uint16(0); vk < 0x100; vk++ {
		k, ok := keyboard.FromVirtualKey(vk)
		if !ok || k.Modifier != 0 {
			continue
		}
		_, named := keyboard.KeyName[k.Usage]
		assert.True(t, named, "vk 0x%02x usage 0x%02x", vk, k.Usage)
	}
	assert.Equal(t, "F24", keyboard.KeyName[keyboard.KeyF13+11])
	assert.Equal(t, "9", keyboard.KeyName[keyboard.Key1+8])
}
