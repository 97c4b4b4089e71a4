package keyboard

import "fmt"

// Key is either an ordinary HID usage or a modifier bit.
type Key struct {
	Usage    uint8
	Modifier uint8
}

func (k Key) String() string {
	if k.Modifier != 0 {
		if n, ok := modifierName[k.Modifier]; ok {
			return n
		}
		return fmt.Sprintf("Mod(0x%02x)", k.Modifier)
	}
	if n, ok := KeyName[k.Usage]; ok {
		return n
	}
	return fmt.Sprintf("Usage(0x%02x)", k.Usage)
}

var modifierName = map[uint8]string{
	ModLeftCtrl:   "LeftCtrl",
	ModLeftShift:  "LeftShift",
	ModLeftAlt:    "LeftAlt",
	ModLeftGUI:    "LeftGUI",
	ModRightCtrl:  "RightCtrl",
	ModRightShift: "RightShift",
	ModRightAlt:   "RightAlt",
	ModRightGUI:   "RightGUI",
}

// Windows virtual-key codes as used by action macros and key sends.
var vkKeys = map[uint16]Key{
	0x08: {Usage: KeyBackspace},
	0x09: {Usage: KeyTab},
	0x0D: {Usage: KeyEnter},
	0x10: {Modifier: ModLeftShift},
	0x11: {Modifier: ModLeftCtrl},
	0x12: {Modifier: ModLeftAlt},
	0x13: {Usage: KeyPause},
	0x14: {Usage: KeyCapsLock},
	0x1B: {Usage: KeyEscape},
	0x20: {Usage: KeySpace},
	0x21: {Usage: KeyPageUp},
	0x22: {Usage: KeyPageDown},
	0x23: {Usage: KeyEnd},
	0x24: {Usage: KeyHome},
	0x25: {Usage: KeyLeft},
	0x26: {Usage: KeyUp},
	0x27: {Usage: KeyRight},
	0x28: {Usage: KeyDown},
	0x2C: {Usage: KeyPrintScreen},
	0x2D: {Usage: KeyInsert},
	0x2E: {Usage: KeyDelete},
	0x5B: {Modifier: ModLeftGUI},
	0x5C: {Modifier: ModRightGUI},
	0x5D: {Usage: KeyApplication},
	0x6A: {Usage: KeyKpAsterisk},
	0x6B: {Usage: KeyKpPlus},
	0x6D: {Usage: KeyKpMinus},
	0x6E: {Usage: KeyKpDot},
	0x6F: {Usage: KeyKpSlash},
	0x90: {Usage: KeyNumLock},
	0x91: {Usage: KeyScrollLock},
	0xA0: {Modifier: ModLeftShift},
	0xA1: {Modifier: ModRightShift},
	0xA2: {Modifier: ModLeftCtrl},
	0xA3: {Modifier: ModRightCtrl},
	0xA4: {Modifier: ModLeftAlt},
	0xA5: {Modifier: ModRightAlt},
	0xAD: {Usage: KeyMute},
	0xAE: {Usage: KeyVolumeDown},
	0xAF: {Usage: KeyVolumeUp},
	0xB0: {Usage: KeyMediaNext},
	0xB1: {Usage: KeyMediaPrevious},
	0xB2: {Usage: KeyMediaStop},
	0xB3: {Usage: KeyMediaPlayPause},
	0xBA: {Usage: KeySemicolon},
	0xBB: {Usage: KeyEqual},
	0xBC: {Usage: KeyComma},
	0xBD: {Usage: KeyMinus},
	0xBE: {Usage: KeyPeriod},
	0xBF: {Usage: KeySlash},
	0xC0: {Usage: KeyGrave},
	0xDB: {Usage: KeyLeftBrace},
	0xDC: {Usage: KeyBackslash},
	0xDD: {Usage: KeyRightBrace},
	0xDE: {Usage: KeyApostrophe},
}

// FromVirtualKey maps a Windows virtual-key code to a keyboard key.
func FromVirtualKey(vk uint16) (Key, bool) {
	switch {
	case vk >= 0x30 && vk <= 0x39: // 0-9
		if vk == 0x30 {
			return Key{Usage: Key0}, true
		}
		return Key{Usage: Key1 + uint8(vk-0x31)}, true
	case vk >= 0x41 && vk <= 0x5A: // A-Z
		return Key{Usage: KeyA + uint8(vk-0x41)}, true
	case vk >= 0x60 && vk <= 0x69: // numpad 0-9
		if vk == 0x60 {
			return Key{Usage: KeyKp0}, true
		}
		return Key{Usage: KeyKp1 + uint8(vk-0x61)}, true
	case vk >= 0x70 && vk <= 0x7B: // F1-F12
		return Key{Usage: KeyF1 + uint8(vk-0x70)}, true
	case vk >= 0x7C && vk <= 0x87: // F13-F24
		return Key{Usage: KeyF13 + uint8(vk-0x7C)}, true
	}
	k, ok := vkKeys[vk]
	return k, ok
}
