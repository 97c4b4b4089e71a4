package keyboard

import "strconv"

// Modifier bits of the first wire byte.
const (
	ModLeftCtrl   = 0x01
	ModLeftShift  = 0x02
	ModLeftAlt    = 0x04
	ModLeftGUI    = 0x08
	ModRightCtrl  = 0x10
	ModRightShift = 0x20
	ModRightAlt   = 0x40
	ModRightGUI   = 0x80
)

// HID keyboard usages reachable from virtual-key codes. Letters, digits,
// keypad digits and F keys are contiguous runs starting at the named usage.
const (
	KeyA = 0x04
	KeyC = KeyA + 2
	KeyZ = KeyA + 25
	Key1 = 0x1E
	Key0 = 0x27

	KeyEnter      = 0x28
	KeyEscape     = 0x29
	KeyBackspace  = 0x2A
	KeyTab        = 0x2B
	KeySpace      = 0x2C
	KeyMinus      = 0x2D
	KeyEqual      = 0x2E
	KeyLeftBrace  = 0x2F
	KeyRightBrace = 0x30
	KeyBackslash  = 0x31
	KeySemicolon  = 0x33
	KeyApostrophe = 0x34
	KeyGrave      = 0x35
	KeyComma      = 0x36
	KeyPeriod     = 0x37
	KeySlash      = 0x38
	KeyCapsLock   = 0x39

	KeyF1  = 0x3A
	KeyF12 = KeyF1 + 11

	KeyPrintScreen = 0x46
	KeyScrollLock  = 0x47
	KeyPause       = 0x48
	KeyInsert      = 0x49
	KeyHome        = 0x4A
	KeyPageUp      = 0x4B
	KeyDelete      = 0x4C
	KeyEnd         = 0x4D
	KeyPageDown    = 0x4E
	KeyRight       = 0x4F
	KeyLeft        = 0x50
	KeyDown        = 0x51
	KeyUp          = 0x52

	KeyNumLock    = 0x53
	KeyKpSlash    = 0x54
	KeyKpAsterisk = 0x55
	KeyKpMinus    = 0x56
	KeyKpPlus     = 0x57
	KeyKp1        = 0x59
	KeyKp9        = KeyKp1 + 8
	KeyKp0        = 0x62
	KeyKpDot      = 0x63

	KeyApplication = 0x65
	KeyF13         = 0x68
	KeyMute        = 0x7F
	KeyVolumeUp    = 0x80
	KeyVolumeDown  = 0x81

	KeyMediaPlayPause = 0xE8
	KeyMediaStop      = 0xE9
	KeyMediaNext      = 0xEB
	KeyMediaPrevious  = 0xEC
)

// KeyName maps the usages above to display names.
var KeyName = func() map[uint8]string {
	m := map[uint8]string{
		Key0:   "0",
		KeyKp0: "Kp0",

		KeyEnter:      "Enter",
		KeyEscape:     "Escape",
		KeyBackspace:  "Backspace",
		KeyTab:        "Tab",
		KeySpace:      "Space",
		KeyMinus:      "Minus",
		KeyEqual:      "Equal",
		KeyLeftBrace:  "LeftBrace",
		KeyRightBrace: "RightBrace",
		KeyBackslash:  "Backslash",
		KeySemicolon:  "Semicolon",
		KeyApostrophe: "Apostrophe",
		KeyGrave:      "Grave",
		KeyComma:      "Comma",
		KeyPeriod:     "Period",
		KeySlash:      "Slash",
		KeyCapsLock:   "CapsLock",

		KeyPrintScreen: "PrintScreen",
		KeyScrollLock:  "ScrollLock",
		KeyPause:       "Pause",
		KeyInsert:      "Insert",
		KeyHome:        "Home",
		KeyPageUp:      "PageUp",
		KeyDelete:      "Delete",
		KeyEnd:         "End",
		KeyPageDown:    "PageDown",
		KeyRight:       "Right",
		KeyLeft:        "Left",
		KeyDown:        "Down",
		KeyUp:          "Up",

		KeyNumLock:    "NumLock",
		KeyKpSlash:    "Kp/",
		KeyKpAsterisk: "Kp*",
		KeyKpMinus:    "Kp-",
		KeyKpPlus:     "Kp+",
		KeyKpDot:      "Kp.",

		KeyApplication:    "Application",
		KeyMute:           "Mute",
		KeyVolumeUp:       "VolumeUp",
		KeyVolumeDown:     "VolumeDown",
		KeyMediaPlayPause: "MediaPlayPause",
		KeyMediaStop:      "MediaStop",
		KeyMediaNext:      "MediaNext",
		KeyMediaPrevious:  "MediaPrevious",
	}
	for i := 0; i < 26; i++ {
		m[KeyA+uint8(i)] = string(rune('A' + i))
	}
	for i := 1; i <= 9; i++ {
		m[Key1+uint8(i-1)] = strconv.Itoa(i)
		m[KeyKp1+uint8(i-1)] = "Kp" + strconv.Itoa(i)
	}
	for i := 1; i <= 12; i++ {
		m[KeyF1+uint8(i-1)] = "F" + strconv.Itoa(i)
		m[KeyF13+uint8(i-1)] = "F" + strconv.Itoa(12+i)
	}
	return m
}()
