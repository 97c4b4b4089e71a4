package actions_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Alia5/padbridge/actions"
	"github.com/Alia5/padbridge/pad"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMacro(t *testing.T) {
	steps, err := actions.ParseMacro("272/400/65/65/301")
	require.NoError(t, err)
	require.Len(t, steps, 5)

	assert.False(t, steps[0].Supported)
	assert.Equal(t, 100*time.Millisecond, steps[1].Wait)
	assert.True(t, steps[2].Supported)
	assert.Equal(t, "A", steps[2].Key.String())
	assert.Equal(t, time.Millisecond, steps[4].Wait)

	_, err = actions.ParseMacro("65/abc")
	assert.ErrorIs(t, err, actions.ErrInvalidAction)
	_, err = actions.ParseMacro(" / ")
	assert.ErrorIs(t, err, actions.ErrInvalidAction)
}

func TestRunMacroReleasesHeldKeys(t *testing.T) {
	steps, err := actions.ParseMacro("162/65")
	require.NoError(t, err)
	keys := &fakeKeys{}
	require.NoError(t, actions.RunMacro(context.Background(), keys, steps))
	assert.Equal(t, []string{"+LeftCtrl", "+A", "-A", "-LeftCtrl"}, keys.Events())
}

func TestRunMacroCancelled(t *testing.T) {
	steps, err := actions.ParseMacro("65/1300/65")
	require.NoError(t, err)
	keys := &fakeKeys{}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = actions.RunMacro(ctx, keys, steps)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{"+A", "-A"}, keys.Events())
}

func TestRunMacroKeyFailure(t *testing.T) {
	steps, err := actions.ParseMacro("65")
	require.NoError(t, err)
	keys := &fakeKeys{fail: errors.New("stream closed")}
	assert.Error(t, actions.RunMacro(context.Background(), keys, steps))
}

func TestSendKey(t *testing.T) {
	keys := &fakeKeys{}
	require.NoError(t, actions.SendKey(keys, " 27 "))
	assert.Equal(t, []string{"+Escape", "-Escape"}, keys.Events())

	assert.ErrorIs(t, actions.SendKey(keys, "x"), actions.ErrInvalidAction)
	assert.ErrorIs(t, actions.SendKey(keys, "1"), actions.ErrInvalidAction)
}

func TestParseBattery(t *testing.T) {
	b, err := actions.ParseBattery("")
	require.NoError(t, err)
	assert.Equal(t, actions.DefaultBatterySettings, b)

	b, err = actions.ParseBattery("|False|True|0|0|255|255|255|255")
	require.NoError(t, err)
	assert.False(t, b.Notify)
	assert.True(t, b.Light)
	assert.Equal(t, pad.Color{B: 255}, b.Color(0))
	assert.Equal(t, pad.Color{R: 255, G: 255, B: 255}, b.Color(100))

	_, err = actions.ParseBattery("|True|True|1|2")
	assert.ErrorIs(t, err, actions.ErrInvalidAction)
	_, err = actions.ParseBattery("|maybe|True|0|0|0|0|0|0")
	assert.ErrorIs(t, err, actions.ErrInvalidAction)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		kind    actions.Kind
		details string
		wantErr bool
	}{
		{name: "macro", kind: actions.KindMacro, details: "162/160/36/36/160/162"},
		{name: "bad macro", kind: actions.KindMacro, details: "", wantErr: true},
		{name: "multi", kind: actions.KindMultiAction, details: "272/400/272,,"},
		{name: "key", kind: actions.KindSendKey, details: "27"},
		{name: "wait is no key", kind: actions.KindSendKey, details: "400", wantErr: true},
		{name: "program", kind: actions.KindLaunchProgram, details: `C:\Windows\System32\notepad.exe`},
		{name: "profile without name", kind: actions.KindLoadProfile, wantErr: true},
		{name: "battery", kind: actions.KindBatteryCheck, details: "|True|True|255|0|0|0|255|0"},
		{name: "disconnect", kind: actions.KindDisconnect, details: "0"},
		{name: "calibration", kind: actions.KindCalibration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := actions.Validate(actions.Descriptor{Name: tt.name, Kind: tt.kind, Details: tt.details})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
