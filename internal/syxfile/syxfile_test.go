package syxfile

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	globalRequest   = []byte{0xF0, 0x3E, 0x13, 0x00, 0x04, 0xF7}
	identityRequest = []byte{0xF0, 0x7E, 0x7F, 0x06, 0x01, 0xF7}
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want [][]byte
	}{
		{"empty", nil, nil},
		{"single", globalRequest, [][]byte{globalRequest}},
		{"concatenated", append(append([]byte{}, globalRequest...), identityRequest...), [][]byte{globalRequest, identityRequest}},
		{"noise between frames", append(append([]byte{0x90, 0x40}, globalRequest...), 0x00), [][]byte{globalRequest}},
		{"truncated tail", append(append([]byte{}, globalRequest...), 0xF0, 0x3E), [][]byte{globalRequest}},
		{"restarted frame", append([]byte{0xF0, 0x01}, identityRequest...), [][]byte{identityRequest}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.data))
		})
	}
}

func TestReadSyxEmpty(t *testing.T) {
	_, err := ReadSyx(bytes.NewReader([]byte{0x01, 0x02}))
	assert.ErrorIs(t, err, ErrNoFrames)
}

// smfWithSysEx is a format 0 file: two SysEx events around a note on.
func smfWithSysEx() []byte {
	track := []byte{
		0x00, 0xF0, 0x05, 0x3E, 0x13, 0x00, 0x04, 0xF7,
		0x00, 0x90, 0x40, 0x64,
		0x00, 0xF0, 0x05, 0x7E, 0x7F, 0x06, 0x01, 0xF7,
		0x00, 0xFF, 0x2F, 0x00,
	}
	var b bytes.Buffer
	b.WriteString("MThd")
	b.Write([]byte{0, 0, 0, 6, 0, 0, 0, 1, 0, 0x60})
	b.WriteString("MTrk")
	b.Write([]byte{0, 0, 0, byte(len(track))})
	b.Write(track)
	return b.Bytes()
}

func TestReadSMF(t *testing.T) {
	frames, err := ReadSMF(bytes.NewReader(smfWithSysEx()))
	require.NoError(t, err)
	assert.Equal(t, [][]byte{globalRequest, identityRequest}, frames)
}

func TestSysexFrame(t *testing.T) {
	got, ok := sysexFrame([]byte{0xF0, 0x3E, 0x13, 0x00, 0x04})
	require.True(t, ok)
	assert.Equal(t, globalRequest, got)

	_, ok = sysexFrame([]byte{0x90, 0x40, 0x64})
	assert.False(t, ok)
}

func TestReadFileDetectsFormat(t *testing.T) {
	dir := t.TempDir()

	mid := filepath.Join(dir, "dump.mid")
	require.NoError(t, os.WriteFile(mid, smfWithSysEx(), 0o644))
	frames, err := ReadFile(mid)
	require.NoError(t, err)
	assert.Len(t, frames, 2)

	syx := filepath.Join(dir, "dump.syx")
	require.NoError(t, WriteFile(syx, [][]byte{identityRequest, globalRequest}))
	frames, err = ReadFile(syx)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{identityRequest, globalRequest}, frames)

	_, err = ReadFile(filepath.Join(dir, "missing.syx"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteSyxRejectsUndelimited(t *testing.T) {
	var b bytes.Buffer
	err := WriteSyx(&b, [][]byte{globalRequest, {0x90, 0x40, 0x64}})
	assert.Error(t, err)
}
