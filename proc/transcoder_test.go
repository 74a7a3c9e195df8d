package proc

import (
	"encoding/binary"
	"testing"
)

func TestScalePCM(t *testing.T) {
	tests := []struct {
		name string
		in   int16
		vol  int
		want int16
	}{
		{"unity", 1000, 100, 1000},
		{"half", 1000, 50, 500},
		{"negative half", -1000, 50, -500},
		{"mute", 12345, 0, 0},
		{"boost", 1000, 150, 1500},
		{"clip high", 30000, 200, 32767},
		{"clip low", -30000, 200, -32768},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, 2)
			binary.LittleEndian.PutUint16(buf, uint16(tt.in))
			ScalePCM(buf, tt.vol)
			if got := int16(binary.LittleEndian.Uint16(buf)); got != tt.want {
				t.Errorf("ScalePCM(%d, %d) = %d, want %d", tt.in, tt.vol, got, tt.want)
			}
		})
	}
}

func TestScalePCMIgnoresTrailingByte(t *testing.T) {
	buf := []byte{0x10, 0x00, 0x7f}
	ScalePCM(buf, 50)
	if buf[0] != 0x08 || buf[1] != 0x00 || buf[2] != 0x7f {
		t.Fatalf("ScalePCM touched the odd byte: % x", buf)
	}
}
