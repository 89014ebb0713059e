package utils

import (
	"testing"
)

func TestSupportAudioExt(t *testing.T) {
	tests := []struct {
		ext  string
		want bool
	}{
		{ext: ".wav", want: true},
		{ext: ".mp3", want: true},
		{ext: ".m4a", want: true},
		{ext: ".ogg", want: true},
		{ext: ".flac", want: true},
		{ext: ".WAV", want: true},
		{ext: ".Mp3", want: true},
		{ext: ".mp4", want: false},
		{ext: ".webm", want: false},
		{ext: ".zip", want: false},
		{ext: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			if got := SupportAudioExt(tt.ext); got != tt.want {
				t.Errorf("SupportAudioExt() = %v, want %v", got, tt.want)
			}
		})
	}
}
