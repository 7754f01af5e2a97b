package audioformat

import "testing"

func TestResolve_KnownFormats(t *testing.T) {
	tests := []struct {
		format     string
		sampleRate int
		want       Spec
	}{
		{"wav", 0, Spec{EncodingLinear16, 16000}},
		{"wav", 8000, Spec{EncodingLinear16, 8000}},
		{"audio/mp3", 0, Spec{EncodingMP3, 16000}},
		{"FLAC", 44100, Spec{EncodingFLAC, 44100}},
		{"webm", 0, Spec{EncodingWebmOpus, 48000}},
		{"ogg", 0, Spec{EncodingOggOpus, 48000}},
		{"amr", 0, Spec{EncodingAMR, 8000}},
	}

	for _, tt := range tests {
		got := Resolve(tt.format, tt.sampleRate)
		if got != tt.want {
			t.Errorf("Resolve(%q, %d) = %+v, want %+v", tt.format, tt.sampleRate, got, tt.want)
		}
	}
}

func TestResolve_UnknownFormatIsNotAnError(t *testing.T) {
	got := Resolve("aiff", 22050)
	if got.Encoding != EncodingUnspecified {
		t.Errorf("expected ENCODING_UNSPECIFIED, got %s", got.Encoding)
	}
	if got.SampleRateHertz != 22050 {
		t.Errorf("expected recording's own sample rate 22050, got %d", got.SampleRateHertz)
	}
}
