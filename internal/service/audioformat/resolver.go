// Package audioformat maps audio container/codec names to the recognition
// engine's expected encoding and sample-rate configuration.
package audioformat

import "strings"

// Encoding mirrors the recognition engine's audio encoding enum by name so
// callers outside the STT adapter never import the engine's protobuf types.
type Encoding string

const (
	EncodingUnspecified Encoding = "ENCODING_UNSPECIFIED"
	EncodingLinear16    Encoding = "LINEAR16"
	EncodingFLAC        Encoding = "FLAC"
	EncodingMP3         Encoding = "MP3"
	EncodingOggOpus     Encoding = "OGG_OPUS"
	EncodingWebmOpus    Encoding = "WEBM_OPUS"
	EncodingAMR         Encoding = "AMR"
	EncodingAMRWB       Encoding = "AMR_WB"
)

// Spec is the resolved recognition configuration for one audio format.
type Spec struct {
	Encoding        Encoding
	SampleRateHertz int
}

var formats = map[string]Spec{
	"wav":  {EncodingLinear16, 16000},
	"lpcm": {EncodingLinear16, 16000},
	"flac": {EncodingFLAC, 16000},
	"mp3":  {EncodingMP3, 16000},
	"mpeg": {EncodingMP3, 16000},
	"ogg":  {EncodingOggOpus, 48000},
	"opus": {EncodingOggOpus, 48000},
	"webm": {EncodingWebmOpus, 48000},
	"m4a":  {EncodingMP3, 16000},
	"amr":  {EncodingAMR, 8000},
	"awb":  {EncodingAMRWB, 16000},
}

// Resolve maps a container/codec name to a recognition spec. The recording's
// own sample rate wins when present. Unknown formats resolve to
// ENCODING_UNSPECIFIED rather than an error: the engine sniffs headers for
// self-describing containers.
func Resolve(format string, sampleRateHertz int) Spec {
	name := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "audio/"))
	spec, ok := formats[name]
	if !ok {
		return Spec{Encoding: EncodingUnspecified, SampleRateHertz: sampleRateHertz}
	}
	if sampleRateHertz > 0 {
		spec.SampleRateHertz = sampleRateHertz
	}
	return spec
}
