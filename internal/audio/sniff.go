package audio

import (
	"bytes"
	"encoding/binary"
)

// FormatFamily classifies a container/codec family
type FormatFamily string

const (
	FormatWAV        FormatFamily = "WAV"
	FormatMP3        FormatFamily = "MP3"
	FormatM4A        FormatFamily = "M4A"
	FormatOGG        FormatFamily = "OGG"
	FormatFLAC       FormatFamily = "FLAC"
	FormatWebMOpus   FormatFamily = "WEBM_OPUS"
	FormatAMR        FormatFamily = "AMR"
	FormatPCMUnknown FormatFamily = "PCM_UNKNOWN"
	FormatUnknown    FormatFamily = "UNKNOWN"
)

const (
	// DefaultAssumedRate is reported when nothing better can be inferred
	DefaultAssumedRate = 44100

	magicWindow     = 12
	heuristicWindow = 100
	minRawPCMBytes  = 320
)

// FormatGuess is advisory metadata about a raw input. Decoding is authoritative.
type FormatGuess struct {
	Family            FormatFamily `json:"family"`
	AssumedSampleRate int          `json:"assumed_sample_rate"`
	Codec             string       `json:"codec,omitempty"`
}

// Extension returns the file extension used for scratch files of this family
func (f FormatFamily) Extension() string {
	switch f {
	case FormatWAV:
		return ".wav"
	case FormatMP3:
		return ".mp3"
	case FormatM4A:
		return ".m4a"
	case FormatOGG:
		return ".ogg"
	case FormatFLAC:
		return ".flac"
	case FormatWebMOpus:
		return ".webm"
	case FormatAMR:
		return ".amr"
	case FormatPCMUnknown:
		return ".pcm"
	default:
		return ".bin"
	}
}

// Sniff classifies raw bytes by magic numbers, then by codec-name heuristics.
// It never fails: unrecognized input is UNKNOWN at DefaultAssumedRate.
func Sniff(data []byte) FormatGuess {
	if guess, ok := sniffMagic(data); ok {
		return guess
	}
	if guess, ok := sniffHeuristic(data); ok {
		return guess
	}
	if len(data) >= minRawPCMBytes && len(data)%2 == 0 {
		return FormatGuess{Family: FormatPCMUnknown, AssumedSampleRate: 16000, Codec: "pcm_s16le"}
	}
	return FormatGuess{Family: FormatUnknown, AssumedSampleRate: DefaultAssumedRate}
}

func sniffMagic(data []byte) (FormatGuess, bool) {
	head := data
	if len(head) > magicWindow {
		head = head[:magicWindow]
	}

	switch {
	case len(head) >= 12 && bytes.Equal(head[0:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WAVE")):
		rate := DefaultAssumedRate
		if info, err := GetWAVInfo(data); err == nil {
			rate = int(info.SampleRate)
		}
		return FormatGuess{Family: FormatWAV, AssumedSampleRate: rate, Codec: "pcm"}, true

	case bytes.HasPrefix(head, []byte("#!AMR-WB")):
		return FormatGuess{Family: FormatAMR, AssumedSampleRate: 16000, Codec: "amr_wb"}, true

	case bytes.HasPrefix(head, []byte("#!AMR")):
		return FormatGuess{Family: FormatAMR, AssumedSampleRate: 8000, Codec: "amr_nb"}, true

	case bytes.HasPrefix(head, []byte("OggS")):
		return sniffOgg(data), true

	case bytes.HasPrefix(head, []byte("fLaC")):
		return FormatGuess{Family: FormatFLAC, AssumedSampleRate: flacRate(data), Codec: "flac"}, true

	case bytes.HasPrefix(head, []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return FormatGuess{Family: FormatWebMOpus, AssumedSampleRate: 48000, Codec: "opus"}, true

	case len(head) >= 8 && bytes.Equal(head[4:8], []byte("ftyp")):
		return FormatGuess{Family: FormatM4A, AssumedSampleRate: DefaultAssumedRate, Codec: "aac"}, true

	case bytes.HasPrefix(head, []byte("ID3")):
		return FormatGuess{Family: FormatMP3, AssumedSampleRate: DefaultAssumedRate, Codec: "mp3"}, true

	case len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		// Layer bits 00 mark an ADTS AAC stream rather than MPEG audio
		if head[1]&0x06 == 0 {
			return FormatGuess{Family: FormatM4A, AssumedSampleRate: DefaultAssumedRate, Codec: "aac"}, true
		}
		return FormatGuess{Family: FormatMP3, AssumedSampleRate: DefaultAssumedRate, Codec: "mp3"}, true
	}

	return FormatGuess{}, false
}

func sniffHeuristic(data []byte) (FormatGuess, bool) {
	head := data
	if len(head) > heuristicWindow {
		head = head[:heuristicWindow]
	}

	switch {
	case bytes.Contains(head, []byte("OpusHead")), bytes.Contains(head, []byte("webm")),
		bytes.Contains(head, []byte("matroska")):
		return FormatGuess{Family: FormatWebMOpus, AssumedSampleRate: 48000, Codec: "opus"}, true
	case bytes.Contains(head, []byte("vorbis")):
		return FormatGuess{Family: FormatOGG, AssumedSampleRate: 48000, Codec: "vorbis"}, true
	case bytes.Contains(head, []byte("mp4a")), bytes.Contains(head, []byte("M4A ")),
		bytes.Contains(head, []byte("isom")):
		return FormatGuess{Family: FormatM4A, AssumedSampleRate: DefaultAssumedRate, Codec: "aac"}, true
	case bytes.Contains(head, []byte("LAME")), bytes.Contains(head, []byte("Xing")):
		return FormatGuess{Family: FormatMP3, AssumedSampleRate: DefaultAssumedRate, Codec: "mp3"}, true
	}

	return FormatGuess{}, false
}

// sniffOgg distinguishes Vorbis from Opus and reads the Vorbis identification header rate
func sniffOgg(data []byte) FormatGuess {
	head := data
	if len(head) > heuristicWindow {
		head = head[:heuristicWindow]
	}

	if bytes.Contains(head, []byte("OpusHead")) {
		return FormatGuess{Family: FormatOGG, AssumedSampleRate: 48000, Codec: "opus"}
	}

	guess := FormatGuess{Family: FormatOGG, AssumedSampleRate: 48000, Codec: "vorbis"}
	// identification packet: 0x01 "vorbis" version(4) channels(1) rate(4)
	if idx := bytes.Index(head, []byte("\x01vorbis")); idx >= 0 && idx+16 <= len(head) {
		if rate := int(binary.LittleEndian.Uint32(head[idx+12:])); rate > 0 {
			guess.AssumedSampleRate = rate
		}
	}
	return guess
}

// flacRate reads the 20-bit sample rate from the STREAMINFO block
func flacRate(data []byte) int {
	if len(data) < 21 {
		return DefaultAssumedRate
	}
	rate := int(data[18])<<12 | int(data[19])<<4 | int(data[20])>>4
	if rate == 0 {
		return DefaultAssumedRate
	}
	return rate
}
