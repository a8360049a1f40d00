package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestSniff(t *testing.T) {
	wav16k, err := EncodeWAV(NewBufferFromSamples(make([]int16, 400), 16000, 1))
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	vorbis := append([]byte("OggS"), make([]byte, 24)...)
	vorbis = append(vorbis, []byte("\x01vorbis")...)
	vorbis = append(vorbis, 0, 0, 0, 0, 2)
	rate := make([]byte, 4)
	binary.LittleEndian.PutUint32(rate, 22050)
	vorbis = append(vorbis, rate...)

	flac := append([]byte("fLaC"), make([]byte, 30)...)
	// 20-bit rate 0x0AC44 spread over bytes 18..20
	flac[18], flac[19], flac[20] = 0x0A, 0xC4, 0x42

	tests := []struct {
		name   string
		data   []byte
		family FormatFamily
		rate   int
		codec  string
	}{
		{"wav reads header rate", wav16k, FormatWAV, 16000, "pcm"},
		{"id3 mp3", append([]byte("ID3\x04\x00"), make([]byte, 20)...), FormatMP3, 44100, "mp3"},
		{"mpeg frame sync", []byte{0xFF, 0xFB, 0x90, 0x64, 0, 0, 0}, FormatMP3, 44100, "mp3"},
		{"adts aac", []byte{0xFF, 0xF1, 0x50, 0x80, 0, 0, 0}, FormatM4A, 44100, "aac"},
		{"m4a ftyp", append([]byte{0, 0, 0, 0x20}, []byte("ftypM4A \x00\x00\x00\x00")...), FormatM4A, 44100, "aac"},
		{"ogg vorbis rate", vorbis, FormatOGG, 22050, "vorbis"},
		{"ogg opus", append([]byte("OggS"), append(make([]byte, 24), []byte("OpusHead")...)...), FormatOGG, 48000, "opus"},
		{"flac streaminfo", flac, FormatFLAC, 44100, "flac"},
		{"webm ebml", []byte{0x1A, 0x45, 0xDF, 0xA3, 0x9F, 0x42}, FormatWebMOpus, 48000, "opus"},
		{"amr narrowband", []byte("#!AMR\n\x3c"), FormatAMR, 8000, "amr_nb"},
		{"amr wideband", []byte("#!AMR-WB\n\x04"), FormatAMR, 16000, "amr_wb"},
		{"opus name heuristic", append(make([]byte, 40), []byte("OpusHead")...), FormatWebMOpus, 48000, "opus"},
		{"mp4a heuristic", append([]byte{1, 2, 3}, []byte("xxmp4a")...), FormatM4A, 44100, "aac"},
		{"raw pcm even length", bytes.Repeat([]byte{0x10, 0x00}, 400), FormatPCMUnknown, 16000, "pcm_s16le"},
		{"odd length garbage", bytes.Repeat([]byte{0x10}, 401), FormatUnknown, 44100, ""},
		{"short even garbage", []byte{1, 2, 3, 4}, FormatUnknown, 44100, ""},
		{"empty", nil, FormatUnknown, 44100, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guess := Sniff(tt.data)
			if guess.Family != tt.family {
				t.Errorf("Expected family %s, got %s", tt.family, guess.Family)
			}
			if guess.AssumedSampleRate != tt.rate {
				t.Errorf("Expected rate %d, got %d", tt.rate, guess.AssumedSampleRate)
			}
			if guess.Codec != tt.codec {
				t.Errorf("Expected codec %q, got %q", tt.codec, guess.Codec)
			}
		})
	}
}

func TestSniffHeuristicOnlyReadsFirstBytes(t *testing.T) {
	data := append(bytes.Repeat([]byte{0x01}, 151), []byte("OpusHead")...)
	if guess := Sniff(data); guess.Family != FormatUnknown {
		t.Errorf("Expected UNKNOWN for marker past the heuristic window, got %s", guess.Family)
	}
}

func TestSniffBrokenWAVHeader(t *testing.T) {
	data := append([]byte("RIFF\x00\x00\x00\x00WAVE"), []byte("junk")...)
	guess := Sniff(data)
	if guess.Family != FormatWAV {
		t.Errorf("Expected WAV, got %s", guess.Family)
	}
	if guess.AssumedSampleRate != DefaultAssumedRate {
		t.Errorf("Expected default rate %d, got %d", DefaultAssumedRate, guess.AssumedSampleRate)
	}
}

func TestFormatExtension(t *testing.T) {
	if FormatWebMOpus.Extension() != ".webm" {
		t.Errorf("Expected .webm, got %s", FormatWebMOpus.Extension())
	}
	if FormatUnknown.Extension() != ".bin" {
		t.Errorf("Expected .bin, got %s", FormatUnknown.Extension())
	}
}
