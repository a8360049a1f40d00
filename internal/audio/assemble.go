package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// ErrNoChunksDecoded is returned when not a single chunk of a session could be used
var ErrNoChunksDecoded = errors.New("no chunks could be decoded")

// MaxExpectedChunks bounds the chunk count a session can declare
const MaxExpectedChunks = 100000

// Decoder turns an encoded container into PCM. Implementations live outside this
// package and may shell out to an external media tool.
type Decoder interface {
	Decode(ctx context.Context, data []byte, guess FormatGuess) (*Buffer, error)
}

// Chunk is one independently decodable piece of a chunked recording
type Chunk struct {
	Index  int
	Data   []byte
	IsLast bool
}

// Gap is an inclusive run of chunk indices that never arrived
type Gap struct {
	From int
	To   int
}

// Len returns the number of indices in the gap
func (g Gap) Len() int {
	return g.To - g.From + 1
}

// Assembly is the reassembled recording plus what was left out. Skipped holds chunks
// that arrived but could not be used; Missing holds indices that never arrived.
type Assembly struct {
	Buffer   *Buffer
	Used     []int
	Skipped  []int
	Missing  []Gap
	Warnings []string
}

// MissingCount returns the number of indices that never arrived
func (a *Assembly) MissingCount() int {
	n := 0
	for _, g := range a.Missing {
		n += g.Len()
	}
	return n
}

// Assembler decodes and joins chunked uploads in index order
type Assembler struct {
	decoder    Decoder
	normalizer *Normalizer
	logger     *slog.Logger
}

// NewAssembler creates an assembler. A nil normalizer leaves the joined buffer as decoded.
func NewAssembler(decoder Decoder, normalizer *Normalizer, logger *slog.Logger) *Assembler {
	return &Assembler{decoder: decoder, normalizer: normalizer, logger: logger}
}

// Assemble decodes every chunk and concatenates them by ascending index regardless of
// arrival order. Missing, duplicate, undecodable, and format-incompatible chunks are
// skipped with a warning. expectedCount <= 0 derives the count from the chunk flagged
// IsLast, or from the highest index. Only a session with no usable chunk fails.
func (a *Assembler) Assemble(ctx context.Context, chunks []Chunk, expectedCount int) (*Assembly, error) {
	result := &Assembly{}
	warn := func(index int, format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		result.Warnings = append(result.Warnings, msg)
		if index >= 0 {
			result.Skipped = append(result.Skipped, index)
		}
		a.logger.Warn("Chunk skipped", slog.Int("chunk_index", index), slog.String("reason", msg))
	}

	ordered := make([]Chunk, len(chunks))
	copy(ordered, chunks)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	expected := expectedCount
	if expected <= 0 {
		expected = deriveExpectedCount(ordered)
	}
	if expected > MaxExpectedChunks {
		msg := fmt.Sprintf("expected chunk count %d exceeds %d, later chunks skipped", expected, MaxExpectedChunks)
		result.Warnings = append(result.Warnings, msg)
		a.logger.Warn("Chunk count clamped", slog.Int("expected", expected), slog.Int("max", MaxExpectedChunks))
		expected = MaxExpectedChunks
	}

	seen := make(map[int]bool, len(ordered))
	decoded := make([]*Buffer, 0, len(ordered))
	var format *Buffer

	for _, chunk := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch {
		case chunk.Index < 0:
			warn(chunk.Index, "chunk %d has a negative index, skipped", chunk.Index)
			continue
		case chunk.Index >= expected:
			warn(chunk.Index, "chunk %d is beyond the expected count %d, skipped", chunk.Index, expected)
			continue
		case seen[chunk.Index]:
			warn(chunk.Index, "chunk %d was received more than once, duplicate skipped", chunk.Index)
			continue
		}
		seen[chunk.Index] = true

		if len(chunk.Data) == 0 {
			warn(chunk.Index, "chunk %d is empty, skipped", chunk.Index)
			continue
		}

		buf, err := a.decoder.Decode(ctx, chunk.Data, Sniff(chunk.Data))
		if err == nil {
			err = buf.Validate()
		}
		if err != nil {
			warn(chunk.Index, "chunk %d could not be decoded, skipped: %v", chunk.Index, err)
			continue
		}

		if format == nil {
			format = buf
		} else if buf.SampleRate != format.SampleRate {
			warn(chunk.Index, "chunk %d sample rate %d Hz differs from %d Hz, skipped",
				chunk.Index, buf.SampleRate, format.SampleRate)
			continue
		}

		decoded = append(decoded, buf)
		result.Used = append(result.Used, chunk.Index)
	}

	for _, gap := range findGaps(seen, expected) {
		var msg string
		if gap.From == gap.To {
			msg = fmt.Sprintf("chunk %d is missing", gap.From)
		} else {
			msg = fmt.Sprintf("chunks %d-%d are missing", gap.From, gap.To)
		}
		result.Missing = append(result.Missing, gap)
		result.Warnings = append(result.Warnings, msg)
		a.logger.Warn("Chunks missing", slog.Int("from", gap.From), slog.Int("to", gap.To))
	}
	sort.Ints(result.Skipped)

	if len(decoded) == 0 {
		return nil, ErrNoChunksDecoded
	}

	// channel layouts can differ between capture restarts; fall back to mono
	for _, buf := range decoded {
		if buf.Channels != format.Channels {
			for i := range decoded {
				decoded[i] = Downmix(decoded[i])
			}
			break
		}
	}

	joined, err := Concat(decoded...)
	if err != nil {
		return nil, &AudioProcessingError{Op: "concatenate", Err: err}
	}

	if a.normalizer != nil {
		joined, err = a.normalizer.Normalize(joined)
		if err != nil {
			return nil, err
		}
	}

	a.logger.Info("Chunks assembled",
		slog.Int("expected", expected),
		slog.Int("used", len(result.Used)),
		slog.Int("skipped", len(result.Skipped)),
		slog.Int("missing", result.MissingCount()),
		slog.Int("duration_ms", joined.DurationMs()),
	)

	result.Buffer = joined
	return result, nil
}

// findGaps walks the received indices in order, so its cost follows the number of
// chunks rather than the size of the indices.
func findGaps(seen map[int]bool, expected int) []Gap {
	received := make([]int, 0, len(seen))
	for i := range seen {
		if i < expected {
			received = append(received, i)
		}
	}
	sort.Ints(received)

	var gaps []Gap
	next := 0
	for _, i := range received {
		if i > next {
			gaps = append(gaps, Gap{From: next, To: i - 1})
		}
		next = i + 1
	}
	if next < expected {
		gaps = append(gaps, Gap{From: next, To: expected - 1})
	}
	return gaps
}

func deriveExpectedCount(ordered []Chunk) int {
	if len(ordered) == 0 {
		return 0
	}
	for _, c := range ordered {
		if c.IsLast && c.Index >= 0 {
			return c.Index + 1
		}
	}
	return ordered[len(ordered)-1].Index + 1
}
