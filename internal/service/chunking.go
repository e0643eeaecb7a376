package service

import (
	"log"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/ragdocs/internal/domain"
)

// ChunkConfig controls recursive character splitting. Lengths are counted
// in runes.
type ChunkConfig struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// DefaultChunkConfig splits on paragraphs, then lines, then words, then runes.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize:    300,
		ChunkOverlap: 100,
		Separators:   []string{"\n\n", "\n", " ", ""},
	}
}

// RecursiveSplitter splits text on the coarsest separator present and
// recurses into pieces that are still too long. Separators stay attached to
// the start of the piece that follows them, and every chunk is trimmed of
// surrounding whitespace.
type RecursiveSplitter struct {
	cfg ChunkConfig
}

func NewRecursiveSplitter(cfg ChunkConfig) (*RecursiveSplitter, error) {
	defaults := DefaultChunkConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaults.ChunkSize
	}
	if len(cfg.Separators) == 0 {
		cfg.Separators = defaults.Separators
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, domain.ErrInvalidChunker
	}
	return &RecursiveSplitter{cfg: cfg}, nil
}

// SplitText returns the chunks of text in document order.
func (s *RecursiveSplitter) SplitText(text string) []string {
	return s.split(text, s.cfg.Separators)
}

// SplitDocuments splits every document and records where each chunk starts.
// The search for a chunk begins ChunkOverlap runes before the end of the
// previous chunk so repeated passages resolve to the right occurrence.
func (s *RecursiveSplitter) SplitDocuments(docs []domain.Document) []domain.Chunk {
	var chunks []domain.Chunk
	for _, doc := range docs {
		index, prevLen := 0, 0
		for _, text := range s.SplitText(doc.Content) {
			offset := max(0, index+prevLen-s.cfg.ChunkOverlap)
			index = runeIndex(doc.Content, text, offset)
			prevLen = runeLen(text)

			metadata := make(map[string]string, len(doc.Metadata))
			for k, v := range doc.Metadata {
				metadata[k] = v
			}
			chunks = append(chunks, domain.Chunk{
				Content:    text,
				StartIndex: index,
				Metadata:   metadata,
			})
		}
	}
	return chunks
}

func (s *RecursiveSplitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var remaining []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			remaining = separators[i+1:]
			break
		}
	}

	var final, pending []string
	for _, piece := range splitKeepingSeparator(text, separator) {
		if runeLen(piece) < s.cfg.ChunkSize {
			pending = append(pending, piece)
			continue
		}

		if len(pending) > 0 {
			final = append(final, s.merge(pending)...)
			pending = nil
		}
		if len(remaining) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.split(piece, remaining)...)
		}
	}
	if len(pending) > 0 {
		final = append(final, s.merge(pending)...)
	}

	return final
}

// merge packs pieces into windows of at most ChunkSize runes. After each
// emitted window it keeps a tail of at most ChunkOverlap runes that also
// leaves room for the next piece.
func (s *RecursiveSplitter) merge(pieces []string) []string {
	var (
		chunks  []string
		current []string
		total   int
	)

	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n > s.cfg.ChunkSize {
			if total > s.cfg.ChunkSize {
				log.Printf("chunking: created a chunk of size %d, which is longer than the specified %d", total, s.cfg.ChunkSize)
			}
			if len(current) > 0 {
				if chunk, ok := joinPieces(current); ok {
					chunks = append(chunks, chunk)
				}
				for total > s.cfg.ChunkOverlap || (total+n > s.cfg.ChunkSize && total > 0) {
					total -= runeLen(current[0])
					current = current[1:]
				}
			}
		}
		current = append(current, piece)
		total += n
	}

	if chunk, ok := joinPieces(current); ok {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func joinPieces(pieces []string) (string, bool) {
	text := strings.TrimSpace(strings.Join(pieces, ""))
	return text, text != ""
}

// splitKeepingSeparator splits text on sep and prefixes every piece after the
// first with sep. An empty sep splits into runes. Empty pieces are dropped.
func splitKeepingSeparator(text, sep string) []string {
	if sep == "" {
		pieces := make([]string, 0, len(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}

	parts := strings.Split(text, sep)
	pieces := make([]string, 0, len(parts))
	if parts[0] != "" {
		pieces = append(pieces, parts[0])
	}
	for _, p := range parts[1:] {
		pieces = append(pieces, sep+p)
	}
	return pieces
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// runeIndex is strings.Index over runes, starting at rune offset from.
func runeIndex(s, substr string, from int) int {
	start := -1
	n := 0
	for i := range s {
		if n == from {
			start = i
			break
		}
		n++
	}
	if start < 0 {
		if from != n {
			return -1
		}
		start = len(s)
	}

	idx := strings.Index(s[start:], substr)
	if idx < 0 {
		return -1
	}
	return from + utf8.RuneCountInString(s[start:start+idx])
}
