package mock

import (
	"math/rand"
	"strings"
	"sync"
)

// vocabulary holds common English words used to fabricate natural-looking
// transcripts.
var vocabulary = []string{
	"the", "be", "to", "of", "and", "a", "in", "that", "have", "I",
	"it", "for", "not", "on", "with", "he", "as", "you", "do", "at",
	"this", "but", "his", "by", "from", "they", "we", "say", "her", "she",
	"or", "an", "will", "my", "one", "all", "would", "there", "their", "what",
	"so", "up", "out", "if", "about", "who", "get", "which", "go", "me",
	"when", "make", "can", "like", "time", "no", "just", "him", "know", "take",
	"people", "into", "year", "your", "good", "some", "could", "them", "see", "other",
	"than", "then", "now", "look", "only", "come", "its", "over", "think", "also",
	"back", "after", "use", "two", "how", "our", "work", "first", "well", "way",
	"even", "new", "want", "because", "any", "these", "give", "day", "most", "us",
	"is", "was", "are", "been", "has", "had", "did", "does", "being", "were",
	"very", "much", "more", "many", "such", "long", "great", "little", "own",
	"old", "right", "big", "high", "different", "small", "large", "next", "early", "young",
	"important", "few", "public", "bad", "same", "able", "last", "sure", "real", "best",
	"better", "still", "never", "should", "world", "life", "man", "too", "under", "here",
	"need", "house", "home", "hand", "school", "place", "while", "away", "keep", "let",
	"begin", "seem", "help", "show", "hear", "play", "run", "move", "live", "believe",
	"hold", "bring", "happen", "must", "write", "provide", "sit", "stand", "lose", "pay",
	"meet", "include", "continue", "set", "learn", "change", "lead", "understand", "watch", "follow",
	"stop", "create", "speak", "read", "allow", "add", "spend", "grow", "open", "walk",
	"win", "offer", "remember", "love", "consider", "appear", "buy", "wait", "serve", "die",
	"send", "expect", "build", "stay", "fall", "cut", "reach", "kill", "remain", "suggest",
	"raise", "pass", "sell", "require", "report", "decide", "pull", "develop", "thank", "carry",
}

// textGenerator draws random words from the vocabulary. Safe for concurrent
// use; math/rand sources are not, so draws are serialised with a mutex.
type textGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newTextGenerator(seed int64) *textGenerator {
	return &textGenerator{rng: rand.New(rand.NewSource(seed))}
}

// generate returns wordCount random words joined by spaces. Counts below one
// are clamped to one, so any non-empty audio produces at least one word.
func (g *textGenerator) generate(wordCount int) string {
	if wordCount < 1 {
		wordCount = 1
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	words := make([]string, wordCount)
	for i := range words {
		words[i] = vocabulary[g.rng.Intn(len(vocabulary))]
	}
	return strings.Join(words, " ")
}
