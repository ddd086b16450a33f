package words

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/mcoot/typerace/internal/dependencies/random"
	"github.com/mcoot/typerace/internal/model"
)

//go:embed words.yaml
var defaultWords []byte

// Errors
var (
	ErrUnknownDifficulty = errors.New("unknown difficulty")
	ErrEmptyWordList     = errors.New("word list has no words")
)

// Service serves the word lists players type, grouped by difficulty
type Service struct {
	random random.Random
	words  map[model.Difficulty][]string
}

// Load reads word lists from a YAML file keyed by difficulty.
// An empty path loads the built-in lists.
func Load(path string, random random.Random) (*Service, error) {
	data := defaultWords
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read word list: %w", err)
		}
	}
	return Parse(data, random)
}

// Parse builds a Service from YAML word lists
func Parse(data []byte, random random.Random) (*Service, error) {
	var raw map[model.Difficulty][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse word list: %w", err)
	}

	words := make(map[model.Difficulty][]string, len(raw))
	total := 0
	for difficulty, list := range raw {
		if !slices.Contains(model.Difficulties, difficulty) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownDifficulty, difficulty)
		}
		words[difficulty] = slices.Clone(list)
		total += len(list)
	}
	if total == 0 {
		return nil, ErrEmptyWordList
	}

	return &Service{random: random, words: words}, nil
}

// All returns a copy of every word list
func (s *Service) All() map[model.Difficulty][]string {
	out := make(map[model.Difficulty][]string, len(s.words))
	for difficulty, list := range s.words {
		out[difficulty] = slices.Clone(list)
	}
	return out
}

// Pick returns up to n distinct random words of a difficulty
func (s *Service) Pick(difficulty model.Difficulty, n int) ([]string, error) {
	if !slices.Contains(model.Difficulties, difficulty) {
		return nil, ErrUnknownDifficulty
	}
	pool := slices.Clone(s.words[difficulty])
	n = min(n, len(pool))
	if n <= 0 {
		return []string{}, nil
	}

	// Partial Fisher-Yates over the copy
	for i := range n {
		j := i + s.random.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n], nil
}
