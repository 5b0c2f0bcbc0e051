package emu

import (
	"errors"
	"fmt"
)

// DefaultMemoryWords is the default memory capacity in words (16KB).
const DefaultMemoryWords = 4096

// WordSize is the number of bytes per memory word.
const WordSize = 4

// ErrMemoryOutOfBounds is returned when an address maps outside memory.
var ErrMemoryOutOfBounds = errors.New("memory address out of bounds")

// Cell is one memory word together with its byte address.
type Cell struct {
	Addr  Word `json:"addr"`
	Value Word `json:"value"`
}

// Memory is a word-addressed data memory.
//
// Byte addresses are converted to word indices by dividing by WordSize.
// Unaligned addresses are not rejected; they select the containing word.
type Memory struct {
	words []Word
}

// NewMemory creates a memory with the given capacity in words. A
// non-positive capacity selects DefaultMemoryWords.
func NewMemory(words int) *Memory {
	if words <= 0 {
		words = DefaultMemoryWords
	}
	return &Memory{words: make([]Word, words)}
}

// Size returns the capacity in words.
func (m *Memory) Size() int {
	return len(m.words)
}

func (m *Memory) index(addr Word) (int, error) {
	idx := int(addr / WordSize)
	if idx < 0 || idx >= len(m.words) {
		return 0, fmt.Errorf("%w: %d", ErrMemoryOutOfBounds, addr)
	}
	return idx, nil
}

// Load reads the word containing addr.
func (m *Memory) Load(addr Word) (Word, error) {
	idx, err := m.index(addr)
	if err != nil {
		return 0, err
	}
	return m.words[idx], nil
}

// Store writes the word containing addr.
func (m *Memory) Store(addr Word, value Word) error {
	idx, err := m.index(addr)
	if err != nil {
		return err
	}
	m.words[idx] = value
	return nil
}

// NonZero returns every non-zero word in address order.
func (m *Memory) NonZero() []Cell {
	var cells []Cell
	for i, v := range m.words {
		if v != 0 {
			cells = append(cells, Cell{Addr: Word(i * WordSize), Value: v})
		}
	}
	return cells
}

// Reset clears all words.
func (m *Memory) Reset() {
	clear(m.words)
}
