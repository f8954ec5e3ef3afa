package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// defaultPrompts are written to disk on first use and served whenever a
// file is missing or unreadable.
var defaultPrompts = map[string]string{
	driven.PromptAnswer: driven.DefaultAnswerPrompt,
}

const promptsReadme = "# docrag prompts\n\n" +
	"Templates used when docrag asks the generation backend for an answer.\n\n" +
	"`answer.txt` takes two `%s` placeholders, in order: the numbered context\n" +
	"blocks, then the question. Delete a file to restore its default.\n"

// PromptStore serves prompt templates from <dir>/<name>.txt. Nothing is
// touched on disk until the first Load.
type PromptStore struct {
	dir string

	setup    sync.Once
	setupErr error

	mu    sync.RWMutex
	cache map[string]string
}

// NewPromptStore creates a prompt store. An empty dir selects
// ~/.docrag/prompts.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".docrag", "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]string)}, nil
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

// Load returns the template called name.
func (s *PromptStore) Load(name string) (string, error) {
	s.setup.Do(func() { s.setupErr = s.writeDefaults() })

	s.mu.RLock()
	prompt, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return prompt, nil
	}

	prompt, err := s.read(name)
	if err != nil {
		if def, known := defaultPrompts[name]; known {
			return def, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, errors.Join(err, s.setupErr))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.cache[name]; ok {
		return cached, nil
	}
	s.cache[name] = prompt
	return prompt, nil
}

// Reload drops cached templates so edited files are picked up.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

func (s *PromptStore) read(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name+".txt"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// writeDefaults creates the directory, the default templates and a README.
// Existing files are left alone.
func (s *PromptStore) writeDefaults() error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create prompt directory: %w", err)
	}

	files := map[string]string{"README.md": promptsReadme}
	for name, content := range defaultPrompts {
		files[name+".txt"] = content
	}
	for name, content := range files {
		path := filepath.Join(s.dir, name)
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}
