package catalog

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/cidadao-ativo/cidadao-api/internal/bill"
)

// QuizBank holds authored quizzes keyed by bill ID.
type QuizBank struct {
	quizzes map[string]bill.Quiz
	mu      sync.RWMutex
}

type quizFile struct {
	Quizzes []authoredQuiz `yaml:"quizzes"`
}

type authoredQuiz struct {
	BillID    string `yaml:"bill_id"`
	bill.Quiz `yaml:",inline"`
}

// NewQuizBank returns an empty bank.
func NewQuizBank() *QuizBank {
	return &QuizBank{quizzes: make(map[string]bill.Quiz)}
}

// LoadQuizBank reads every .yaml/.yml file under dir. An empty dir yields an
// empty bank. Unreadable paths, invalid YAML and invalid quizzes are skipped
// with a warning.
func LoadQuizBank(dir string, logger *slog.Logger) (*QuizBank, error) {
	if logger == nil {
		logger = slog.Default()
	}
	b := NewQuizBank()
	if dir == "" {
		return b, nil
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("loading quizzes: %w", err)
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("skipping unreadable quiz path", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
			return nil
		}
		return b.loadFile(path, logger)
	})
	if err != nil {
		return nil, fmt.Errorf("loading quizzes: %w", err)
	}

	logger.Info("quizzes loaded", "dir", dir, "quizzes", b.Len())
	return b, nil
}

func (b *QuizBank) loadFile(path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("skipping unreadable quiz path", "path", path, "error", err)
		return nil
	}

	var f quizFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		logger.Warn("skipping invalid quiz YAML", "path", path, "error", err)
		return nil
	}

	for _, q := range f.Quizzes {
		if q.BillID == "" || !q.Quiz.Valid() {
			logger.Warn("skipping invalid quiz", "path", path, "bill_id", q.BillID)
			continue
		}
		b.Add(q.BillID, q.Quiz)
	}
	return nil
}

// Add registers q for billID, replacing any previous quiz.
func (b *QuizBank) Add(billID string, q bill.Quiz) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quizzes[billID] = q
}

// Quiz returns the authored quiz for billID.
func (b *QuizBank) Quiz(billID string) (bill.Quiz, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	q, ok := b.quizzes[billID]
	return q, ok
}

// Len returns the number of quizzes.
func (b *QuizBank) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.quizzes)
}
