package core

import (
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	Beginner     PlayLevel = "beginner"
	Intermediate PlayLevel = "intermediate"
	Advanced     PlayLevel = "advanced"

	Weekly  MedalKind = "weekly"
	Monthly MedalKind = "monthly"

	Gold   MedalType = "gold"
	Silver MedalType = "silver"
	Bronze MedalType = "bronze"

	IssueOpen     IssueStatus = "open"
	IssueResolved IssueStatus = "resolved"
)

type (
	// PlayLevel is the difficulty band a player chooses before a game.
	PlayLevel string

	MedalKind   string
	MedalType   string
	IssueStatus string

	Profile struct {
		ID           string
		Email        string
		Username     string
		PasswordHash string
		CreatedAt    time.Time
	}

	Word struct {
		ID             int64
		English        string
		Dutch          string
		Category       string
		Difficulty     int // 1..3
		ExampleEnglish string
		ExampleDutch   string
	}

	// Progress tracks one player's history with one word.
	Progress struct {
		UserID          string
		WordID          int64
		CorrectCount    int
		IncorrectCount  int
		Mastered        bool
		LastPracticedAt time.Time
	}

	// Session is a finished play-through.
	Session struct {
		ID           int64
		UserID       string
		Score        int
		Level        PlayLevel
		CorrectCount int
		TotalCount   int
		CreatedAt    time.Time
	}

	Medal struct {
		UserID      string
		Username    string
		Kind        MedalKind
		Type        MedalType
		PeriodStart time.Time
		Score       int
	}

	WordIssue struct {
		ID          int64
		WordID      int64
		UserID      string
		Description string
		Status      IssueStatus
		CreatedAt   time.Time
	}
)

var (
	ErrInvalidDifficulty = errors.New("difficulty must be between 1 and 3")
	ErrEmptyEnglish      = errors.New("empty english text")
	ErrEmptyDutch        = errors.New("empty dutch text")
	ErrEmptyCategory     = errors.New("empty category")
	ErrInvalidLevel      = errors.New("invalid play level")
	ErrInvalidUsername   = errors.New("username must be 3-30 characters of letters, digits, '_', '.' or '-'")
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrWeakPassword      = errors.New("password must be at least 8 characters")
	ErrEmptyIssue        = errors.New("issue description cannot be empty")
	ErrIssueTooLong      = errors.New("issue description too long (max 500 characters)")
	ErrEmptyAnswer       = errors.New("answer cannot be empty")
)

// PlayLevels lists the levels in ascending difficulty.
var PlayLevels = []PlayLevel{Beginner, Intermediate, Advanced}

// ParsePlayLevel accepts a level name, falling back to an error for
// anything unknown.
func ParsePlayLevel(s string) (PlayLevel, error) {
	l := PlayLevel(strings.ToLower(strings.TrimSpace(s)))
	switch l {
	case Beginner, Intermediate, Advanced:
		return l, nil
	}
	return "", ErrInvalidLevel
}

// MaxDifficulty is the highest word difficulty served at this level.
func (l PlayLevel) MaxDifficulty() int {
	switch l {
	case Intermediate:
		return 2
	case Advanced:
		return 3
	default:
		return 1
	}
}

func (w Word) Validate() error {
	if strings.TrimSpace(w.English) == "" {
		return ErrEmptyEnglish
	}
	if strings.TrimSpace(w.Dutch) == "" {
		return ErrEmptyDutch
	}
	if strings.TrimSpace(w.Category) == "" {
		return ErrEmptyCategory
	}
	if w.Difficulty < 1 || w.Difficulty > 3 {
		return ErrInvalidDifficulty
	}
	return nil
}

func (i WordIssue) Validate() error {
	desc := strings.TrimSpace(i.Description)
	if desc == "" {
		return ErrEmptyIssue
	}
	if utf8.RuneCountInString(desc) > 500 {
		return ErrIssueTooLong
	}
	return nil
}

// Accuracy returns the share of correct answers as a whole percentage.
func (s Session) Accuracy() int {
	return Percent(s.CorrectCount, s.TotalCount)
}

func ValidateUsername(name string) error {
	n := utf8.RuneCountInString(name)
	if n < 3 || n > 30 {
		return ErrInvalidUsername
	}
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' || r == '-' {
			continue
		}
		return ErrInvalidUsername
	}
	return nil
}

func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	return nil
}

func ValidatePassword(pw string) error {
	if utf8.RuneCountInString(pw) < 8 {
		return ErrWeakPassword
	}
	return nil
}
