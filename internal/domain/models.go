package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Answer marks the accepted choice of a question: either a concrete index
// or AnyChoiceCorrect.
type Answer struct {
	any   bool
	index int
}

// AnyChoiceCorrect accepts every listed choice.
func AnyChoiceCorrect() Answer {
	return Answer{any: true}
}

// ChoiceAt accepts only the choice at index i.
func ChoiceAt(i int) Answer {
	return Answer{index: i}
}

// IsAny reports whether every choice is accepted.
func (a Answer) IsAny() bool { return a.any }

// Index returns the accepted index; ok is false for AnyChoiceCorrect.
func (a Answer) Index() (int, bool) {
	if a.any {
		return 0, false
	}
	return a.index, true
}

// Accepts reports whether choice is a correct submission.
func (a Answer) Accepts(choice int) bool {
	return a.any || a.index == choice
}

func (a Answer) String() string {
	if a.any {
		return "any"
	}
	return fmt.Sprintf("%d", a.index)
}

// MarshalJSON encodes AnyChoiceCorrect as "any" and an index as a number.
func (a Answer) MarshalJSON() ([]byte, error) {
	if a.any {
		return []byte(`"any"`), nil
	}
	return json.Marshal(a.index)
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "any" {
			return fmt.Errorf("unknown answer %q", s)
		}
		*a = AnyChoiceCorrect()
		return nil
	}
	var i int
	if err := json.Unmarshal(data, &i); err != nil {
		return fmt.Errorf("decode answer: %w", err)
	}
	*a = ChoiceAt(i)
	return nil
}

// Question is a multiple-choice question.
type Question struct {
	Prompt  string   `json:"prompt"`
	Choices []string `json:"choices"`
	Answer  Answer   `json:"answer"`
}

// Bank is an ordered, immutable set of questions.
type Bank struct {
	ID        string     `json:"id"`
	Questions []Question `json:"questions"`
}

// Rules holds the scoring and timing constants of a session.
type Rules struct {
	SessionSeconds   int
	PointsPerCorrect int
	BonusThreshold   int
	BonusPerSecond   int
	HighScoreAbove   int
}

// DefaultRules returns the standard 60-second game.
func DefaultRules() Rules {
	return Rules{
		SessionSeconds:   60,
		PointsPerCorrect: 100,
		BonusThreshold:   700,
		BonusPerSecond:   10,
		HighScoreAbove:   500,
	}
}

// Phase is the lifecycle stage of a session.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseActive   Phase = "active"
	PhaseFinished Phase = "finished"
)

// Reason explains why a session finished.
type Reason string

const (
	ReasonTimeUp    Reason = "time_up"
	ReasonCompleted Reason = "completed"
)

// SessionState is the mutable state of one playthrough.
type SessionState struct {
	QuestionIndex    int  `json:"questionIndex"`
	Score            int  `json:"score"`
	RemainingSeconds int  `json:"remainingSeconds"`
	Active           bool `json:"active"`
}

// Result is the structured end-of-game record. Presentation layers format it.
type Result struct {
	Reason         Reason `json:"reason"`
	Score          int    `json:"score"`
	ElapsedSeconds int    `json:"elapsedSeconds"`
	IsHighScore    bool   `json:"isHighScore"`
}

// Snapshot is a read-only view of a session for rendering.
type Snapshot struct {
	Phase            Phase    `json:"phase"`
	QuestionIndex    int      `json:"questionIndex"`
	QuestionCount    int      `json:"questionCount"`
	Prompt           string   `json:"prompt"`
	Choices          []string `json:"choices"`
	Score            int      `json:"score"`
	RemainingSeconds int      `json:"remainingSeconds"`
	Clock            string   `json:"clock"`
	Result           *Result  `json:"result,omitempty"`
}

// EventType names an outbound notification.
type EventType string

const (
	EventSnapshot EventType = "snapshot"
	EventQuestion EventType = "question"
	EventScore    EventType = "score"
	EventTime     EventType = "time"
	EventFinished EventType = "finished"
)

// Event pairs a notification type with the state it describes.
type Event struct {
	Type     EventType `json:"type"`
	Snapshot Snapshot  `json:"snapshot"`
}

// ScoreEntry is a finished game on a bank's leaderboard.
type ScoreEntry struct {
	SessionID      string    `json:"sessionId"`
	BankID         string    `json:"bankId"`
	Player         string    `json:"player"`
	Score          int       `json:"score"`
	ElapsedSeconds int       `json:"elapsedSeconds"`
	Reason         Reason    `json:"reason"`
	FinishedAt     time.Time `json:"finishedAt"`
}
