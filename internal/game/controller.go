// Package game implements the quiz session state machine. A Controller is not
// safe for concurrent use; its host serializes Start, Tick and Submit.
package game

import (
	"fmt"

	"trivia-service/internal/domain"
)

// Controller owns one quiz session over a fixed bank.
type Controller struct {
	bank   domain.Bank
	rules  domain.Rules
	notify func(domain.Event)

	phase  domain.Phase
	state  domain.SessionState
	result *domain.Result
}

// NewController returns an idle controller. The bank must have passed
// bank.Validate. notify may be nil.
func NewController(bank domain.Bank, rules domain.Rules, notify func(domain.Event)) *Controller {
	return &Controller{
		bank:   bank,
		rules:  rules,
		notify: notify,
		phase:  domain.PhaseIdle,
		state:  domain.SessionState{RemainingSeconds: rules.SessionSeconds},
	}
}

// Start resets the session and enters the active phase. It is valid in any
// phase and doubles as restart.
func (c *Controller) Start() {
	c.phase = domain.PhaseActive
	c.result = nil
	c.state = domain.SessionState{
		QuestionIndex:    0,
		Score:            0,
		RemainingSeconds: c.rules.SessionSeconds,
		Active:           true,
	}
	c.emit(domain.EventQuestion)
	c.emit(domain.EventScore)
	c.emit(domain.EventTime)
}

// Tick advances the countdown by one second.
func (c *Controller) Tick() error {
	if c.phase != domain.PhaseActive {
		return fmt.Errorf("tick while %s: %w", c.phase, domain.ErrInvalidOperation)
	}
	if c.state.RemainingSeconds > 0 {
		c.state.RemainingSeconds--
	}
	c.emit(domain.EventTime)
	if c.state.RemainingSeconds == 0 {
		c.finish(domain.ReasonTimeUp)
	}
	return nil
}

// Submit scores choice against the current question and advances.
func (c *Controller) Submit(choice int) error {
	if c.phase != domain.PhaseActive {
		return fmt.Errorf("submit while %s: %w", c.phase, domain.ErrInvalidOperation)
	}
	q := c.bank.Questions[c.state.QuestionIndex]
	if choice < 0 || choice >= len(q.Choices) {
		return fmt.Errorf("choice %d of %d: %w", choice, len(q.Choices), domain.ErrChoiceOutOfRange)
	}

	if q.Answer.Accepts(choice) {
		c.state.Score += c.rules.PointsPerCorrect
	}

	if c.state.QuestionIndex == len(c.bank.Questions)-1 {
		if c.state.Score >= c.rules.BonusThreshold {
			c.state.Score += c.state.RemainingSeconds * c.rules.BonusPerSecond
		}
		c.emit(domain.EventScore)
		c.finish(domain.ReasonCompleted)
		return nil
	}

	c.state.QuestionIndex++
	c.emit(domain.EventScore)
	c.emit(domain.EventQuestion)
	return nil
}

func (c *Controller) finish(reason domain.Reason) {
	c.phase = domain.PhaseFinished
	c.state.Active = false
	c.result = &domain.Result{
		Reason:         reason,
		Score:          c.state.Score,
		ElapsedSeconds: c.rules.SessionSeconds - c.state.RemainingSeconds,
		IsHighScore:    c.state.Score > c.rules.HighScoreAbove,
	}
	c.emit(domain.EventFinished)
}

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() domain.Phase { return c.phase }

// State returns a copy of the session state.
func (c *Controller) State() domain.SessionState { return c.state }

// Result returns the end-of-game record once the session has finished.
func (c *Controller) Result() (domain.Result, bool) {
	if c.result == nil {
		return domain.Result{}, false
	}
	return *c.result, true
}

// Choices returns the current question's choice list.
func (c *Controller) Choices() []string {
	choices := c.bank.Questions[c.state.QuestionIndex].Choices
	out := make([]string, len(choices))
	copy(out, choices)
	return out
}

// Snapshot returns a read-only view of the session.
func (c *Controller) Snapshot() domain.Snapshot {
	q := c.bank.Questions[c.state.QuestionIndex]
	snap := domain.Snapshot{
		Phase:            c.phase,
		QuestionIndex:    c.state.QuestionIndex,
		QuestionCount:    len(c.bank.Questions),
		Prompt:           q.Prompt,
		Choices:          c.Choices(),
		Score:            c.state.Score,
		RemainingSeconds: c.state.RemainingSeconds,
		Clock:            FormatClock(c.state.RemainingSeconds),
	}
	if c.result != nil {
		r := *c.result
		snap.Result = &r
	}
	return snap
}

func (c *Controller) emit(t domain.EventType) {
	if c.notify == nil {
		return
	}
	c.notify(domain.Event{Type: t, Snapshot: c.Snapshot()})
}

// FormatClock renders seconds as MM:SS.
func FormatClock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", (seconds/60)%60, seconds%60)
}
