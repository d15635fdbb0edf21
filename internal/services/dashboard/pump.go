package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/LeonardoBeccarini/sdcc_dashboard/internal/model/entities"
	"github.com/LeonardoBeccarini/sdcc_dashboard/internal/model/messages"
)

const (
	pumpOnClass  = "badge badge-success"
	pumpOffClass = "badge badge-secondary"

	pumpFailedAlert = "Failed to control pump"
)

// countdown is one auto-off timer. Only the controller that started it may
// act on its ticks.
type countdown struct {
	ticker ticker
	done   chan struct{}
	once   sync.Once
	left   int
}

func (c *countdown) stop() {
	c.once.Do(func() {
		c.ticker.Stop()
		close(c.done)
	})
}

// PumpController sends on/off commands and runs the auto-off countdown.
type PumpController struct {
	up      *Upstream
	view    *View
	events  EventSink
	metrics *Metrics
	log     *log.Logger

	newTicker tickerFactory

	mu        sync.Mutex
	countdown *countdown
}

func NewPumpController(up *Upstream, view *View, events EventSink, metrics *Metrics, logger *log.Logger) *PumpController {
	if events == nil {
		events = NopEvents{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &PumpController{
		up:        up,
		view:      view,
		events:    events,
		metrics:   metrics,
		log:       logger,
		newTicker: newRealTicker,
	}
}

// ControlPump parses the duration the way the duration input is read
// (leading integer, otherwise 0) and forces it to 0 when switching off.
func (p *PumpController) ControlPump(ctx context.Context, action entities.PumpState, durationInput string) error {
	duration := 0
	if action == entities.StateOn {
		duration = parseLeadingInt(durationInput)
	}
	return p.send(ctx, action, duration, false)
}

func (p *PumpController) send(ctx context.Context, action entities.PumpState, duration int, automatic bool) error {
	err := p.command(ctx, action, duration)
	p.metrics.PumpCommand(string(action), err)
	if err != nil {
		p.log.Printf("pump: %s failed: %v", action, err)
		p.view.Alert(pumpFailedAlert)
		return err
	}
	p.apply(action, duration)
	p.events.PumpChanged(action, time.Duration(duration)*time.Minute, automatic)
	return nil
}

func (p *PumpController) command(ctx context.Context, action entities.PumpState, duration int) error {
	resp, err := p.up.Do(ctx, http.MethodPost, "/control-pump", nil, messages.PumpCommand{Action: action, Duration: duration})
	if err != nil {
		return err
	}
	var out messages.PumpResponse
	if err := resp.Decode(&out); err != nil {
		return err
	}
	if !out.OK() {
		if out.Message != "" {
			return fmt.Errorf("control-pump: %s", out.Message)
		}
		return errors.New("control-pump: backend refused the command")
	}
	return nil
}

func (p *PumpController) apply(action entities.PumpState, duration int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopCountdownLocked()
	p.view.SetText(ElemCountdown, "")
	if action == entities.StateOff {
		p.view.SetBadge(ElemPumpStatus, "OFF", pumpOffClass)
		return
	}
	p.view.SetBadge(ElemPumpStatus, "ON", pumpOnClass)
	if duration > 0 {
		p.startCountdownLocked(duration * 60)
	}
}

func (p *PumpController) stopCountdownLocked() {
	if p.countdown != nil {
		p.countdown.stop()
		p.countdown = nil
	}
}

func (p *PumpController) startCountdownLocked(seconds int) {
	cd := &countdown{
		ticker: p.newTicker(time.Second),
		done:   make(chan struct{}),
		left:   seconds,
	}
	p.countdown = cd
	go p.runCountdown(cd)
}

func (p *PumpController) runCountdown(cd *countdown) {
	for {
		select {
		case <-cd.done:
			return
		case <-cd.ticker.C():
		}
		if p.tick(cd) {
			// same path as a manual switch off
			_ = p.send(context.Background(), entities.StateOff, 0, true)
			return
		}
	}
}

// tick renders the remaining time and reports whether the countdown ran out.
func (p *PumpController) tick(cd *countdown) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.countdown != cd {
		return false
	}
	p.view.SetText(ElemCountdown, fmt.Sprintf("Auto-off in: %dm %ds", cd.left/60, cd.left%60))
	if cd.left <= 0 {
		p.stopCountdownLocked()
		return true
	}
	cd.left--
	return false
}

// Active reports whether an auto-off countdown is running.
func (p *PumpController) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.countdown != nil
}

func (p *PumpController) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopCountdownLocked()
}

// maxDurationMinutes caps a typed duration at one week.
const maxDurationMinutes = 7 * 24 * 60

// parseLeadingInt reads an optional sign and the digits that follow,
// ignoring leading blanks. Anything else yields 0. The magnitude is capped at
// maxDurationMinutes.
func parseLeadingInt(s string) int {
	s = strings.TrimLeft(s, " \t\n\r")
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n := 0
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = min(n*10+int(s[i]-'0'), maxDurationMinutes)
	}
	if neg {
		return -n
	}
	return n
}
