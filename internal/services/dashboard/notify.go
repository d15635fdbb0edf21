package dashboard

import (
	"sync"
	"time"
)

// ToastDuration is how long a toast stays visible.
const ToastDuration = 3 * time.Second

type ToastKind int

const (
	ToastInfo ToastKind = iota
	ToastError
)

// Notifier shows transient messages. A new message restarts the hide timer;
// there is no queue.
type Notifier struct {
	view  *View
	after afterFuncFactory

	mu    sync.Mutex
	timer stopper
	gen   uint64
}

func NewNotifier(view *View) *Notifier {
	return &Notifier{view: view, after: realAfterFunc}
}

func (n *Notifier) Show(message string, kind ToastKind) {
	class := "show"
	if kind == ToastError {
		class = "show error"
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
	}
	n.gen++
	gen := n.gen
	n.view.SetBadge(ElemToast, message, class)
	n.timer = n.after(ToastDuration, func() { n.hide(gen) })
}

func (n *Notifier) hide(gen uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	// a newer toast owns the element
	if gen != n.gen {
		return
	}
	n.timer = nil
	n.view.SetClass(ElemToast, "hidden")
}

// Vocabulary is the pair of words an indicator shows.
type Vocabulary struct {
	Up   string
	Down string
}

var (
	LinkVocabulary   = Vocabulary{Up: "Connected", Down: "Disconnected"}
	SensorVocabulary = Vocabulary{Up: "Working", Down: "Damaged"}
)

func (v Vocabulary) label(up bool) string {
	if up {
		return v.Up
	}
	return v.Down
}

func statusClass(up bool) string {
	if up {
		return "status connected"
	}
	return "status disconnected"
}

var indicatorIDs = []string{
	ElemLocalLink,
	ElemRemoteLink,
	ElemTemperatureStatus,
	ElemHumidityStatus,
	ElemMoistureStatus,
}

// StatusBoard renders the connection and sensor indicators and reports
// each update to metrics and the event sink.
type StatusBoard struct {
	view    *View
	events  EventSink
	metrics *Metrics
}

func NewStatusBoard(view *View, events EventSink, metrics *Metrics) *StatusBoard {
	if events == nil {
		events = NopEvents{}
	}
	return &StatusBoard{view: view, events: events, metrics: metrics}
}

func (b *StatusBoard) Update(id string, up bool, vocab Vocabulary) {
	label := vocab.label(up)
	b.view.SetBadge(id, label, statusClass(up))
	b.metrics.SetIndicator(id, up)
	b.events.Indicator(id, up, label)
}
