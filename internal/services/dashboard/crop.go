package dashboard

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/LeonardoBeccarini/sdcc_dashboard/internal/model/entities"
	"github.com/LeonardoBeccarini/sdcc_dashboard/internal/model/messages"
)

var (
	ErrEmptyCropName = errors.New("crop name is empty")
	// ErrNoCropAction is returned when the card does not offer the requested action.
	ErrNoCropAction = errors.New("crop action not available")
)

const (
	labelTemperature  = "Temperature Range"
	labelSoilMoisture = "Soil Moisture Level"
	labelHumidity     = "Humidity Range"
)

// CropAction is the single control shown under the crop card.
type CropAction string

const (
	CropActionConfirm CropAction = "confirm"
	CropActionReset   CropAction = "reset"
)

func (a CropAction) Label() string {
	switch a {
	case CropActionConfirm:
		return "Confirm Crop"
	case CropActionReset:
		return "Reset Selection"
	}
	return ""
}

// CardLine is one "Label: value" row of the card.
type CardLine struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// CropCard is the rendered crop profile.
type CropCard struct {
	Crop   string     `json:"crop"`
	Header string     `json:"header"`
	Lines  []CardLine `json:"lines"`
	Tips   []string   `json:"tips"`
	Action CropAction `json:"action"`
	// ActionLabel is the button caption.
	ActionLabel string `json:"action_label"`
}

func (c CropCard) clone() CropCard {
	c.Lines = append([]CardLine(nil), c.Lines...)
	c.Tips = append([]string(nil), c.Tips...)
	return c
}

// value returns the text of the line with the given label, or N/A.
func (c CropCard) value(label string) string {
	for _, l := range c.Lines {
		if l.Label == label {
			return l.Value
		}
	}
	return entities.ThresholdUnset
}

func (c CropCard) thresholds() entities.Thresholds {
	return entities.Thresholds{
		Temperature:  c.value(labelTemperature),
		SoilMoisture: c.value(labelSoilMoisture),
		Humidity:     c.value(labelHumidity),
	}
}

func newCropCard(name string, p entities.CropProfile) CropCard {
	return CropCard{
		Crop:   name,
		Header: "Crop: " + capitalize(p.Crop, name),
		Lines: []CardLine{
			{Label: labelTemperature, Value: p.Temperature},
			{Label: labelSoilMoisture, Value: p.SoilMoisture},
			{Label: labelHumidity, Value: p.Humidity},
		},
		Tips:        append([]string(nil), p.IrrigationTips...),
		Action:      CropActionConfirm,
		ActionLabel: CropActionConfirm.Label(),
	}
}

func capitalize(s, fallback string) string {
	if s == "" {
		s = fallback
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// CropAdvisor looks up crop guidance and confirms or resets the thresholds
// the backend irrigates by. Operations are serialized.
type CropAdvisor struct {
	up       *Upstream
	view     *View
	notifier *Notifier
	events   EventSink
	metrics  *Metrics
	log      *log.Logger

	mu sync.Mutex
}

func NewCropAdvisor(up *Upstream, view *View, notifier *Notifier, events EventSink, metrics *Metrics, logger *log.Logger) *CropAdvisor {
	if events == nil {
		events = NopEvents{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &CropAdvisor{up: up, view: view, notifier: notifier, events: events, metrics: metrics, log: logger}
}

func (a *CropAdvisor) FetchCropInfo(ctx context.Context, name string) (err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	defer func() { a.metrics.CropAction("lookup", err) }()

	name = strings.TrimSpace(name)
	a.view.SetValue(ElemCropName, name)
	if name == "" {
		a.view.Alert("Please enter a crop name!")
		return ErrEmptyCropName
	}

	// the backend answers errors with {"error": ...} and a 4xx/5xx status
	resp, err := a.up.Do(ctx, http.MethodGet, "/crop-info", url.Values{"crop": {name}}, nil)
	if resp == nil {
		a.log.Printf("crop: lookup %q: %v", name, err)
		a.view.Alert("Failed to fetch crop info.")
		return err
	}
	var out messages.CropInfoResponse
	if err := resp.Decode(&out); err != nil {
		a.log.Printf("crop: lookup %q: %v", name, err)
		a.view.Alert("Failed to fetch crop info.")
		return err
	}
	if out.Error != "" {
		a.view.Alert(out.Error)
		return errors.New(out.Error)
	}
	profile, err := out.Profile()
	if err != nil {
		a.log.Printf("crop: lookup %q: %v", name, err)
		a.view.Alert("Failed to fetch crop info.")
		return err
	}
	a.view.RenderCrop(newCropCard(name, profile))
	return nil
}

func (a *CropAdvisor) Confirm(ctx context.Context) (err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	card := a.view.Crop()
	if card == nil || card.Action != CropActionConfirm {
		return ErrNoCropAction
	}
	defer func() { a.metrics.CropAction("confirm", err) }()

	th := card.thresholds()
	resp, err := a.up.Do(ctx, http.MethodPost, "/confirm_crop", nil, th)
	if resp == nil {
		a.log.Printf("crop: confirm: %v", err)
		a.notifier.Show("❌ Could not confirm crop parameters.", ToastError)
		return err
	}
	var out messages.ConfirmCropResponse
	if derr := resp.Decode(&out); derr != nil {
		a.notifier.Show("❌ Could not confirm crop parameters.", ToastError)
		return derr
	}
	if !resp.OK() {
		msg := out.Message
		if msg == "" {
			msg = "❌ Failed to confirm parameters."
		}
		a.notifier.Show(msg, ToastError)
		return &StatusError{Method: http.MethodPost, Path: "/confirm_crop", Code: resp.Code}
	}

	a.view.SetCropAction(CropActionReset)
	a.notifier.Show("✅ Crop parameters confirmed and published.", ToastInfo)
	a.events.CropConfirmed(card.Crop, th, false)
	return nil
}

func (a *CropAdvisor) Reset(ctx context.Context) (err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	card := a.view.Crop()
	if card == nil || card.Action != CropActionReset {
		return ErrNoCropAction
	}
	defer func() { a.metrics.CropAction("reset", err) }()

	a.view.SetValue(ElemCropName, "")
	a.view.ClearCrop()

	resp, err := a.up.Do(ctx, http.MethodPost, "/confirm_crop", nil, entities.DefaultThresholds)
	if resp == nil {
		a.log.Printf("crop: reset: %v", err)
		a.notifier.Show("❌ Reset request failed.", ToastError)
		return err
	}
	if !resp.OK() {
		var out messages.ConfirmCropResponse
		if err := resp.Decode(&out); err != nil {
			a.log.Printf("crop: reset: %v", err)
			a.notifier.Show("❌ Reset request failed.", ToastError)
			return err
		}
		msg := out.Message
		if msg == "" {
			msg = "Failed to reset crop."
		}
		a.notifier.Show(msg, ToastError)
		return &StatusError{Method: http.MethodPost, Path: "/confirm_crop", Code: resp.Code}
	}

	a.notifier.Show("🔄 Crop reset to default thresholds.", ToastInfo)
	a.events.CropConfirmed("", entities.DefaultThresholds, true)
	return nil
}
