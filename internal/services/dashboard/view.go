package dashboard

import (
	"encoding/json"
	"log"
	"sync"
)

// Stable element identifiers shared with the page renderer.
const (
	ElemDuration          = "duration"
	ElemPumpStatus        = "pumpStatus"
	ElemCountdown         = "countdown"
	ElemCropName          = "cropName"
	ElemCropInfo          = "cropInfo"
	ElemToast             = "toast"
	ElemLocalLink         = "local-esp32-status"
	ElemRemoteLink        = "remote-esp32-status"
	ElemTemperatureStatus = "temperature-status"
	ElemHumidityStatus    = "humidity-status"
	ElemMoistureStatus    = "moisture-status"

	ChartSoilMoisture = "soilMoistureChart"
	ChartTemperature  = "temperatureChart"
	ChartHumidity     = "humidityChart"
)

type Element struct {
	Text  string `json:"text"`
	Class string `json:"class"`
	Value string `json:"value"`
}

// Notice is a blocking alert; renderers show each sequence number once.
type Notice struct {
	Seq     uint64 `json:"seq"`
	Message string `json:"message"`
}

type ChartSeries struct {
	Label  string     `json:"label"`
	Color  string     `json:"color"`
	MinY   float64    `json:"min_y"`
	MaxY   float64    `json:"max_y"`
	Labels []string   `json:"labels"`
	Values []*float64 `json:"values"`
	// Redraws counts the chart updates.
	Redraws int `json:"redraws"`
}

// Page is everything the renderer draws.
type Page struct {
	Version  uint64                 `json:"version"`
	DarkMode bool                   `json:"dark_mode"`
	Elements map[string]Element     `json:"elements"`
	Crop     *CropCard              `json:"crop"`
	Charts   map[string]ChartSeries `json:"charts"`
	Alert    Notice                 `json:"alert"`
}

func (p Page) clone() Page {
	out := p
	out.Elements = make(map[string]Element, len(p.Elements))
	for k, v := range p.Elements {
		out.Elements[k] = v
	}
	out.Charts = make(map[string]ChartSeries, len(p.Charts))
	for k, v := range p.Charts {
		v.Labels = append([]string(nil), v.Labels...)
		v.Values = append([]*float64(nil), v.Values...)
		out.Charts[k] = v
	}
	if p.Crop != nil {
		c := p.Crop.clone()
		out.Crop = &c
	}
	return out
}

// View owns the page state. Every mutation is pushed to subscribers as JSON.
type View struct {
	mu   sync.RWMutex
	page Page
	subs map[chan []byte]struct{}
	log  *log.Logger
}

func NewView(logger *log.Logger) *View {
	if logger == nil {
		logger = log.Default()
	}
	v := &View{
		page: Page{
			Elements: map[string]Element{
				ElemDuration:   {},
				ElemPumpStatus: {Text: "OFF", Class: pumpOffClass},
				ElemCountdown:  {},
				ElemCropName:   {},
				ElemCropInfo:   {},
				ElemToast:      {Class: "hidden"},
			},
			Charts: make(map[string]ChartSeries, len(chartSpecs)),
		},
		subs: make(map[chan []byte]struct{}),
		log:  logger,
	}
	for _, id := range indicatorIDs {
		v.page.Elements[id] = Element{Text: vocabularyFor(id).Down, Class: statusClass(false)}
	}
	for id, spec := range chartSpecs {
		v.page.Charts[id] = spec
	}
	return v
}

func (v *View) update(fn func(p *Page)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fn(&v.page)
	v.page.Version++
	if len(v.subs) == 0 {
		return
	}
	b, err := json.Marshal(v.page)
	if err != nil {
		v.log.Printf("view: marshal error: %v", err)
		return
	}
	for ch := range v.subs {
		select {
		case ch <- b:
		default:
			// slow subscriber, it catches up with the next frame
		}
	}
}

func (v *View) setElement(id string, fn func(e *Element)) {
	v.update(func(p *Page) {
		e := p.Elements[id]
		fn(&e)
		p.Elements[id] = e
	})
}

func (v *View) SetText(id, text string) {
	v.setElement(id, func(e *Element) { e.Text = text })
}

func (v *View) SetClass(id, class string) {
	v.setElement(id, func(e *Element) { e.Class = class })
}

func (v *View) SetValue(id, value string) {
	v.setElement(id, func(e *Element) { e.Value = value })
}

// SetBadge sets text and class in one frame.
func (v *View) SetBadge(id, text, class string) {
	v.setElement(id, func(e *Element) {
		e.Text = text
		e.Class = class
	})
}

func (v *View) Alert(message string) {
	v.update(func(p *Page) {
		p.Alert = Notice{Seq: p.Alert.Seq + 1, Message: message}
	})
}

func (v *View) SetDarkMode(on bool) {
	v.update(func(p *Page) { p.DarkMode = on })
}

func (v *View) DarkMode() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.page.DarkMode
}

func (v *View) RenderCrop(card CropCard) {
	v.update(func(p *Page) {
		c := card.clone()
		p.Crop = &c
	})
}

func (v *View) ClearCrop() {
	v.update(func(p *Page) { p.Crop = nil })
}

// SetCropAction swaps the action control of the card on screen.
func (v *View) SetCropAction(action CropAction) {
	v.update(func(p *Page) {
		if p.Crop != nil {
			p.Crop.Action = action
			p.Crop.ActionLabel = action.Label()
		}
	})
}

// Crop returns a copy of the card on screen, or nil.
func (v *View) Crop() *CropCard {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.page.Crop == nil {
		return nil
	}
	c := v.page.Crop.clone()
	return &c
}

func (v *View) Element(id string) Element {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.page.Elements[id]
}

func (v *View) Page() Page {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.page.clone()
}

// Subscribe returns a channel of page frames starting with the current page.
func (v *View) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 16)
	v.mu.Lock()
	if b, err := json.Marshal(v.page); err == nil {
		ch <- b
	}
	v.subs[ch] = struct{}{}
	v.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.subs, ch)
			v.mu.Unlock()
		})
	}
}
