package dashboard

// TimeSeriesChart redraws a bounded labeled series. A nil value is a gap.
type TimeSeriesChart interface {
	Update(labels []string, values []*float64)
}

var chartSpecs = map[string]ChartSeries{
	ChartSoilMoisture: {Label: "Soil Moisture (%)", Color: "rgba(75, 192, 192, 1)", MinY: 0, MaxY: 100},
	ChartTemperature:  {Label: "Temperature (°C)", Color: "rgba(255, 99, 132, 1)", MinY: -20, MaxY: 60},
	ChartHumidity:     {Label: "Humidity (%)", Color: "rgba(54, 162, 235, 1)", MinY: 0, MaxY: 100},
}

type viewChart struct {
	view *View
	id   string
}

// Chart returns the chart widget drawn under id.
func (v *View) Chart(id string) TimeSeriesChart {
	return viewChart{view: v, id: id}
}

func (c viewChart) Update(labels []string, values []*float64) {
	labels = append([]string(nil), labels...)
	values = append([]*float64(nil), values...)
	c.view.update(func(p *Page) {
		s := p.Charts[c.id]
		s.Labels = labels
		s.Values = values
		s.Redraws++
		p.Charts[c.id] = s
	})
}
