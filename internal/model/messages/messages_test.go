package messages

import (
	"encoding/json"
	"testing"

	"github.com/LeonardoBeccarini/sdcc_dashboard/internal/model/entities"
)

func TestSensorData_Unmarshal(t *testing.T) {
	testCases := []struct {
		name       string
		body       string
		wantErr    bool
		wantTemp   float64
		wantMillis *int64
	}{
		{name: "numbers", body: `{"temperature":21.5,"humidity":40,"soil_moisture":1800,"millis":900}`, wantTemp: 21.5, wantMillis: ptr(900)},
		{name: "strings", body: `{"temperature":" 19 ","humidity":"40","soil_moisture":"1800","millis":"12"}`, wantTemp: 19, wantMillis: ptr(12)},
		{name: "no millis", body: `{"temperature":-101,"humidity":40,"soil_moisture":1800}`, wantTemp: -101},
		{name: "nulls", body: `{"temperature":null,"humidity":null,"soil_moisture":null,"millis":0}`, wantErr: true},
		{name: "garbage value", body: `{"temperature":"warm","humidity":40,"soil_moisture":1800}`, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var d SensorData
			if err := json.Unmarshal([]byte(tc.body), &d); err != nil {
				t.Fatalf("Expected no decode error, got %v", err)
			}
			snap, err := d.Snapshot()
			if tc.wantErr {
				if err == nil {
					t.Errorf("Expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if snap.Temperature.Value != tc.wantTemp {
				t.Errorf("Expected temperature %v, got %v", tc.wantTemp, snap.Temperature.Value)
			}
			if (snap.Millis == nil) != (tc.wantMillis == nil) || (snap.Millis != nil && *snap.Millis != *tc.wantMillis) {
				t.Errorf("Expected millis %v, got %v", tc.wantMillis, snap.Millis)
			}
		})
	}
}

func ptr(v int64) *int64 { return &v }

func TestCropInfoResponse_Profile(t *testing.T) {
	testCases := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "object", body: `{"crop":"wheat","info":{"temperature":"15-25°C","soil_moisture":"Moderate","humidity":"40-60%","irrigation_tips":["a"]}}`},
		{name: "string", body: `{"crop":"wheat","info":"{\"temperature\":\"15-25°C\",\"soil_moisture\":\"Moderate\",\"humidity\":\"40-60%\",\"irrigation_tips\":[\"a\"]}"}`},
		{name: "missing", body: `{"crop":"wheat"}`, wantErr: true},
		{name: "null", body: `{"crop":"wheat","info":null}`, wantErr: true},
		{name: "bad string", body: `{"crop":"wheat","info":"sorry"}`, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var r CropInfoResponse
			if err := json.Unmarshal([]byte(tc.body), &r); err != nil {
				t.Fatalf("Expected no decode error, got %v", err)
			}
			p, err := r.Profile()
			if tc.wantErr {
				if err == nil {
					t.Errorf("Expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if p.Crop != "wheat" || p.Temperature != "15-25°C" || len(p.IrrigationTips) != 1 {
				t.Errorf("Expected wheat profile, got %+v", p)
			}
		})
	}
}

func TestPumpCommand_JSON(t *testing.T) {
	b, _ := json.Marshal(PumpCommand{Action: entities.StateOn, Duration: 10})
	if string(b) != `{"action":"on","duration":10}` {
		t.Errorf("Expected backend command shape, got %s", b)
	}
	if !(PumpResponse{Status: "success"}).OK() || (PumpResponse{Status: "error"}).OK() {
		t.Errorf("Expected only success to be OK")
	}
}
