// SPDX-License-Identifier: Apache-2.0

package conectric

import (
	"errors"
	"testing"
)

// ============================================================
// Conversion Formula Tests
// ============================================================

func TestDecodeTemperature(t *testing.T) {
	tests := []struct {
		name       string
		raw        uint64
		fahrenheit bool
		expected   float64
		unit       string
	}{
		{name: "midscale celsius", raw: 0x8000, expected: 41.01, unit: "C"},
		{name: "zero celsius", raw: 0x0000, expected: -46.85, unit: "C"},
		{name: "midscale fahrenheit", raw: 0x8000, fahrenheit: true, expected: 105.82, unit: "F"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, unit := decodeTemperature(tt.raw, tt.fahrenheit)
			if got != tt.expected {
				t.Errorf("decodeTemperature(0x%04x) = %v, want %v", tt.raw, got, tt.expected)
			}
			if unit != tt.unit {
				t.Errorf("unit = %q, want %q", unit, tt.unit)
			}
		})
	}
}

func TestDecodeHumidity(t *testing.T) {
	if got := decodeHumidity(0x4000); got != 25.25 {
		t.Errorf("decodeHumidity(0x4000) = %v, want 25.25", got)
	}
	if got := decodeHumidity(0); got != -6.0 {
		t.Errorf("decodeHumidity(0) = %v, want -6", got)
	}
}

func TestBattery(t *testing.T) {
	got, err := battery("1e80")
	if err != nil {
		t.Fatalf("battery: %v", err)
	}
	if got != 3.0 {
		t.Errorf("battery(1e..) = %v, want 3.0", got)
	}
	if _, err := battery(""); !errors.Is(err, ErrRecordTooShort) {
		t.Errorf("battery on empty data: %v, want ErrRecordTooShort", err)
	}
}

func TestLuxEstimate(t *testing.T) {
	tests := []struct {
		name     string
		adcIn    float64
		batt     float64
		expected float64
	}{
		{name: "dark", adcIn: 0, batt: 3.7, expected: 0},
		{name: "dim", adcIn: 100, batt: 3.7, expected: 18},
		{name: "bright", adcIn: 1000, batt: 3.7, expected: 1403},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := luxEstimate(tt.adcIn, tt.batt); got != tt.expected {
				t.Errorf("luxEstimate(%v, %v) = %v, want %v", tt.adcIn, tt.batt, got, tt.expected)
			}
		})
	}
}

func TestLightBucket(t *testing.T) {
	tests := []struct {
		lux      float64
		expected int
	}{
		{lux: 0, expected: 0},
		{lux: 49, expected: 0},
		{lux: 51, expected: 1},
		{lux: 1403, expected: 14},
		{lux: 1550, expected: 15},
		{lux: 1e6, expected: 15}, // capped
	}

	for _, tt := range tests {
		if got := lightBucket(tt.lux); got != tt.expected {
			t.Errorf("lightBucket(%v) = %d, want %d", tt.lux, got, tt.expected)
		}
	}
}

// ============================================================
// Temperature / Humidity Decoder Tests
// ============================================================

func TestDecodeTempHumidity_Legacy(t *testing.T) {
	res, err := decodePayload(TypeTempHumidity, "80004000", DefaultOptions())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.deliver || res.typ != TypeTempHumidity {
		t.Fatalf("deliver = %v, typ = %q", res.deliver, res.typ)
	}
	if res.payload["temperature"] != 41.01 {
		t.Errorf("temperature = %v, want 41.01", res.payload["temperature"])
	}
	if res.payload["temperatureUnit"] != "C" {
		t.Errorf("temperatureUnit = %v, want C", res.payload["temperatureUnit"])
	}
	if res.payload["humidity"] != 25.25 {
		t.Errorf("humidity = %v, want 25.25", res.payload["humidity"])
	}
	if _, ok := res.payload["battery"]; ok {
		t.Error("legacy layout must not report battery")
	}
}

func TestDecodeTempHumidity_WithBattery(t *testing.T) {
	// battery + 32-bit event count + temperature + humidity
	data := "1e" + "000000ff" + "8000" + "4000"

	res, err := decodePayload(TypeTempHumidity, data, DefaultOptions())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.payload["battery"] != 3.0 {
		t.Errorf("battery = %v, want 3.0", res.payload["battery"])
	}
	if res.payload["temperature"] != 41.01 {
		t.Errorf("temperature = %v, want 41.01", res.payload["temperature"])
	}
	if _, ok := res.payload["eventCount"]; ok {
		t.Error("eventCount must be absent unless enabled")
	}

	opts := DefaultOptions()
	opts.SendEventCount = true
	res, err = decodePayload(TypeTempHumidity, data, opts)
	if err != nil {
		t.Fatalf("decode with event count: %v", err)
	}
	if res.payload["eventCount"] != uint64(255) {
		t.Errorf("eventCount = %v, want 255", res.payload["eventCount"])
	}
}

func TestDecodeTempHumidity_Fahrenheit(t *testing.T) {
	opts := DefaultOptions()
	opts.UseFahrenheitTemps = true

	res, err := decodePayload(TypeTempHumidity, "80004000", opts)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.payload["temperature"] != 105.82 {
		t.Errorf("temperature = %v, want 105.82", res.payload["temperature"])
	}
	if res.payload["temperatureUnit"] != "F" {
		t.Errorf("temperatureUnit = %v, want F", res.payload["temperatureUnit"])
	}
}

func TestDecodeTempHumidity_Truncated(t *testing.T) {
	for _, data := range []string{"", "8000", "1e80004000"} {
		if _, err := decodePayload(TypeTempHumidity, data, DefaultOptions()); err == nil {
			t.Errorf("decode of %q should fail", data)
		}
	}
}

func TestDecodeTempHumidityAdc(t *testing.T) {
	// battery + temperature + humidity + adcIn + adcMax
	data := "25" + "8000" + "4000" + "03e8" + "0fff"

	res, err := decodePayload(TypeTempHumidityAdc, data, DefaultOptions())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.typ != TypeTempHumidityAdc {
		t.Errorf("typ = %q", res.typ)
	}
	if res.payload["battery"] != 3.7 {
		t.Errorf("battery = %v, want 3.7", res.payload["battery"])
	}
	if res.payload["adcIn"] != uint64(1000) {
		t.Errorf("adcIn = %v, want 1000", res.payload["adcIn"])
	}
	if res.payload["adcMax"] != uint64(4095) {
		t.Errorf("adcMax = %v, want 4095", res.payload["adcMax"])
	}
	if _, ok := res.payload["light"]; ok {
		t.Error("plain ADC variant must not report light")
	}
}

func TestDecodeTempHumidityLight(t *testing.T) {
	data := "25" + "8000" + "4000" + "03e8" + "0fff"

	res, err := decodePayload(TypeTempHumidityLight, data, DefaultOptions())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.typ != TypeTempHumidityLight {
		t.Errorf("typ = %q", res.typ)
	}
	if res.payload["light"] != 14 {
		t.Errorf("light = %v, want 14", res.payload["light"])
	}
	// Raw lux and ADC fields stay hidden by default.
	for _, key := range []string{"lux", "adcIn", "adcMax"} {
		if _, ok := res.payload[key]; ok {
			t.Errorf("%s must be absent unless enabled", key)
		}
	}

	opts := DefaultOptions()
	opts.SendRawLux = true
	opts.SendAdcWithLux = true
	res, err = decodePayload(TypeTempHumidityLight, data, opts)
	if err != nil {
		t.Fatalf("decode with lux options: %v", err)
	}
	if res.payload["lux"] != 1403.0 {
		t.Errorf("lux = %v, want 1403", res.payload["lux"])
	}
	if res.payload["adcIn"] != uint64(1000) {
		t.Errorf("adcIn = %v, want 1000", res.payload["adcIn"])
	}
}

func TestDecodeTempHumidityLight_WithEventCount(t *testing.T) {
	data := "25" + "00000001" + "8000" + "4000" + "03e8" + "0fff"

	opts := DefaultOptions()
	opts.SendEventCount = true
	res, err := decodePayload(TypeTempHumidityLight, data, opts)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.payload["eventCount"] != uint64(1) {
		t.Errorf("eventCount = %v, want 1", res.payload["eventCount"])
	}
	if res.payload["temperature"] != 41.01 {
		t.Errorf("temperature = %v, want 41.01", res.payload["temperature"])
	}
	if res.payload["light"] != 14 {
		t.Errorf("light = %v, want 14", res.payload["light"])
	}
}

// ============================================================
// Event Sensor Decoder Tests
// ============================================================

func TestDecodeMoisture_Events(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		moisture bool
	}{
		{name: "wet", data: "1e81", moisture: true},
		{name: "dry", data: "1e82", moisture: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := decodePayload(TypeMoisture, tt.data, DefaultOptions())
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if res.typ != TypeMoisture || !res.deliver {
				t.Fatalf("typ = %q, deliver = %v", res.typ, res.deliver)
			}
			if res.payload["moisture"] != tt.moisture {
				t.Errorf("moisture = %v, want %v", res.payload["moisture"], tt.moisture)
			}
			if res.payload["battery"] != 3.0 {
				t.Errorf("battery = %v, want 3.0", res.payload["battery"])
			}
		})
	}
}

func TestDecodeMoisture_Status(t *testing.T) {
	data := "1e" + "21" + "8000" + "4000"

	// Suppressed unless status messages are enabled.
	res, err := decodePayload(TypeMoisture, data, DefaultOptions())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.deliver {
		t.Fatal("status report should be suppressed by default")
	}
	if res.typ != TypeMoistureStatus {
		t.Errorf("typ = %q, want %q", res.typ, TypeMoistureStatus)
	}

	opts := DefaultOptions()
	opts.SendStatusMessages = true
	res, err = decodePayload(TypeMoisture, data, opts)
	if err != nil {
		t.Fatalf("decode with status: %v", err)
	}
	if !res.deliver || res.typ != TypeMoistureStatus {
		t.Fatalf("deliver = %v, typ = %q", res.deliver, res.typ)
	}
	if res.payload["temperature"] != 41.01 || res.payload["humidity"] != 25.25 {
		t.Errorf("temperature/humidity = %v/%v", res.payload["temperature"], res.payload["humidity"])
	}
}

func TestDecodeMoisture_UnknownMarker(t *testing.T) {
	if _, err := decodePayload(TypeMoisture, "1e99", DefaultOptions()); err == nil {
		t.Error("unknown marker should fail")
	}
}

func TestDecodeMotion(t *testing.T) {
	res, err := decodePayload(TypeMotion, "1e81", DefaultOptions())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.typ != TypeMotion || res.payload["motion"] != true {
		t.Errorf("typ = %q, motion = %v", res.typ, res.payload["motion"])
	}

	// Status report suppressed by default, re-typed when enabled.
	res, err = decodePayload(TypeMotion, "1e20", DefaultOptions())
	if err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if res.deliver {
		t.Error("motion status should be suppressed by default")
	}

	opts := DefaultOptions()
	opts.SendStatusMessages = true
	res, err = decodePayload(TypeMotion, "1e20", opts)
	if err != nil {
		t.Fatalf("decode status enabled: %v", err)
	}
	if !res.deliver || res.typ != TypeMotionStatus {
		t.Errorf("deliver = %v, typ = %q", res.deliver, res.typ)
	}
}

func TestDecodeMotion_EventCount(t *testing.T) {
	opts := DefaultOptions()
	opts.SendEventCount = true

	res, err := decodePayload(TypeMotion, "1e81000005", opts)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.payload["eventCount"] != uint64(5) {
		t.Errorf("eventCount = %v, want 5", res.payload["eventCount"])
	}

	// Short event frames simply omit the counter.
	res, err = decodePayload(TypeMotion, "1e81", opts)
	if err != nil {
		t.Fatalf("decode short: %v", err)
	}
	if _, ok := res.payload["eventCount"]; ok {
		t.Error("eventCount must be absent for short frames")
	}
}

func TestDecodeSwitch_Polarity(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		openValue bool
		typ       string
		expected  bool
	}{
		{name: "open event default polarity", data: "1e81", typ: TypeSwitch, expected: false},
		{name: "closed event default polarity", data: "1e82", typ: TypeSwitch, expected: true},
		{name: "open event inverted", data: "1e81", openValue: true, typ: TypeSwitch, expected: true},
		{name: "closed event inverted", data: "1e82", openValue: true, typ: TypeSwitch, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.SwitchOpenValue = tt.openValue
			res, err := decodePayload(TypeSwitch, tt.data, opts)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if res.typ != tt.typ {
				t.Errorf("typ = %q, want %q", res.typ, tt.typ)
			}
			if res.payload["switch"] != tt.expected {
				t.Errorf("switch = %v, want %v", res.payload["switch"], tt.expected)
			}
		})
	}
}

func TestDecodeSwitch_Status(t *testing.T) {
	res, err := decodePayload(TypeSwitch, "1e21", DefaultOptions())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.deliver {
		t.Error("switch status should be suppressed by default")
	}

	opts := DefaultOptions()
	opts.SendStatusMessages = true
	opts.SwitchOpenValue = true
	res, err = decodePayload(TypeSwitch, "1e21", opts)
	if err != nil {
		t.Fatalf("decode enabled: %v", err)
	}
	if res.typ != TypeSwitchStatus || res.payload["switch"] != true {
		t.Errorf("typ = %q, switch = %v", res.typ, res.payload["switch"])
	}
}

func TestDecodeBoot(t *testing.T) {
	tests := []struct {
		data  string
		cause string
	}{
		{data: "1e00", cause: "powerOn"},
		{data: "1e01", cause: "externalReset"},
		{data: "1e02", cause: "watchdogReset"},
		{data: "1eff", cause: "unknown"},
	}

	for _, tt := range tests {
		res, err := decodePayload(TypeBoot, tt.data, DefaultOptions())
		if err != nil {
			t.Fatalf("decode %q: %v", tt.data, err)
		}
		if res.payload["resetCause"] != tt.cause {
			t.Errorf("resetCause for %q = %v, want %q", tt.data, res.payload["resetCause"], tt.cause)
		}
	}
}

func TestDecodeBoot_Suppressed(t *testing.T) {
	opts := DefaultOptions()
	opts.SendBootMessages = false

	res, err := decodePayload(TypeBoot, "1e00", opts)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.deliver {
		t.Error("boot message should be suppressed when disabled")
	}
}

// ============================================================
// Text and RS-485 Decoder Tests
// ============================================================

func TestDecodeText(t *testing.T) {
	res, err := decodePayload(TypeText, "6869", DefaultOptions())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.payload["text"] != "hi" {
		t.Errorf("text = %v, want hi", res.payload["text"])
	}

	opts := DefaultOptions()
	opts.DecodeTextMessages = false
	res, err = decodePayload(TypeText, "6869", opts)
	if err != nil {
		t.Fatalf("decode raw: %v", err)
	}
	if res.payload["text"] != "6869" {
		t.Errorf("raw text = %v, want 6869", res.payload["text"])
	}

	if _, err := decodePayload(TypeText, "zz", DefaultOptions()); err == nil {
		t.Error("invalid hex text should fail")
	}
}

func TestDecodeRS485PassThrough(t *testing.T) {
	for _, typ := range []string{
		TypeRS485Request, TypeRS485Response,
		TypeRS485ChunkRequest, TypeRS485ChunkResponse,
	} {
		res, err := decodePayload(typ, "0a0b0c", DefaultOptions())
		if err != nil {
			t.Fatalf("decode %s: %v", typ, err)
		}
		if res.payload["data"] != "0a0b0c" {
			t.Errorf("%s data = %v, want 0a0b0c", typ, res.payload["data"])
		}
	}
}

func TestDecodeRS485Config(t *testing.T) {
	res, err := decodePayload(TypeRS485Config, "0200010", DefaultOptions())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.payload["baudRate"] != "9600" {
		t.Errorf("baudRate = %v, want 9600", res.payload["baudRate"])
	}
	if res.payload["parity"] != "none" {
		t.Errorf("parity = %v, want none", res.payload["parity"])
	}
	if res.payload["stopBits"] != 2 {
		t.Errorf("stopBits = %v, want 2", res.payload["stopBits"])
	}
	if res.payload["bitMask"] != 8 {
		t.Errorf("bitMask = %v, want 8", res.payload["bitMask"])
	}
}

func TestDecodeRS485Config_UnknownCodes(t *testing.T) {
	res, err := decodePayload(TypeRS485Config, "ffff0f9", DefaultOptions())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.payload["baudRate"] != "?" || res.payload["parity"] != "?" {
		t.Errorf("unknown codes should map to ?: %v", res.payload)
	}
	if res.payload["stopBits"] != -1 || res.payload["bitMask"] != -1 {
		t.Errorf("unknown codes should map to -1: %v", res.payload)
	}
}

func TestDecodeRS485Config_WrongLength(t *testing.T) {
	for _, data := range []string{"", "020001", "02000100"} {
		if _, err := decodePayload(TypeRS485Config, data, DefaultOptions()); err == nil {
			t.Errorf("length %d should fail", len(data))
		}
	}
}

func TestDecodeRS485ChunkEnvelope(t *testing.T) {
	res, err := decodePayload(TypeRS485ChunkEnvelopeResponse, "0440", DefaultOptions())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.payload["numChunks"] != uint64(4) {
		t.Errorf("numChunks = %v, want 4", res.payload["numChunks"])
	}
	if res.payload["chunkSize"] != uint64(64) {
		t.Errorf("chunkSize = %v, want 64", res.payload["chunkSize"])
	}
}

// ============================================================
// Dedup Discriminant Tests
// ============================================================

func TestDedupDiscriminant(t *testing.T) {
	tests := []struct {
		name     string
		typ      string
		data     string
		expected string
	}{
		{name: "legacy tempHumidity keeps all", typ: TypeTempHumidity, data: "80004000", expected: "80004000"},
		{name: "battery tempHumidity strips battery", typ: TypeTempHumidity, data: "1e000000ff80004000", expected: "000000ff80004000"},
		{name: "motion strips battery", typ: TypeMotion, data: "1e81", expected: "81"},
		{name: "boot strips battery", typ: TypeBoot, data: "1e00", expected: "00"},
		{name: "text keeps all", typ: TypeText, data: "6869", expected: "6869"},
		{name: "rs485 keeps all", typ: TypeRS485Response, data: "0a0b", expected: "0a0b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dedupDiscriminant(tt.typ, tt.data); got != tt.expected {
				t.Errorf("dedupDiscriminant(%s, %q) = %q, want %q", tt.typ, tt.data, got, tt.expected)
			}
		})
	}
}

func TestDecodePayload_UnknownType(t *testing.T) {
	if _, err := decodePayload("bogus", "00", DefaultOptions()); err == nil {
		t.Error("unknown type should fail")
	}
}
