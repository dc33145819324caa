// SPDX-License-Identifier: Apache-2.0

package conectric

import (
	"fmt"
	"math"
	"strconv"
)

// Payload decoders. One pure function per message type: input is the
// messageData hex slice that follows the type field, output is the decoded
// payload map, the final type name (status reports are re-typed), and whether
// the message should be delivered at all. A decoder may veto delivery:
// status and boot suppression are a filter stage of their own, after the
// registry lookup and the dedup cache.

// decodeResult carries a decoder's verdict for one frame.
type decodeResult struct {
	payload map[string]any
	typ     string
	deliver bool
}

func deliver(typ string, payload map[string]any) (decodeResult, error) {
	return decodeResult{payload: payload, typ: typ, deliver: true}, nil
}

func suppress(typ string) (decodeResult, error) {
	return decodeResult{typ: typ, deliver: false}, nil
}

// decodePayload dispatches messageData to the decoder for the given type.
func decodePayload(typ, data string, o Options) (decodeResult, error) {
	switch typ {
	case TypeTempHumidity:
		return decodeTempHumidity(data, o)
	case TypeTempHumidityAdc:
		return decodeTempHumidityAdc(data, o, false)
	case TypeTempHumidityLight:
		return decodeTempHumidityAdc(data, o, true)
	case TypeMoisture:
		return decodeMoisture(data, o)
	case TypeMotion:
		return decodeMotion(data, o)
	case TypeSwitch:
		return decodeSwitch(data, o)
	case TypeBoot:
		return decodeBoot(data, o)
	case TypeText:
		return decodeText(data, o)
	case TypeRS485Config:
		return decodeRS485Config(data)
	case TypeRS485Request, TypeRS485Response, TypeRS485ChunkRequest, TypeRS485ChunkResponse:
		// Pass-through: no unit conversion, callers interpret the bytes.
		return deliver(typ, map[string]any{"data": data})
	case TypeRS485ChunkEnvelopeResponse:
		return decodeRS485ChunkEnvelope(data)
	default:
		return decodeResult{}, fmt.Errorf("no decoder for type %s", typ)
	}
}

// hexField parses an unsigned hex field out of data, failing when the slice
// would run past the end of the record.
func hexField(data string, start, end int) (uint64, error) {
	if start < 0 || end > len(data) || start >= end {
		return 0, ErrRecordTooShort
	}
	v, err := strconv.ParseUint(data[start:end], 16, 64)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", data[start:end], err)
	}
	return v, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// decodeTemperature converts the raw 16-bit sensor value into degrees.
// celsius = -46.85 + (raw/65536)*175.72, per the sensor datasheet.
func decodeTemperature(raw uint64, fahrenheit bool) (float64, string) {
	c := round2(-46.85 + (float64(raw)/65536.0)*175.72)
	if fahrenheit {
		return round2(c*9.0/5.0 + 32.0), "F"
	}
	return c, "C"
}

// decodeHumidity converts the raw 16-bit sensor value into a percentage.
// percentage = -6 + 125*(raw/65536).
func decodeHumidity(raw uint64) float64 {
	return round2(-6.0 + 125.0*(float64(raw)/65536.0))
}

// battery reads the leading battery byte; the wire value is tenths of a volt.
func battery(data string) (float64, error) {
	b, err := hexField(data, 0, 2)
	if err != nil {
		return 0, err
	}
	return float64(b) / 10.0, nil
}

// tempHumidity has two on-wire layouts distinguished by payload length:
// the legacy 8-char form is temperature then humidity with no battery or
// event count; the newer form leads with battery and a 32-bit event counter.
func decodeTempHumidity(data string, o Options) (decodeResult, error) {
	payload := map[string]any{}

	offset := 0
	switch {
	case len(data) == 8:
		// legacy firmware
	case len(data) >= 18:
		batt, err := battery(data)
		if err != nil {
			return decodeResult{}, err
		}
		payload["battery"] = batt
		if o.SendEventCount {
			count, err := hexField(data, 2, 10)
			if err != nil {
				return decodeResult{}, err
			}
			payload["eventCount"] = count
		}
		offset = 10
	default:
		return decodeResult{}, fmt.Errorf("tempHumidity payload length %d: %w", len(data), ErrRecordTooShort)
	}

	rawTemp, err := hexField(data, offset, offset+4)
	if err != nil {
		return decodeResult{}, err
	}
	rawHum, err := hexField(data, offset+4, offset+8)
	if err != nil {
		return decodeResult{}, err
	}

	temp, unit := decodeTemperature(rawTemp, o.UseFahrenheitTemps)
	payload["temperature"] = temp
	payload["temperatureUnit"] = unit
	payload["humidity"] = decodeHumidity(rawHum)

	return deliver(TypeTempHumidity, payload)
}

// decodeTempHumidityAdc handles both the plain ADC variant and the light
// variant; the latter derives a lux estimate from the ADC reading and the
// battery voltage, bucketed into 16 coarse levels.
func decodeTempHumidityAdc(data string, o Options, light bool) (decodeResult, error) {
	batt, err := battery(data)
	if err != nil {
		return decodeResult{}, err
	}
	payload := map[string]any{"battery": batt}

	offset := 2
	if len(data) >= 26 {
		if o.SendEventCount {
			count, err := hexField(data, 2, 10)
			if err != nil {
				return decodeResult{}, err
			}
			payload["eventCount"] = count
		}
		offset = 10
	}

	rawTemp, err := hexField(data, offset, offset+4)
	if err != nil {
		return decodeResult{}, err
	}
	rawHum, err := hexField(data, offset+4, offset+8)
	if err != nil {
		return decodeResult{}, err
	}
	adcIn, err := hexField(data, offset+8, offset+12)
	if err != nil {
		return decodeResult{}, err
	}
	adcMax, err := hexField(data, offset+12, offset+16)
	if err != nil {
		return decodeResult{}, err
	}

	temp, unit := decodeTemperature(rawTemp, o.UseFahrenheitTemps)
	payload["temperature"] = temp
	payload["temperatureUnit"] = unit
	payload["humidity"] = decodeHumidity(rawHum)

	typ := TypeTempHumidityAdc
	if light {
		typ = TypeTempHumidityLight
		lux := luxEstimate(float64(adcIn), batt)
		payload["light"] = lightBucket(lux)
		if o.SendRawLux {
			payload["lux"] = lux
		}
		if o.SendAdcWithLux {
			payload["adcIn"] = adcIn
			payload["adcMax"] = adcMax
		}
	} else {
		payload["adcIn"] = adcIn
		payload["adcMax"] = adcMax
	}

	return deliver(typ, payload)
}

// luxEstimate converts a raw ADC reading to lux. The exponent compensates
// for the supply voltage sag as the battery drains.
func luxEstimate(adcIn, batt float64) float64 {
	return math.Round(0.003 * math.Pow(adcIn, 1.89-(3.7-batt)/25.0))
}

// lightBucket maps lux to a 0-15 coarse level.
func lightBucket(lux float64) int {
	bucket := int(math.Round(lux / 100.0))
	if bucket > 15 {
		bucket = 15
	}
	return bucket
}

func decodeMoisture(data string, o Options) (decodeResult, error) {
	batt, err := battery(data)
	if err != nil {
		return decodeResult{}, err
	}
	rest := data[2:]
	if len(rest) < 2 {
		return decodeResult{}, ErrRecordTooShort
	}

	switch rest[0:2] {
	case markerStatusOpen, markerStatusClosed:
		if !o.SendStatusMessages {
			return suppress(TypeMoistureStatus)
		}
		rawTemp, err := hexField(rest, 2, 6)
		if err != nil {
			return decodeResult{}, err
		}
		rawHum, err := hexField(rest, 6, 10)
		if err != nil {
			return decodeResult{}, err
		}
		temp, unit := decodeTemperature(rawTemp, o.UseFahrenheitTemps)
		return deliver(TypeMoistureStatus, map[string]any{
			"battery":         batt,
			"temperature":     temp,
			"temperatureUnit": unit,
			"humidity":        decodeHumidity(rawHum),
		})
	case markerEventOpen:
		// Wet event. The event branch does not validate trailing length;
		// origin firmware pads these frames inconsistently.
		return deliver(TypeMoisture, map[string]any{"battery": batt, "moisture": true})
	case markerEventClosed:
		return deliver(TypeMoisture, map[string]any{"battery": batt, "moisture": false})
	default:
		return decodeResult{}, fmt.Errorf("moisture marker %q unknown", rest[0:2])
	}
}

func decodeMotion(data string, o Options) (decodeResult, error) {
	batt, err := battery(data)
	if err != nil {
		return decodeResult{}, err
	}
	if len(data) < 4 {
		return decodeResult{}, ErrRecordTooShort
	}

	if data[2:4] == markerMotionStatus {
		if !o.SendStatusMessages {
			return suppress(TypeMotionStatus)
		}
		return deliver(TypeMotionStatus, map[string]any{"battery": batt})
	}

	payload := map[string]any{"battery": batt, "motion": true}
	if o.SendEventCount && len(data) == 10 {
		count, err := hexField(data, 4, 10)
		if err != nil {
			return decodeResult{}, err
		}
		payload["eventCount"] = count
	}
	return deliver(TypeMotion, payload)
}

func decodeSwitch(data string, o Options) (decodeResult, error) {
	batt, err := battery(data)
	if err != nil {
		return decodeResult{}, err
	}
	if len(data) < 4 {
		return decodeResult{}, ErrRecordTooShort
	}

	marker := data[2:4]
	payload := map[string]any{"battery": batt}

	switch marker {
	case markerStatusOpen, markerStatusClosed:
		if !o.SendStatusMessages {
			return suppress(TypeSwitchStatus)
		}
		payload["switch"] = switchValue(marker == markerStatusOpen, o.SwitchOpenValue)
		return deliver(TypeSwitchStatus, payload)
	case markerEventOpen, markerEventClosed:
		payload["switch"] = switchValue(marker == markerEventOpen, o.SwitchOpenValue)
		return deliver(TypeSwitch, payload)
	default:
		return decodeResult{}, fmt.Errorf("switch marker %q unknown", marker)
	}
}

// switchValue applies the configured open-polarity mapping: the open marker
// reports the configured open value, the closed marker its negation.
func switchValue(open, openValue bool) bool {
	if open {
		return openValue
	}
	return !openValue
}

func decodeBoot(data string, o Options) (decodeResult, error) {
	if !o.SendBootMessages {
		return suppress(TypeBoot)
	}
	batt, err := battery(data)
	if err != nil {
		return decodeResult{}, err
	}
	if len(data) < 4 {
		return decodeResult{}, ErrRecordTooShort
	}

	var cause string
	switch data[2:4] {
	case "00":
		cause = "powerOn"
	case "01":
		cause = "externalReset"
	case "02":
		cause = "watchdogReset"
	default:
		cause = "unknown"
	}

	return deliver(TypeBoot, map[string]any{"battery": batt, "resetCause": cause})
}

func decodeText(data string, o Options) (decodeResult, error) {
	if !o.DecodeTextMessages {
		return deliver(TypeText, map[string]any{"text": data})
	}
	text, err := DecodeHex(data)
	if err != nil {
		return decodeResult{}, err
	}
	return deliver(TypeText, map[string]any{"text": text})
}

// decodeRS485Config requires exactly 7 hex chars of payload; anything else is
// dropped. The trailing bit-mask field is a single character on the wire.
func decodeRS485Config(data string) (decodeResult, error) {
	if len(data) != 7 {
		return decodeResult{}, fmt.Errorf("rs485Config payload length %d, want 7", len(data))
	}

	baud := "?"
	switch data[0:2] {
	case "00":
		baud = "2400"
	case "01":
		baud = "4800"
	case "02":
		baud = "9600"
	case "03":
		baud = "19200"
	}

	parity := "?"
	switch data[2:4] {
	case "00":
		parity = "none"
	case "01":
		parity = "odd"
	case "02":
		parity = "even"
	}

	stopBits := -1
	switch data[4:6] {
	case "00":
		stopBits = 1
	case "01":
		stopBits = 2
	}

	bitMask := -1
	switch data[6:7] {
	case "0":
		bitMask = 8
	case "1":
		bitMask = 7
	}

	return deliver(TypeRS485Config, map[string]any{
		"baudRate": baud,
		"parity":   parity,
		"stopBits": stopBits,
		"bitMask":  bitMask,
	})
}

func decodeRS485ChunkEnvelope(data string) (decodeResult, error) {
	numChunks, err := hexField(data, 0, 2)
	if err != nil {
		return decodeResult{}, err
	}
	chunkSize, err := hexField(data, 2, 4)
	if err != nil {
		return decodeResult{}, err
	}
	return deliver(TypeRS485ChunkEnvelopeResponse, map[string]any{
		"numChunks": numChunks,
		"chunkSize": chunkSize,
	})
}

// dedupDiscriminant is the messageData slice used for duplicate detection:
// the per-type battery byte is excluded so the key is exactly the raw field
// slice the decoder will read.
func dedupDiscriminant(typ, data string) string {
	switch typ {
	case TypeTempHumidity:
		if len(data) == 8 {
			return data
		}
	case TypeTempHumidityAdc, TypeTempHumidityLight,
		TypeMotion, TypeSwitch, TypeMoisture, TypeBoot:
	default:
		return data
	}
	if len(data) >= 2 {
		return data[2:]
	}
	return data
}
