package miraieac

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Fixed envelope fields of a control message.
const (
	controlKeyIndex   = 1
	controlClientType = "an"
	controlSessionID  = "1"
)

// controlPayload wraps fields in the control message envelope.
func controlPayload(fields map[string]any) ([]byte, error) {
	msg := make(map[string]any, len(fields)+3)
	msg["ki"] = controlKeyIndex
	msg["cnt"] = controlClientType
	msg["sid"] = controlSessionID
	for k, v := range fields {
		msg[k] = v
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encoding control message: %w", err)
	}
	return b, nil
}

func powerFields(m PowerMode) map[string]any {
	return map[string]any{"ps": string(m)}
}

func temperatureFields(t float64) map[string]any {
	return map[string]any{"actmp": strconv.FormatFloat(t, 'f', 1, 64)}
}

func hvacFields(m HVACMode) map[string]any {
	return map[string]any{"acmd": string(m)}
}

func fanFields(m FanMode) map[string]any {
	return map[string]any{"acfs": string(m)}
}

func swingFields(m SwingMode) map[string]any {
	return map[string]any{"acvs": int(m)}
}

// presetFields maps a preset onto the two mutually exclusive flags.
func presetFields(m PresetMode) map[string]any {
	eco, boost := "off", "off"
	switch m {
	case PresetEco:
		eco = "on"
	case PresetBoost:
		boost = "on"
	}
	return map[string]any{"acem": eco, "acpm": boost}
}

func displayFields(m DisplayMode) map[string]any {
	return map[string]any{"acdc": string(m)}
}
