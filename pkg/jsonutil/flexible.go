package jsonutil

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexInt decodes from a JSON number or a numeric string ("4").
// Review forms post ratings as strings; API clients send numbers.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == "" {
		*f = 0
		return nil
	}

	var n json.Number
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n = json.Number(strings.TrimSpace(s))
	} else {
		n = json.Number(raw)
	}

	if n == "" {
		*f = 0
		return nil
	}

	i, err := strconv.Atoi(string(n))
	if err != nil {
		return fmt.Errorf("expected an integer, got %s", raw)
	}
	*f = FlexInt(i)
	return nil
}

// FlexBool decodes from a JSON boolean or the strings "true"/"false".
type FlexBool bool

func (f *FlexBool) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*f = false
		return nil
	}

	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*f = false
			return nil
		}
	}

	b, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("expected a boolean, got %s", string(data))
	}
	*f = FlexBool(b)
	return nil
}
