package configurator

import (
	"fmt"
	"strconv"
	"strings"
)

const callbackPrefix = "unavail:"

// Action is the step a callback payload asks for.
type Action int

const (
	ActionBegin Action = iota + 1
	ActionStart
	ActionEnd
)

// Callback is a decoded inline-button payload of the configuration flow.
type Callback struct {
	Action Action
	Start  int
	End    int
}

func BeginData() string { return callbackPrefix + "begin" }

func StartData(hour int) string { return fmt.Sprintf("%sstart:%d", callbackPrefix, hour) }

func EndData(start, end int) string { return fmt.Sprintf("%send:%d:%d", callbackPrefix, start, end) }

// IsCallback reports whether data belongs to this flow.
func IsCallback(data string) bool {
	return strings.HasPrefix(data, callbackPrefix)
}

// ParseCallback decodes a payload. Hours are range-checked; anything else
// yields ErrInvalidSelection.
func ParseCallback(data string) (Callback, error) {
	if !IsCallback(data) {
		return Callback{}, fmt.Errorf("%w: foreign payload %q", ErrInvalidSelection, data)
	}
	parts := strings.Split(strings.TrimPrefix(data, callbackPrefix), ":")

	switch {
	case len(parts) == 1 && parts[0] == "begin":
		return Callback{Action: ActionBegin}, nil
	case len(parts) == 2 && parts[0] == "start":
		h, err := parseHour(parts[1])
		if err != nil {
			return Callback{}, err
		}
		return Callback{Action: ActionStart, Start: h}, nil
	case len(parts) == 3 && parts[0] == "end":
		s, err := parseHour(parts[1])
		if err != nil {
			return Callback{}, err
		}
		e, err := parseHour(parts[2])
		if err != nil {
			return Callback{}, err
		}
		return Callback{Action: ActionEnd, Start: s, End: e}, nil
	}
	return Callback{}, fmt.Errorf("%w: malformed payload %q", ErrInvalidSelection, data)
}

func parseHour(s string) (int, error) {
	h, err := strconv.Atoi(s)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: bad hour %q", ErrInvalidSelection, s)
	}
	return h, nil
}
