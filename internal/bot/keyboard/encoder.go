package keyboard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	CallbackDataSeparator  = ":"
	CallbackDataLimitBytes = 64
)

// EncodeCallback joins an action id and its payload into callback data.
func EncodeCallback(action Action, data string) (string, error) {
	payload := string(action)
	if data != "" {
		payload += CallbackDataSeparator + data
	}

	if len(payload) > CallbackDataLimitBytes {
		return "", fmt.Errorf("callback data exceeds %d byte limit: got %d", CallbackDataLimitBytes, len(payload))
	}

	return payload, nil
}

// DecodeCallback splits callback data into the action id and the raw payload.
func DecodeCallback(callbackData string) (action Action, data string, err error) {
	if callbackData == "" {
		return "", "", errors.New("callback data is empty")
	}

	head, tail, _ := strings.Cut(callbackData, CallbackDataSeparator)
	return Action(head), tail, nil
}

// Join formats payload parts for EncodeCallback.
func Join(parts ...any) string {
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = fmt.Sprint(p)
	}
	return strings.Join(out, CallbackDataSeparator)
}

// Int64Arg parses the i-th payload part as an id.
func Int64Arg(data string, i int) (int64, error) {
	parts := strings.Split(data, CallbackDataSeparator)
	if i < 0 || i >= len(parts) {
		return 0, fmt.Errorf("callback payload %q has no part %d", data, i)
	}
	return strconv.ParseInt(parts[i], 10, 64)
}

// StringArg returns the i-th payload part.
func StringArg(data string, i int) (string, error) {
	parts := strings.Split(data, CallbackDataSeparator)
	if i < 0 || i >= len(parts) {
		return "", fmt.Errorf("callback payload %q has no part %d", data, i)
	}
	return parts[i], nil
}
