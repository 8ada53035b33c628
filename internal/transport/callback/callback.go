// Package callback encodes the opaque payloads attached to quiz buttons.
//
// Payloads stay well under Telegram's 64-byte callback_data limit:
//
//	answer:<question>:<option>
//	restart
package callback

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies a decoded payload.
type Kind int

const (
	KindAnswer Kind = iota + 1
	KindRestart
)

const (
	answerPrefix = "answer"
	restartData  = "restart"
)

// ErrMalformed is returned for payloads this package did not produce.
var ErrMalformed = errors.New("malformed callback data")

// Payload is a decoded button payload.
type Payload struct {
	Kind          Kind
	QuestionIndex int
	OptionIndex   int
}

// Answer encodes the payload for option o of question q.
func Answer(q, o int) string {
	return answerPrefix + ":" + strconv.Itoa(q) + ":" + strconv.Itoa(o)
}

// Restart encodes the payload of the "try again" button.
func Restart() string {
	return restartData
}

// Parse decodes data.
func Parse(data string) (Payload, error) {
	if data == restartData {
		return Payload{Kind: KindRestart}, nil
	}
	parts := strings.Split(data, ":")
	if len(parts) != 3 || parts[0] != answerPrefix {
		return Payload{}, fmt.Errorf("%w: %q", ErrMalformed, data)
	}
	q, err := strconv.Atoi(parts[1])
	if err != nil || q < 0 {
		return Payload{}, fmt.Errorf("%w: question in %q", ErrMalformed, data)
	}
	o, err := strconv.Atoi(parts[2])
	if err != nil || o < 0 {
		return Payload{}, fmt.Errorf("%w: option in %q", ErrMalformed, data)
	}
	return Payload{Kind: KindAnswer, QuestionIndex: q, OptionIndex: o}, nil
}
