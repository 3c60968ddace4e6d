package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Encoding selects the wire format for one connection. JSON frames go out as
// websocket text messages, msgpack frames as binary messages.
type Encoding string

const (
	EncodingJSON    Encoding = "json"
	EncodingMsgpack Encoding = "msgpack"
)

func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return EncodingJSON, nil
	case "msgpack", "mp":
		return EncodingMsgpack, nil
	default:
		return "", fmt.Errorf("unsupported encoding: %q", s)
	}
}

func (e Encoding) Binary() bool { return e == EncodingMsgpack }

// Marshal encodes v. The msgpack encoder reads the json struct tags so both
// formats carry the same field names.
func (e Encoding) Marshal(v any) ([]byte, error) {
	if e != EncodingMsgpack {
		return json.Marshal(v)
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e Encoding) Unmarshal(b []byte, v any) error {
	if e != EncodingMsgpack {
		return json.Unmarshal(b, v)
	}
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

// DecodeAction parses one inbound frame and rejects unknown action types.
func DecodeAction(e Encoding, b []byte) (ActionMsg, error) {
	var act ActionMsg
	if err := e.Unmarshal(b, &act); err != nil {
		return ActionMsg{}, fmt.Errorf("decode action: %w", err)
	}
	if !IsActionType(act.Type) {
		return ActionMsg{}, fmt.Errorf("unknown action type: %q", act.Type)
	}
	return act, nil
}

// DecodeBase reads only the type of a frame.
func DecodeBase(e Encoding, b []byte) (BaseMessage, error) {
	var m BaseMessage
	if err := e.Unmarshal(b, &m); err != nil {
		return BaseMessage{}, fmt.Errorf("decode base: %w", err)
	}
	return m, nil
}
