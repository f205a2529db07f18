package web

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
)

// Every message starts with an 8 byte envelope:
//
//	[0] version  [1:3] reserved  [3] type  [4:8] payload length (LE uint32)
//
// A presented frame is sent as one LAYOUT message followed by one PLOT
// message per line, in layout order.
const (
	ProtocolVersion byte = 1

	MessageTypePlot      byte = 0x01
	MessageTypeLayout    byte = 0x02
	MessageTypeStreamEnd byte = 0x03

	EnvelopeHeaderSize = 8
)

type EnvelopeHeader struct {
	Version  byte
	Reserved [2]byte
	Type     byte
	Length   uint32
}

// PlotMessage carries one line of one plot. PlotID indexes Layout.Plots.
type PlotMessage struct {
	PlotID      uint32
	SeriesIndex uint32
	X           []float64
	Y           []float64
}

type PlotLayout struct {
	ID           uint32
	Panel        string
	Title        string
	Kind         string
	XLabel       string
	YLabel       string
	SeriesLabels []string
	AutoFit      bool
	Legend       bool
}

type Layout struct {
	Frame  uint64
	Paused bool
	Plots  []PlotLayout
}

type StreamEndMessage struct {
	Error bool
	Msg   string
}

type Message struct {
	Header  EnvelopeHeader
	Payload interface{} // PlotMessage, Layout or StreamEndMessage
}

// Sent by browsers as JSON text messages.
type ControlMessage struct {
	Action string `json:"action"`
}

const (
	ActionTogglePause = "toggle_pause"
	ActionClose       = "close"
)

func EncodeEnvelopeHeader(env EnvelopeHeader) []byte {
	buf := make([]byte, EnvelopeHeaderSize)
	buf[0] = env.Version
	buf[1] = env.Reserved[0]
	buf[2] = env.Reserved[1]
	buf[3] = env.Type
	binary.LittleEndian.PutUint32(buf[4:8], env.Length)
	return buf
}

func DecodeEnvelopeHeader(buf []byte) (EnvelopeHeader, error) {
	if len(buf) < EnvelopeHeaderSize {
		return EnvelopeHeader{}, fmt.Errorf("buffer too short: expected at least %d bytes, got %d", EnvelopeHeaderSize, len(buf))
	}

	return EnvelopeHeader{
		Version:  buf[0],
		Reserved: [2]byte{buf[1], buf[2]},
		Type:     buf[3],
		Length:   binary.LittleEndian.Uint32(buf[4:8]),
	}, nil
}

// Payload: PlotID u32, SeriesIndex u32, N u32, X[N] f64, Y[N] f64.
func EncodePlotMessage(msg PlotMessage) ([]byte, error) {
	if len(msg.X) != len(msg.Y) {
		return nil, fmt.Errorf("X and Y arrays must have same length: X=%d, Y=%d", len(msg.X), len(msg.Y))
	}

	n := len(msg.X)
	buf := make([]byte, 12+n*16)
	binary.LittleEndian.PutUint32(buf[0:4], msg.PlotID)
	binary.LittleEndian.PutUint32(buf[4:8], msg.SeriesIndex)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(n))

	putFloats(buf[12:], msg.X)
	putFloats(buf[12+n*8:], msg.Y)

	return buf, nil
}

func DecodePlotMessage(buf []byte) (PlotMessage, error) {
	if len(buf) < 12 {
		return PlotMessage{}, fmt.Errorf("buffer too short for PLOT message: expected at least 12 bytes, got %d", len(buf))
	}

	n := int(binary.LittleEndian.Uint32(buf[8:12]))
	if len(buf) != 12+n*16 {
		return PlotMessage{}, fmt.Errorf("buffer size mismatch: expected %d bytes for %d points, got %d", 12+n*16, n, len(buf))
	}

	return PlotMessage{
		PlotID:      binary.LittleEndian.Uint32(buf[0:4]),
		SeriesIndex: binary.LittleEndian.Uint32(buf[4:8]),
		X:           getFloats(buf[12:], n),
		Y:           getFloats(buf[12+n*8:], n),
	}, nil
}

func putFloats(buf []byte, values []float64) {
	for i, v := range values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
}

func getFloats(buf []byte, n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return values
}

// JSON payloads are prefixed with their length: u32 N, then N bytes of JSON.
func encodeJSONPayload(v interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %T: %w", v, err)
	}

	buf := make([]byte, 4+len(jsonData))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(jsonData)))
	copy(buf[4:], jsonData)

	return buf, nil
}

func decodeJSONPayload(buf []byte, v interface{}) error {
	if len(buf) < 4 {
		return fmt.Errorf("buffer too short for JSON payload: expected at least 4 bytes, got %d", len(buf))
	}

	jsonLength := int(binary.LittleEndian.Uint32(buf[0:4]))
	if len(buf) != 4+jsonLength {
		return fmt.Errorf("buffer size mismatch: expected %d bytes, got %d", 4+jsonLength, len(buf))
	}

	if err := json.Unmarshal(buf[4:], v); err != nil {
		return fmt.Errorf("failed to unmarshal %T: %w", v, err)
	}

	return nil
}

func EncodeMessage(msg Message) ([]byte, error) {
	var payload []byte
	var err error

	switch msg.Header.Type {
	case MessageTypePlot:
		plotMsg, ok := msg.Payload.(PlotMessage)
		if !ok {
			return nil, fmt.Errorf("payload type mismatch: expected PlotMessage for type 0x%02x, got %T", msg.Header.Type, msg.Payload)
		}
		payload, err = EncodePlotMessage(plotMsg)
	case MessageTypeLayout:
		layout, ok := msg.Payload.(Layout)
		if !ok {
			return nil, fmt.Errorf("payload type mismatch: expected Layout for type 0x%02x, got %T", msg.Header.Type, msg.Payload)
		}
		payload, err = encodeJSONPayload(layout)
	case MessageTypeStreamEnd:
		streamEnd, ok := msg.Payload.(StreamEndMessage)
		if !ok {
			return nil, fmt.Errorf("payload type mismatch: expected StreamEndMessage for type 0x%02x, got %T", msg.Header.Type, msg.Payload)
		}
		payload, err = encodeJSONPayload(streamEnd)
	default:
		return nil, fmt.Errorf("unknown message type: 0x%02x", msg.Header.Type)
	}

	if err != nil {
		return nil, err
	}

	msg.Header.Length = uint32(len(payload))
	return append(EncodeEnvelopeHeader(msg.Header), payload...), nil
}

func DecodeMessage(buf []byte) (Message, error) {
	env, err := DecodeEnvelopeHeader(buf)
	if err != nil {
		return Message{}, err
	}

	// Lengths come off the network, so compare in int where they cannot wrap.
	end := EnvelopeHeaderSize + int(env.Length)
	if len(buf) < end {
		return Message{}, fmt.Errorf("buffer too short: expected %d bytes (header + payload), got %d", end, len(buf))
	}

	payloadBytes := buf[EnvelopeHeaderSize:end]

	var payload interface{}
	switch env.Type {
	case MessageTypePlot:
		payload, err = DecodePlotMessage(payloadBytes)
	case MessageTypeLayout:
		var layout Layout
		err = decodeJSONPayload(payloadBytes, &layout)
		payload = layout
	case MessageTypeStreamEnd:
		var streamEnd StreamEndMessage
		err = decodeJSONPayload(payloadBytes, &streamEnd)
		payload = streamEnd
	default:
		return Message{}, fmt.Errorf("unknown message type: 0x%02x", env.Type)
	}

	if err != nil {
		return Message{}, err
	}

	return Message{Header: env, Payload: payload}, nil
}

func newMessage(messageType byte, payload interface{}) Message {
	return Message{
		Header:  EnvelopeHeader{Version: ProtocolVersion, Type: messageType},
		Payload: payload,
	}
}
