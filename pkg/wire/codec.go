// Package wire converts effector records to and from the FlatBuffers frames
// used on the ZeroMQ transport.
package wire

import (
	"errors"
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"

	"github.com/adcs-fsw/rwnullspace/pkg/effector"
	message "github.com/adcs-fsw/rwnullspace/pkg/flatbuffers/adcs/message"
)

// ErrInvalidMessage is returned for frames that cannot be decoded
var ErrInvalidMessage = errors.New("invalid effector message")

// minFrameSize covers the root offset and a minimal vtable
const minFrameSize = 12

// Frame is the decoded form of an EffectorMessage
type Frame struct {
	Channel     string
	Kind        message.MessageKind
	TimestampNs uint64
	Values      effector.Vector
}

// RequestFrame wraps an effector request for transport
func RequestFrame(channel string, clock uint64, req effector.Request) Frame {
	return Frame{
		Channel:     channel,
		Kind:        message.MessageKindEFFECTOR_REQUEST,
		TimestampNs: clock,
		Values:      req.EffectorRequest,
	}
}

// SpeedsFrame wraps wheel speed telemetry for transport
func SpeedsFrame(channel string, clock uint64, speeds effector.WheelSpeeds) Frame {
	return Frame{
		Channel:     channel,
		Kind:        message.MessageKindWHEEL_SPEEDS,
		TimestampNs: clock,
		Values:      speeds.WheelSpeeds,
	}
}

// Request returns the frame payload as an effector request
func (f Frame) Request() effector.Request {
	return effector.Request{EffectorRequest: f.Values}
}

// WheelSpeeds returns the frame payload as wheel speed telemetry
func (f Frame) WheelSpeeds() effector.WheelSpeeds {
	return effector.WheelSpeeds{WheelSpeeds: f.Values}
}

// Encode serializes a frame as a finished EffectorMessage buffer
func Encode(f Frame) []byte {
	n := f.Values.Len()
	builder := flatbuffers.NewBuilder(64 + 8*n)

	channelOffset := builder.CreateString(f.Channel)

	message.EffectorMessageStartValuesVector(builder, n)
	for i := n - 1; i >= 0; i-- {
		builder.PrependFloat64(f.Values.At(i))
	}
	valuesOffset := builder.EndVector(n)

	message.EffectorMessageStart(builder)
	message.EffectorMessageAddChannel(builder, channelOffset)
	message.EffectorMessageAddKind(builder, f.Kind)
	message.EffectorMessageAddTimestampNs(builder, f.TimestampNs)
	message.EffectorMessageAddValues(builder, valuesOffset)
	message.FinishEffectorMessageBuffer(builder, message.EffectorMessageEnd(builder))

	return builder.FinishedBytes()
}

// Decode parses an EffectorMessage buffer. Truncated or corrupt buffers,
// unknown kinds and oversize vectors are rejected with ErrInvalidMessage.
func Decode(buf []byte) (f Frame, err error) {
	if len(buf) < minFrameSize {
		return Frame{}, fmt.Errorf("%w: %d bytes is too short", ErrInvalidMessage, len(buf))
	}

	// The generated accessors index the buffer directly and panic on
	// out-of-range offsets.
	defer func() {
		if r := recover(); r != nil {
			f = Frame{}
			err = fmt.Errorf("%w: %v", ErrInvalidMessage, r)
		}
	}()

	msg := message.GetRootAsEffectorMessage(buf, 0)

	kind := msg.Kind()
	if kind != message.MessageKindEFFECTOR_REQUEST && kind != message.MessageKindWHEEL_SPEEDS {
		return Frame{}, fmt.Errorf("%w: unsupported kind %s", ErrInvalidMessage, kind)
	}

	n := msg.ValuesLength()
	if n > effector.MaxEffCount {
		return Frame{}, fmt.Errorf("%w: %d values exceeds %d", ErrInvalidMessage, n, effector.MaxEffCount)
	}

	values, err := effector.NewVector(n)
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	for i := 0; i < n; i++ {
		values.SetAt(i, msg.Values(i))
	}

	return Frame{
		Channel:     string(msg.Channel()),
		Kind:        kind,
		TimestampNs: msg.TimestampNs(),
		Values:      values,
	}, nil
}
