package speech

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// 火山引擎二进制帧：4 字节头 + 可选 sequence + 可选事件元数据 + payload size + payload。
const protocolVersion = 0b0001

// MessageType 帧类型
type MessageType uint8

const (
	FullClientRequest       MessageType = 0b0001
	FullServerResponse      MessageType = 0b1001
	AudioOnlyServerResponse MessageType = 0b1011
	ErrorMessage            MessageType = 0b1111
)

// MessageFlags 帧标志，低两位描述 sequence，第三位表示携带事件
type MessageFlags uint8

const (
	NoSequence       MessageFlags = 0b0000
	PositiveSequence MessageFlags = 0b0001
	LastNoSequence   MessageFlags = 0b0010
	NegativeSequence MessageFlags = 0b0011
	WithEvent        MessageFlags = 0b0100

	sequenceMask MessageFlags = 0b0011
)

// EventType 服务端事件
type EventType int32

const (
	EventStartConnection    EventType = 1
	EventFinishConnection   EventType = 2
	EventConnectionStarted  EventType = 50
	EventConnectionFailed   EventType = 51
	EventConnectionFinished EventType = 52
	EventSessionStarted     EventType = 150
	EventSessionFinished    EventType = 152
	EventSessionFailed      EventType = 153
)

type Serialization uint8

const (
	SerializationNone Serialization = 0b0000
	SerializationJSON Serialization = 0b0001
)

type Compression uint8

const (
	CompressionNone Compression = 0b0000
	CompressionGzip Compression = 0b0001
)

var ErrUnsupportedVersion = errors.New("unsupported protocol version")

// Frame 一个完整的协议帧
type Frame struct {
	Type          MessageType
	Flags         MessageFlags
	Serialization Serialization
	Compression   Compression
	Sequence      int32
	Event         EventType
	SessionID     string
	ConnectID     string
	ErrorCode     uint32
	Payload       []byte
}

// NewRequestFrame 构造 JSON 序列化的客户端请求帧
func NewRequestFrame(payload []byte, compression Compression) Frame {
	return Frame{
		Type:          FullClientRequest,
		Flags:         NoSequence,
		Serialization: SerializationJSON,
		Compression:   compression,
		Payload:       payload,
	}
}

// Last 报告该帧是否为最后一包
func (f Frame) Last() bool {
	switch f.Flags & sequenceMask {
	case LastNoSequence, NegativeSequence:
		return true
	default:
		return false
	}
}

func (f Frame) hasSequence() bool {
	seq := f.Flags & sequenceMask
	return seq == PositiveSequence || seq == NegativeSequence
}

func (f Frame) hasEvent() bool { return f.Flags&WithEvent == WithEvent }

// Encode 将帧编码为二进制
func (f Frame) Encode() []byte {
	var buf bytes.Buffer
	buf.Write([]byte{
		protocolVersion<<4 | 0b0001,
		byte(f.Type)<<4 | byte(f.Flags),
		byte(f.Serialization)<<4 | byte(f.Compression),
		0x00,
	})

	if f.hasSequence() {
		writeUint32(&buf, uint32(f.Sequence))
	}
	if f.hasEvent() {
		writeUint32(&buf, uint32(f.Event))
		if !skipsSessionID(f.Event) {
			writeSized(&buf, []byte(f.SessionID))
		}
		if carriesConnectID(f.Event) {
			writeSized(&buf, []byte(f.ConnectID))
		}
	}
	if f.Type == ErrorMessage {
		writeUint32(&buf, f.ErrorCode)
	}
	writeSized(&buf, f.Payload)
	return buf.Bytes()
}

// DecodeFrame 解析一帧
func DecodeFrame(data []byte) (Frame, error) {
	r := bytes.NewReader(data)

	var head [4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return Frame{}, fmt.Errorf("read header: %w", err)
	}
	if v := head[0] >> 4; v != protocolVersion {
		return Frame{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	f := Frame{
		Type:          MessageType(head[1] >> 4),
		Flags:         MessageFlags(head[1] & 0x0F),
		Serialization: Serialization(head[2] >> 4),
		Compression:   Compression(head[2] & 0x0F),
	}

	// header size 以 4 字节为单位，多出的扩展头直接跳过
	if extra := int(head[0]&0x0F)*4 - 4; extra > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(extra)); err != nil {
			return Frame{}, fmt.Errorf("read extended header: %w", err)
		}
	}

	if f.hasSequence() {
		seq, err := readUint32(r)
		if err != nil {
			return Frame{}, fmt.Errorf("read sequence: %w", err)
		}
		f.Sequence = int32(seq)
	}

	if f.hasEvent() {
		ev, err := readUint32(r)
		if err != nil {
			return Frame{}, fmt.Errorf("read event: %w", err)
		}
		f.Event = EventType(int32(ev))
		if !skipsSessionID(f.Event) {
			session, err := readSized(r)
			if err != nil {
				return Frame{}, fmt.Errorf("read session id: %w", err)
			}
			f.SessionID = string(session)
		}
		if carriesConnectID(f.Event) {
			connect, err := readSized(r)
			if err != nil {
				return Frame{}, fmt.Errorf("read connect id: %w", err)
			}
			f.ConnectID = string(connect)
		}
	}

	if f.Type == ErrorMessage {
		code, err := readUint32(r)
		if err != nil {
			return Frame{}, fmt.Errorf("read error code: %w", err)
		}
		f.ErrorCode = code
	}

	payload, err := readSized(r)
	if err != nil {
		return Frame{}, fmt.Errorf("read payload: %w", err)
	}
	f.Payload = payload
	return f, nil
}

// Body 返回解压后的 payload
func (f Frame) Body() ([]byte, error) {
	return decompress(f.Payload, f.Compression)
}

func skipsSessionID(ev EventType) bool {
	switch ev {
	case EventStartConnection, EventFinishConnection,
		EventConnectionStarted, EventConnectionFailed, EventConnectionFinished:
		return true
	default:
		return false
	}
}

func carriesConnectID(ev EventType) bool {
	switch ev {
	case EventConnectionStarted, EventConnectionFailed, EventConnectionFinished:
		return true
	default:
		return false
	}
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeSized(buf *bytes.Buffer, data []byte) {
	writeUint32(buf, uint32(len(data)))
	buf.Write(data)
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readSized(r io.Reader) ([]byte, error) {
	size, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, nil
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("expected %d bytes: %w", size, err)
	}
	return data, nil
}
