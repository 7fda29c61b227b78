package radio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lupettohf/meshttpd/errors"
)

const (
	defaultDialTimeout = 5 * time.Second
	maxFrameSize       = 64 * 1024
	eventBuffer        = 64
)

// Wire frame types
const (
	frameHello  = "hello"
	framePacket = "packet"
	frameSend   = "send"
)

// wireFrame is the newline-delimited JSON frame exchanged with the gateway.
// Inbound frames are either a hello (first frame after connect, carrying the
// gateway's own node number) or a packet. Outbound frames are sends.
type wireFrame struct {
	Type      string     `json:"type"`
	NodeID    uint32     `json:"nodeId,omitempty"`
	From      uint32     `json:"from,omitempty"`
	FromID    string     `json:"fromId,omitempty"`
	Text      *string    `json:"text,omitempty"`
	Telemetry *Telemetry `json:"telemetry,omitempty"`
	To        string     `json:"to,omitempty"`
}

// TCPDialer dials a radio gateway speaking the JSON-line framing over TCP.
type TCPDialer struct {
	// Timeout bounds the dial plus handshake. Zero means 5 seconds.
	Timeout time.Duration

	// OnDroppedFrame, when set, is called for each inbound frame that fails
	// to decode. Malformed frames are expected noise and never fatal.
	OnDroppedFrame func()
}

// Dial connects to the gateway, performs the hello handshake, and returns a
// live link. The returned link owns the connection.
func (d *TCPDialer) Dial(ctx context.Context, address string) (Link, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, errors.WrapTransient(err, "TCPDialer", "Dial", "connect to gateway")
	}

	reader := bufio.NewReaderSize(conn, maxFrameSize)

	// The gateway announces itself before anything else flows.
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	line, err := reader.ReadBytes('\n')
	if err != nil {
		conn.Close()
		return nil, errors.WrapTransient(err, "TCPDialer", "Dial", "read hello")
	}
	_ = conn.SetReadDeadline(time.Time{})

	var hello wireFrame
	if err := json.Unmarshal(line, &hello); err != nil || hello.Type != frameHello {
		conn.Close()
		return nil, errors.WrapTransient(errors.ErrMalformedFrame, "TCPDialer", "Dial", "decode hello")
	}

	link := &tcpLink{
		conn:      conn,
		reader:    reader,
		localID:   hello.NodeID,
		events:    make(chan Packet, eventBuffer),
		closed:    make(chan struct{}),
		onDropped: d.OnDroppedFrame,
	}
	go link.readLoop()

	return link, nil
}

// tcpLink is a live connection to the gateway. The read loop is the sole
// writer and closer of the events channel.
type tcpLink struct {
	conn      net.Conn
	reader    *bufio.Reader
	localID   uint32
	events    chan Packet
	onDropped func()

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

// LocalNodeID returns the gateway's own node number.
func (l *tcpLink) LocalNodeID() uint32 {
	return l.localID
}

// Events returns the inbound packet stream. Closed when the link dies.
func (l *tcpLink) Events() <-chan Packet {
	return l.events
}

// Send transmits a text message to the given target, or broadcasts when the
// target is empty.
func (l *tcpLink) Send(ctx context.Context, text, target string) error {
	select {
	case <-l.closed:
		return errors.ErrLinkClosed
	default:
	}

	to, err := normalizeTarget(target)
	if err != nil {
		return err
	}

	frame := wireFrame{Type: frameSend, Text: &text, To: to}
	data, err := json.Marshal(frame)
	if err != nil {
		return errors.WrapInvalid(err, "tcpLink", "Send", "encode frame")
	}
	data = append(data, '\n')

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = l.conn.SetWriteDeadline(deadline)
		defer l.conn.SetWriteDeadline(time.Time{})
	}

	if _, err := l.conn.Write(data); err != nil {
		return errors.WrapTransient(err, "tcpLink", "Send", "write frame")
	}
	return nil
}

// Close tears down the link. The read loop notices the dead connection and
// closes the events channel.
func (l *tcpLink) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.closed)
		err = l.conn.Close()
	})
	return err
}

// readLoop decodes inbound frames until the connection dies. Frames that fail
// to decode, carry unknown types, or exceed maxFrameSize are dropped; only a
// dead connection ends the loop. Mixed-traffic noise is expected on a mesh.
func (l *tcpLink) readLoop() {
	defer close(l.events)

	for {
		line, err := l.reader.ReadSlice('\n')
		if err == bufio.ErrBufferFull {
			// Oversized frame: drain to the next newline and drop it.
			l.dropFrame()
			for err == bufio.ErrBufferFull {
				_, err = l.reader.ReadSlice('\n')
			}
			if err != nil {
				return
			}
			continue
		}
		if err != nil {
			return
		}

		line = bytes.TrimRight(line, "\r\n")
		if len(line) == 0 {
			continue
		}

		var frame wireFrame
		if err := json.Unmarshal(line, &frame); err != nil || frame.Type != framePacket {
			l.dropFrame()
			continue
		}

		packet := Packet{
			From:       frame.From,
			FromLongID: frame.FromID,
			Text:       frame.Text,
			Telemetry:  frame.Telemetry,
		}

		select {
		case l.events <- packet:
		case <-l.closed:
			return
		}
	}
}

func (l *tcpLink) dropFrame() {
	if l.onDropped != nil {
		l.onDropped()
	}
}

// normalizeTarget validates a target node reference and converts it to the
// wire form. Accepted forms: empty (broadcast), a decimal node number, or a
// long-form id like "!a1b2c3d4".
func normalizeTarget(target string) (string, error) {
	if target == "" {
		return "", nil
	}

	if strings.HasPrefix(target, "!") {
		hexPart := target[1:]
		if len(hexPart) != 8 {
			return "", errors.WrapInvalid(errors.ErrInvalidNodeID, "tcpLink", "Send",
				fmt.Sprintf("parse target %q", target))
		}
		if _, err := strconv.ParseUint(hexPart, 16, 32); err != nil {
			return "", errors.WrapInvalid(errors.ErrInvalidNodeID, "tcpLink", "Send",
				fmt.Sprintf("parse target %q", target))
		}
		return target, nil
	}

	if _, err := strconv.ParseUint(target, 10, 32); err != nil {
		return "", errors.WrapInvalid(errors.ErrInvalidNodeID, "tcpLink", "Send",
			fmt.Sprintf("parse target %q", target))
	}
	return target, nil
}
