package canbus

import (
	"context"
	"net"

	pkgerrors "github.com/pkg/errors"
	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
)

// Reader reads CAN frames.
type Reader interface {
	ReadFrame(ctx context.Context) (can.Frame, error)
	Close() error
}

// Writer writes CAN frames.
type Writer interface {
	WriteFrame(ctx context.Context, frame can.Frame) error
	Close() error
}

// Bus is a socketcan connection usable for both directions.
type Bus struct {
	conn net.Conn
	recv *socketcan.Receiver
	tx   *socketcan.Transmitter
}

var (
	_ Reader = (*Bus)(nil)
	_ Writer = (*Bus)(nil)
)

// Dial opens the named socketcan interface (e.g. "can0", "vcan0").
func Dial(ctx context.Context, ifname string) (*Bus, error) {
	conn, err := socketcan.DialContext(ctx, "can", ifname)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "socketcan dial %s", ifname)
	}
	return &Bus{
		conn: conn,
		recv: socketcan.NewReceiver(conn),
		tx:   socketcan.NewTransmitter(conn),
	}, nil
}

// ReadFrame reads one CAN frame, honoring context cancellation.
func (b *Bus) ReadFrame(ctx context.Context) (can.Frame, error) {
	frameCh := make(chan can.Frame, 1)
	errCh := make(chan error, 1)

	go func() {
		if b.recv.Receive() {
			frameCh <- b.recv.Frame()
		} else {
			errCh <- pkgerrors.New("can receive failed")
		}
	}()

	select {
	case <-ctx.Done():
		return can.Frame{}, ctx.Err()
	case frame := <-frameCh:
		return frame, nil
	case err := <-errCh:
		return can.Frame{}, err
	}
}

// WriteFrame transmits one CAN frame.
func (b *Bus) WriteFrame(ctx context.Context, frame can.Frame) error {
	return b.tx.TransmitFrame(ctx, frame)
}

// Close closes the underlying socket.
func (b *Bus) Close() error {
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
