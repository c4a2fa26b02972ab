//go:build linux

// Package transport provides the byte-oriented duplex channels that
// carry Sahara and Streaming DLOAD traffic: a real termios-backed
// serial port and an in-memory fake used by tests.
package transport

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/openpst/go-qcboot/internal/interfaces"
)

var _ interfaces.Transport = (*Serial)(nil)

// Serial is a raw, non-canonical serial port transport. It owns the
// file descriptor for its lifetime; Open/Close are idempotent so an
// engine can reset a poisoned session by closing and reopening the
// same Serial value.
type Serial struct {
	mu   sync.Mutex
	fd   int
	port string
}

// NewSerial returns an unopened Serial transport.
func NewSerial() *Serial {
	return &Serial{fd: -1}
}

var baudRates = map[int]uint32{
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	921600:  unix.B921600,
	1500000: unix.B1500000,
}

// Open opens port in raw mode at the given baud rate. Idempotent when
// the port is already open on the same path.
func (s *Serial) Open(port string, baud int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fd >= 0 && s.port == port {
		return nil
	}
	if s.fd >= 0 {
		return fmt.Errorf("transport: serial already open on %s", s.port)
	}

	rate, ok := baudRates[baud]
	if !ok {
		return fmt.Errorf("transport: unsupported baud rate %d", baud)
	}

	fd, err := unix.Open(port, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return fmt.Errorf("transport: open %s: %w", port, err)
	}

	term, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		unix.Close(fd)
		return fmt.Errorf("transport: get attrs %s: %w", port, err)
	}

	makeRaw(term)
	term.Cflag &^= unix.CBAUD
	term.Cflag |= rate | unix.CREAD | unix.CLOCAL
	term.Ispeed = rate
	term.Ospeed = rate
	term.Cc[unix.VMIN] = 0
	term.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, ioctlSetTermios, term); err != nil {
		unix.Close(fd)
		return fmt.Errorf("transport: set attrs %s: %w", port, err)
	}

	// Clear O_NONBLOCK now that the port is configured; timed reads are
	// implemented with poll(2), not with non-blocking retries.
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err == nil {
		unix.FcntlInt(uintptr(fd), unix.F_SETFL, flags&^unix.O_NONBLOCK)
	}

	s.fd = fd
	s.port = port
	return nil
}

func makeRaw(t *unix.Termios) {
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB
	t.Cflag |= unix.CS8
}

// IsOpen reports whether the transport currently holds an open port.
func (s *Serial) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fd >= 0
}

// Close closes the underlying file descriptor. Idempotent.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fd < 0 {
		return nil
	}
	fd := s.fd
	s.fd = -1
	s.port = ""
	return unix.Close(fd)
}

// Read blocks for at most timeout waiting for input, then performs a
// single non-blocking read. A timeout with no data returns (0, nil);
// callers distinguish "timed out" from "EOF" by checking n == 0 and
// the absence of an error, same as a short read elsewhere in the
// protocol engines.
func (s *Serial) Read(buf []byte, timeout time.Duration) (int, error) {
	s.mu.Lock()
	fd := s.fd
	s.mu.Unlock()
	if fd < 0 {
		return 0, fmt.Errorf("transport: read on closed serial port")
	}

	pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	n, err := unix.Poll(pfd, int(timeout.Milliseconds()))
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("transport: poll: %w", err)
	}
	if n == 0 {
		return 0, nil
	}
	if pfd[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
		return 0, fmt.Errorf("transport: serial port hung up")
	}

	read, err := unix.Read(fd, buf)
	if err != nil {
		return 0, fmt.Errorf("transport: read: %w", err)
	}
	return read, nil
}

// Write writes buf in full, retrying short writes; a partial write is
// never surfaced as success.
func (s *Serial) Write(buf []byte) error {
	s.mu.Lock()
	fd := s.fd
	s.mu.Unlock()
	if fd < 0 {
		return fmt.Errorf("transport: write on closed serial port")
	}

	for len(buf) > 0 {
		n, err := unix.Write(fd, buf)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("transport: write: %w", err)
		}
		buf = buf[n:]
	}
	return nil
}

// Flush discards unread input and unsent output queued on the port.
func (s *Serial) Flush() error {
	s.mu.Lock()
	fd := s.fd
	s.mu.Unlock()
	if fd < 0 {
		return nil
	}
	return unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIOFLUSH)
}
