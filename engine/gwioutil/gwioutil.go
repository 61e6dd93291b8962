package gwioutil

import (
	"io"

	"github.com/pkg/errors"
)

type timeoutError interface {
	Timeout() bool // Is it a timeout error
}

// IsTimeoutError checks if the error is a timeout error
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	err = errors.Cause(err)
	ne, ok := err.(timeoutError)
	return ok && ne.Timeout()
}

// WriteAll write all bytes of data to the writer, retrying on timeouts
func WriteAll(conn io.Writer, data []byte) error {
	left := len(data)
	for left > 0 {
		n, err := conn.Write(data)
		if n == left && err == nil { // handle most common case first
			return nil
		}

		if n > 0 {
			data = data[n:]
			left -= n
		}

		if err != nil && !IsTimeoutError(err) {
			return err
		}
	}
	return nil
}

// ReadAll reads from the reader until all bytes in data is filled, retrying on timeouts
//
// It returns io.EOF if the reader ends before any byte is read, and io.ErrUnexpectedEOF if it ends
// in the middle of data.
func ReadAll(conn io.Reader, data []byte) error {
	total := len(data)
	left := total
	for left > 0 {
		n, err := conn.Read(data)
		if n == left && err == nil { // handle most common case first
			return nil
		}

		if n > 0 {
			data = data[n:]
			left -= n
		}

		if err == io.EOF {
			if left == 0 {
				return nil
			}
			if left < total {
				return io.ErrUnexpectedEOF
			}
			return io.EOF
		}
		if err != nil && !IsTimeoutError(err) {
			return err
		}
	}
	return nil
}
