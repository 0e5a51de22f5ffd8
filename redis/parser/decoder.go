package parser

import (
	"bytes"
	"errors"
	"strconv"

	"github.com/hdt3213/minidis/interface/redis"
	"github.com/hdt3213/minidis/redis/command"
)

const (
	// maxArgs bounds the declared argument count of one request
	maxArgs = 1 << 20
	// maxBulkLen bounds the declared length of one argument
	maxBulkLen = 512 << 20
	// maxLineLen bounds a header line, which only holds a prefix and a decimal length
	maxLineLen = 32
)

var (
	// ErrEmptyRequest is returned for an empty buffer or a request declaring no argument
	ErrEmptyRequest = errors.New("Empty request")
	// ErrInvalidFormat is returned for any framing violation
	ErrInvalidFormat = errors.New("Invalid request format")

	errIncomplete = errors.New("incomplete request")
	// errShortBody is an incomplete request whose buffer ends on CRLF inside an argument body
	errShortBody = errors.New("short argument body")
	crlf         = []byte{'\r', '\n'}
	frameStart   = []byte{'\n', '*'}
)

// IsProtocolError tells whether err was raised by the decoder, such errors are local to a request
func IsProtocolError(err error) bool {
	return errors.Is(err, ErrEmptyRequest) || errors.Is(err, ErrInvalidFormat)
}

// Request is a decoded request
type Request struct {
	Command redis.Command
	// Args is the raw command line, command name included
	Args [][]byte
}

// ParseRequest decodes exactly one request held in buf and resolves its command
func ParseRequest(buf []byte) (*Request, error) {
	if len(buf) == 0 {
		return nil, ErrEmptyRequest
	}
	args, n, err := parseFrame(buf)
	if err == errIncomplete || err == errShortBody {
		return nil, ErrInvalidFormat
	}
	if err != nil {
		return nil, err
	}
	if n != len(buf) {
		return nil, ErrInvalidFormat
	}
	return ResolveCommand(args)
}

// ResolveCommand turns a decoded command line into a Request
func ResolveCommand(args [][]byte) (*Request, error) {
	cmd, err := command.Parse(args)
	if err != nil {
		return nil, err
	}
	return &Request{
		Command: cmd,
		Args:    args,
	}, nil
}

// Decoder reassembles requests from a byte stream, it is not safe for concurrent use
type Decoder struct {
	// ReadSize is the size of the reads feeding the decoder, 0 when unknown
	ReadSize int

	buf      []byte
	lastFull bool
}

// Feed appends the bytes of one read
func (d *Decoder) Feed(data []byte) {
	d.buf = append(d.buf, data...)
	d.lastFull = d.ReadSize > 0 && len(data) >= d.ReadSize
}

// Buffered returns the number of bytes not decoded yet
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Next decodes the next complete request from the buffered bytes.
// It returns nil, nil when more bytes are required.
// After a protocol error the offending frame is dropped so the next request can be decoded.
func (d *Decoder) Next() ([][]byte, error) {
	if len(d.buf) == 0 {
		return nil, nil
	}
	args, n, err := parseFrame(d.buf)
	if err == errIncomplete {
		return nil, nil
	}
	if err == errShortBody {
		// a read that filled the buffer was most likely cut by the reader
		if d.lastFull {
			return nil, nil
		}
		// the read ended on a line boundary inside a body: the declared length does not add up
		d.reset()
		return nil, ErrInvalidFormat
	}
	if err != nil {
		if n > 0 {
			d.consume(n)
		} else {
			d.skipFrame()
		}
		return nil, err
	}
	d.consume(n)
	return args, nil
}

// skipFrame drops bytes up to the next line starting with '*'
func (d *Decoder) skipFrame() {
	idx := bytes.Index(d.buf, frameStart)
	if idx < 0 {
		d.reset()
		return
	}
	d.consume(idx + 1)
}

func (d *Decoder) consume(n int) {
	d.buf = append(d.buf[:0], d.buf[n:]...)
}

func (d *Decoder) reset() {
	d.buf = d.buf[:0]
}

// readLine returns the line starting at pos without CRLF and the position following it
func readLine(buf []byte, pos int) ([]byte, int, error) {
	idx := bytes.Index(buf[pos:], crlf)
	if idx < 0 {
		if len(buf)-pos > maxLineLen {
			return nil, 0, ErrInvalidFormat
		}
		return nil, 0, errIncomplete
	}
	return buf[pos : pos+idx], pos + idx + 2, nil
}

func parseLength(line []byte, prefix byte, limit int) (int, error) {
	if len(line) < 2 || line[0] != prefix {
		return 0, ErrInvalidFormat
	}
	n, err := strconv.Atoi(string(line[1:]))
	if err != nil || n < 0 || n > limit {
		return 0, ErrInvalidFormat
	}
	return n, nil
}

// parseFrame decodes the request at the head of buf and returns the number of bytes it occupies.
// A request declaring zero arguments is consumed and reported as ErrEmptyRequest.
func parseFrame(buf []byte) ([][]byte, int, error) {
	header, pos, err := readLine(buf, 0)
	if err != nil {
		if len(buf) > 0 && buf[0] != '*' {
			return nil, 0, ErrInvalidFormat
		}
		return nil, 0, err
	}
	count, err := parseLength(header, '*', maxArgs)
	if err != nil {
		return nil, 0, err
	}
	if count == 0 {
		return nil, pos, ErrEmptyRequest
	}
	args := make([][]byte, 0, min(count, 64))
	for i := 0; i < count; i++ {
		line, next, err := readLine(buf, pos)
		if err != nil {
			if pos < len(buf) && buf[pos] != '$' {
				return nil, 0, ErrInvalidFormat
			}
			return nil, 0, err
		}
		pos = next
		length, err := parseLength(line, '$', maxBulkLen)
		if err != nil {
			return nil, 0, err
		}
		end := pos + length
		if len(buf) < end+2 {
			if len(buf)-pos >= 2 && bytes.HasSuffix(buf, crlf) {
				return nil, 0, errShortBody
			}
			return nil, 0, errIncomplete
		}
		if buf[end] != '\r' || buf[end+1] != '\n' {
			return nil, 0, ErrInvalidFormat
		}
		arg := make([]byte, length)
		copy(arg, buf[pos:end])
		args = append(args, arg)
		pos = end + 2
	}
	return args, pos, nil
}
