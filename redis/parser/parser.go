package parser

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"runtime/debug"
	"strconv"

	"github.com/hdt3213/minidis/interface/redis"
	"github.com/hdt3213/minidis/lib/logger"
	"github.com/hdt3213/minidis/redis/protocol"
)

// ReadBufferSize is the size of one read from a connection
const ReadBufferSize = 64 * 1024

// Payload stores a decoded command line or error
type Payload struct {
	Args [][]byte
	Err  error
}

// ParseStream reads requests from io.Reader and send payloads through channel.
// Protocol errors are sent as payloads and decoding goes on, the channel is closed after a read error.
func ParseStream(reader io.Reader) <-chan *Payload {
	ch := make(chan *Payload)
	go parse0(reader, ch)
	return ch
}

func parse0(reader io.Reader, ch chan<- *Payload) {
	defer func() {
		if err := recover(); err != nil {
			logger.Error(err, string(debug.Stack()))
		}
	}()
	defer close(ch)
	decoder := &Decoder{ReadSize: ReadBufferSize}
	buf := make([]byte, ReadBufferSize)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			decoder.Feed(buf[:n])
			for {
				args, perr := decoder.Next()
				if perr != nil {
					ch <- &Payload{Err: perr}
					continue
				}
				if args == nil {
					break
				}
				ch <- &Payload{Args: args}
			}
		}
		if err != nil {
			ch <- &Payload{Err: err}
			return
		}
		if n == 0 {
			ch <- &Payload{Err: io.EOF}
			return
		}
	}
}

// ReadReply reads one reply from a server
func ReadReply(reader *bufio.Reader) (redis.Reply, error) {
	line, err := readReplyLine(reader)
	if err != nil {
		return nil, err
	}
	switch line[0] {
	case '+':
		return protocol.MakeStatusReply(string(line[1:])), nil
	case '-':
		return protocol.MakeErrReply(string(line[1:])), nil
	case ':':
		value, err := strconv.ParseInt(string(line[1:]), 10, 64)
		if err != nil {
			return nil, protocolError("illegal number " + string(line[1:]))
		}
		return protocol.MakeIntReply(value), nil
	case '$':
		body, err := readBulk(line, reader)
		if err != nil {
			return nil, err
		}
		if body == nil {
			return protocol.MakeNullBulkReply(), nil
		}
		return protocol.MakeBulkReply(body), nil
	case '*':
		return readArray(line, reader)
	default:
		return nil, protocolError("unknown reply type " + string(line))
	}
}

// ParseReplies reads all replies held in data
func ParseReplies(data []byte) ([]redis.Reply, error) {
	reader := bufio.NewReader(bytes.NewReader(data))
	var results []redis.Reply
	for {
		reply, err := ReadReply(reader)
		if err == io.EOF {
			return results, nil
		}
		if err != nil {
			return nil, err
		}
		results = append(results, reply)
	}
}

func readReplyLine(reader *bufio.Reader) ([]byte, error) {
	line, err := reader.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) > 0 {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	length := len(line)
	if length <= 2 || line[length-2] != '\r' {
		return nil, protocolError("illegal line " + string(line))
	}
	return line[:length-2], nil
}

// readBulk returns nil for a null bulk string
func readBulk(header []byte, reader *bufio.Reader) ([]byte, error) {
	strLen, err := strconv.ParseInt(string(header[1:]), 10, 64)
	if err != nil || strLen < -1 || strLen > maxBulkLen {
		return nil, protocolError("illegal bulk string header: " + string(header))
	} else if strLen == -1 {
		return nil, nil
	}
	body := make([]byte, strLen+2)
	_, err = io.ReadFull(reader, body)
	if err != nil {
		return nil, err
	}
	return body[:len(body)-2], nil
}

func readArray(header []byte, reader *bufio.Reader) (redis.Reply, error) {
	nStrs, err := strconv.ParseInt(string(header[1:]), 10, 64)
	if err != nil || nStrs < 0 || nStrs > maxArgs {
		return nil, protocolError("illegal array header " + string(header[1:]))
	} else if nStrs == 0 {
		return protocol.MakeEmptyMultiBulkReply(), nil
	}
	lines := make([][]byte, 0, nStrs)
	for i := int64(0); i < nStrs; i++ {
		line, err := readReplyLine(reader)
		if err != nil {
			return nil, err
		}
		if line[0] != '$' {
			return nil, protocolError("illegal bulk string header " + string(line))
		}
		body, err := readBulk(line, reader)
		if err != nil {
			return nil, err
		}
		lines = append(lines, body)
	}
	return protocol.MakeMultiBulkReply(lines), nil
}

func protocolError(msg string) error {
	return errors.New("protocol error: " + msg)
}
