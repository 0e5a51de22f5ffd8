package protocol

// UnknownErrReply represents UnknownErr
type UnknownErrReply struct{}

var unknownErrBytes = []byte("-ERR unknown\r\n")

// ToBytes marshals redis.Reply
func (r *UnknownErrReply) ToBytes() []byte {
	return unknownErrBytes
}

func (r *UnknownErrReply) Error() string {
	return "ERR unknown"
}

// WrongTypeErrReply represents a list operation against a scalar key
type WrongTypeErrReply struct{}

var wrongTypeErrBytes = []byte("-Key is not a list\r\n")

// ToBytes marshals redis.Reply
func (r *WrongTypeErrReply) ToBytes() []byte {
	return wrongTypeErrBytes
}

func (r *WrongTypeErrReply) Error() string {
	return "Key is not a list"
}

// NotScalarErrReply represents a scalar read against a list key
type NotScalarErrReply struct{}

var notScalarErrBytes = []byte("-Key is not a scalar\r\n")

// ToBytes marshals redis.Reply
func (r *NotScalarErrReply) ToBytes() []byte {
	return notScalarErrBytes
}

func (r *NotScalarErrReply) Error() string {
	return "Key is not a scalar"
}

// TimeoutErrReply is returned by blocking commands which got nothing before the deadline
type TimeoutErrReply struct{}

var timeoutErrBytes = []byte("-Timeout\r\n")

// ToBytes marshals redis.Reply
func (r *TimeoutErrReply) ToBytes() []byte {
	return timeoutErrBytes
}

func (r *TimeoutErrReply) Error() string {
	return "Timeout"
}
