package nodeclient

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/JSONOrona/redis-shard/internal/metrics"
	rserr "github.com/JSONOrona/redis-shard/pkg/errors"
)

// DefaultTimeout bounds the dial plus round trip of one administrative
// command when the caller supplies none.
const DefaultTimeout = 5 * time.Second

// RESPClient implements Client over the Redis serialization protocol. Each
// command dials a fresh connection, writes one request and reads one reply.
type RESPClient struct {
	timeout time.Duration
}

// NewRESPClient returns a client whose administrative commands time out
// after the given duration (DefaultTimeout if zero).
func NewRESPClient(timeout time.Duration) *RESPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RESPClient{timeout: timeout}
}

var _ Client = (*RESPClient)(nil)

func (c *RESPClient) MyID(ctx context.Context, addr string) (string, error) {
	reply, err := c.do(ctx, addr, c.timeout, "CLUSTER", "MYID")
	if err != nil {
		return "", err
	}
	return expectString(reply, "CLUSTER MYID")
}

func (c *RESPClient) Nodes(ctx context.Context, addr string) (string, error) {
	reply, err := c.do(ctx, addr, c.timeout, "CLUSTER", "NODES")
	if err != nil {
		return "", err
	}
	return expectString(reply, "CLUSTER NODES")
}

func (c *RESPClient) Meet(ctx context.Context, addr, peerIP string, peerPort int) error {
	_, err := c.do(ctx, addr, c.timeout, "CLUSTER", "MEET", peerIP, strconv.Itoa(peerPort))
	return err
}

func (c *RESPClient) SetSlotImporting(ctx context.Context, addr string, slot uint16, sourceID string) error {
	_, err := c.do(ctx, addr, c.timeout, "CLUSTER", "SETSLOT", formatSlot(slot), "IMPORTING", sourceID)
	return err
}

func (c *RESPClient) SetSlotMigrating(ctx context.Context, addr string, slot uint16, destID string) error {
	_, err := c.do(ctx, addr, c.timeout, "CLUSTER", "SETSLOT", formatSlot(slot), "MIGRATING", destID)
	return err
}

func (c *RESPClient) SetSlotOwner(ctx context.Context, addr string, slot uint16, ownerID string) error {
	_, err := c.do(ctx, addr, c.timeout, "CLUSTER", "SETSLOT", formatSlot(slot), "NODE", ownerID)
	return err
}

func (c *RESPClient) ClearSlotState(ctx context.Context, addr string, slot uint16) error {
	_, err := c.do(ctx, addr, c.timeout, "CLUSTER", "SETSLOT", formatSlot(slot), "STABLE")
	return err
}

func (c *RESPClient) CountKeysInSlot(ctx context.Context, addr string, slot uint16) (int, error) {
	reply, err := c.do(ctx, addr, c.timeout, "CLUSTER", "COUNTKEYSINSLOT", formatSlot(slot))
	if err != nil {
		return 0, err
	}
	n, ok := reply.(int64)
	if !ok {
		return 0, fmt.Errorf("CLUSTER COUNTKEYSINSLOT: expected integer, got %T", reply)
	}
	return int(n), nil
}

func (c *RESPClient) KeysInSlot(ctx context.Context, addr string, slot uint16, limit int) ([]string, error) {
	reply, err := c.do(ctx, addr, c.timeout, "CLUSTER", "GETKEYSINSLOT", formatSlot(slot), strconv.Itoa(limit))
	if err != nil {
		return nil, err
	}
	items, ok := reply.([]any)
	if !ok {
		return nil, fmt.Errorf("CLUSTER GETKEYSINSLOT: expected array, got %T", reply)
	}
	keys := make([]string, 0, len(items))
	for i, item := range items {
		key, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("CLUSTER GETKEYSINSLOT: element %d not a string", i)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (c *RESPClient) MoveKey(ctx context.Context, addr, destHost string, destPort int, key string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = c.timeout
	}
	timeoutMs := strconv.FormatInt(timeout.Milliseconds(), 10)
	reply, err := c.do(ctx, addr, timeout,
		"MIGRATE", destHost, strconv.Itoa(destPort), key, "0", timeoutMs, "REPLACE")
	if err != nil {
		return err
	}
	// +NOKEY means the key vanished before the move; the slot no longer
	// holds it, which is the outcome the move wanted.
	if s, ok := reply.(string); ok && s != "OK" && s != "NOKEY" {
		return fmt.Errorf("MIGRATE: unexpected reply %q", s)
	}
	return nil
}

func (c *RESPClient) do(ctx context.Context, addr string, timeout time.Duration, args ...string) (any, error) {
	cmd := strings.ToLower(args[0])
	start := time.Now()

	reply, err := c.roundTrip(ctx, addr, timeout, args)

	metrics.CommandDuration.WithLabelValues(cmd).Observe(time.Since(start).Seconds())
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.CommandsTotal.WithLabelValues(cmd, status).Inc()

	return reply, err
}

func (c *RESPClient) roundTrip(ctx context.Context, addr string, timeout time.Duration, args []string) (any, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, &rserr.ConnectivityError{Addr: addr, Err: err}
	}
	defer conn.Close()

	if err := setConnDeadline(ctx, conn, timeout); err != nil {
		return nil, &rserr.ConnectivityError{Addr: addr, Err: err}
	}

	if _, err := conn.Write(encodeCommand(args)); err != nil {
		return nil, &rserr.ConnectivityError{Addr: addr, Err: err}
	}

	reply, err := parseReply(bufio.NewReader(conn))
	if err != nil {
		var re *replyError
		if errors.As(err, &re) {
			return nil, &rserr.CommandError{
				Addr:    addr,
				Command: strings.Join(args, " "),
				Reason:  re.msg,
			}
		}
		return nil, &rserr.ConnectivityError{Addr: addr, Err: err}
	}
	return reply, nil
}

func encodeCommand(args []string) []byte {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("*%d\r\n", len(args)))
	for _, arg := range args {
		builder.WriteString(fmt.Sprintf("$%d\r\n%s\r\n", len(arg), arg))
	}
	return []byte(builder.String())
}

func setConnDeadline(ctx context.Context, conn net.Conn, timeout time.Duration) error {
	if ctx != nil {
		if deadline, ok := ctx.Deadline(); ok {
			return conn.SetDeadline(deadline)
		}
	}
	return conn.SetDeadline(time.Now().Add(timeout))
}

func formatSlot(slot uint16) string {
	return strconv.FormatUint(uint64(slot), 10)
}

func expectString(reply any, cmd string) (string, error) {
	s, ok := reply.(string)
	if !ok {
		return "", fmt.Errorf("%s: expected string, got %T", cmd, reply)
	}
	return s, nil
}

// replyError is an error line ("-ERR ...") returned by the node itself, as
// opposed to a transport failure.
type replyError struct {
	msg string
}

func (e *replyError) Error() string {
	return e.msg
}

func parseReply(reader *bufio.Reader) (any, error) {
	prefix, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	switch prefix {
	case '*':
		line, err := readReplyLine(reader)
		if err != nil {
			return nil, err
		}
		count, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("resp array length: %w", err)
		}
		if count == -1 {
			return nil, nil
		}
		if count < -1 {
			return nil, fmt.Errorf("resp array length negative: %d", count)
		}
		items := make([]any, 0, count)
		for i := 0; i < count; i++ {
			item, err := parseReply(reader)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	case ':':
		line, err := readReplyLine(reader)
		if err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("resp integer: %w", err)
		}
		return n, nil
	case '$':
		line, err := readReplyLine(reader)
		if err != nil {
			return nil, err
		}
		length, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("resp bulk length: %w", err)
		}
		if length == -1 {
			return nil, nil
		}
		if length < -1 {
			return nil, fmt.Errorf("resp bulk length negative: %d", length)
		}
		buf := make([]byte, length+2)
		if _, err := io.ReadFull(reader, buf); err != nil {
			return nil, err
		}
		if buf[length] != '\r' || buf[length+1] != '\n' {
			return nil, fmt.Errorf("resp bulk missing terminator")
		}
		return string(buf[:length]), nil
	case '+':
		return readReplyLine(reader)
	case '-':
		line, err := readReplyLine(reader)
		if err != nil {
			return nil, err
		}
		return nil, &replyError{msg: line}
	default:
		return nil, fmt.Errorf("resp: unexpected prefix %q", prefix)
	}
}

func readReplyLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	if !strings.HasSuffix(line, "\r\n") {
		return "", fmt.Errorf("resp: invalid line ending")
	}
	return strings.TrimSuffix(line, "\r\n"), nil
}
