package config

import (
	"errors"
	"testing"
	"time"

	rserr "github.com/JSONOrona/redis-shard/pkg/errors"
)

func validRun() Run {
	return Run{
		SourceAddr:     "127.0.0.1:7000",
		DestAddr:       "127.0.0.1:7001",
		SlotStart:      0,
		SlotEnd:        100,
		MoveTimeout:    time.Second,
		CommandTimeout: time.Second,
	}
}

func TestValidate(t *testing.T) {
	if err := validRun().Validate(); err != nil {
		t.Fatalf("valid run rejected: %v", err)
	}
}

func TestValidateRejectsBadAddresses(t *testing.T) {
	run := validRun()
	run.SourceAddr = "no-port"
	if err := run.Validate(); err == nil {
		t.Error("expected error for address without port")
	}

	run = validRun()
	run.DestAddr = run.SourceAddr
	if err := run.Validate(); err == nil {
		t.Error("expected error for identical endpoints")
	}
}

func TestValidateRejectsBadRanges(t *testing.T) {
	run := validRun()
	run.SlotStart, run.SlotEnd = 200, 100
	if err := run.Validate(); !errors.Is(err, rserr.ErrInvalidSlotRange) {
		t.Errorf("expected ErrInvalidSlotRange, got %v", err)
	}

	run = validRun()
	run.SlotEnd = 16384
	if err := run.Validate(); !errors.Is(err, rserr.ErrInvalidSlotRange) {
		t.Errorf("expected ErrInvalidSlotRange for slot past the keyspace, got %v", err)
	}
}

func TestDestHostPort(t *testing.T) {
	run := validRun()
	host, port, err := run.DestHostPort()
	if err != nil {
		t.Fatalf("DestHostPort failed: %v", err)
	}
	if host != "127.0.0.1" || port != 7001 {
		t.Errorf("got %s:%d, want 127.0.0.1:7001", host, port)
	}
}
