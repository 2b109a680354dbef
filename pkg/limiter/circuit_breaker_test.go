package limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

func TestCircuitBreakerManager(t *testing.T) {
	cbm := NewCircuitBreakerManager(nil)

	result, err := cbm.Execute(context.Background(), "local", func() (interface{}, error) {
		return "success", nil
	})

	if err != nil {
		t.Errorf("Expected success, got error: %v", err)
	}
	if result != "success" {
		t.Errorf("Expected result 'success', got %v", result)
	}
	if cbm.GetState("local") != gobreaker.StateClosed {
		t.Error("Expected circuit breaker to be closed after success")
	}
}

func TestCircuitBreakerManagerWithFailures(t *testing.T) {
	cbm := NewCircuitBreakerManager(nil)

	for i := 0; i < 5; i++ {
		_, err := cbm.Execute(context.Background(), "remote", func() (interface{}, error) {
			return nil, errors.New("simulated failure")
		})
		if err == nil {
			t.Error("Expected error for failing function")
		}
	}

	if !cbm.IsOpen("remote") {
		t.Error("Expected circuit breaker to be open after failures")
	}

	_, err := cbm.Execute(context.Background(), "remote", func() (interface{}, error) {
		return "success", nil
	})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Expected open state error, got %v", err)
	}
}

func TestCircuitBreakerManagerConfigure(t *testing.T) {
	cbm := NewCircuitBreakerManager(nil)
	cbm.Configure("strict", &CircuitBreakerConfig{
		Name:        "strict",
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
	})

	cbm.Execute(context.Background(), "strict", func() (interface{}, error) {
		return nil, errors.New("failure")
	})

	if !cbm.IsOpen("strict") {
		t.Error("Expected configured breaker to trip after one failure")
	}
}

func TestCircuitBreakerManagerStats(t *testing.T) {
	cbm := NewCircuitBreakerManager(nil)

	cbm.Execute(context.Background(), "stats", func() (interface{}, error) {
		return "success", nil
	})
	cbm.Execute(context.Background(), "stats", func() (interface{}, error) {
		return nil, errors.New("failure")
	})

	stats := cbm.GetStats("stats")
	if stats["endpoint"] != "stats" {
		t.Errorf("Expected endpoint to be stats, got %v", stats["endpoint"])
	}
	if stats["requests"] != uint32(2) {
		t.Errorf("Expected 2 requests, got %v", stats["requests"])
	}
}
