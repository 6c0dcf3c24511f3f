package settlement_test

import (
	"testing"

	"github.com/livva-hq/settlement/internal/settlement"
)

func TestStatusTerminal(t *testing.T) {
	cases := []struct {
		status   settlement.Status
		terminal bool
	}{
		{settlement.StatusPending, false},
		{settlement.StatusFunded, false},
		{settlement.StatusReleased, true},
		{settlement.StatusPartialReleased, true},
		{settlement.StatusRefunded, true},
	}
	for _, tc := range cases {
		if got := tc.status.Terminal(); got != tc.terminal {
			t.Errorf("Terminal(%s) = %v, want %v", tc.status, got, tc.terminal)
		}
	}
}
