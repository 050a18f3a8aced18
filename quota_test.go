package potatosync_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	potatosync "github.com/broodroosterdev/potatosync-files"
)

func TestQuotaGate_Check(t *testing.T) {
	tests := []struct {
		name        string
		limit       int
		used        int
		wantAllowed bool
	}{
		{name: "below limit", limit: 3, used: 2, wantAllowed: true},
		{name: "at limit", limit: 3, used: 3, wantAllowed: false},
		{name: "over limit", limit: 3, used: 5, wantAllowed: false},
		{name: "empty account", limit: 3, used: 0, wantAllowed: true},
		{name: "zero limit", limit: 0, used: 0, wantAllowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPrincipal(t, "u1")
			backend := new(SpyBackend)
			backend.On("Count", mock.Anything, "u1/").Return(tt.used, nil).Once()

			decision, err := potatosync.QuotaGate{Limit: tt.limit}.Check(context.Background(), p, backend)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAllowed, decision.Allowed)
			assert.Equal(t, tt.used, decision.Used)
			backend.AssertExpectations(t)
		})
	}
}

func TestQuotaGate_CountsEveryCall(t *testing.T) {
	p := newPrincipal(t, "u1")
	backend := new(SpyBackend)
	backend.On("Count", mock.Anything, "u1/").Return(2, nil).Once()
	backend.On("Count", mock.Anything, "u1/").Return(3, nil).Once()

	gate := potatosync.QuotaGate{Limit: 3}

	first, err := gate.Check(context.Background(), p, backend)
	require.NoError(t, err)
	assert.True(t, first.Allowed)

	second, err := gate.Check(context.Background(), p, backend)
	require.NoError(t, err)
	assert.False(t, second.Allowed)

	backend.AssertNumberOfCalls(t, "Count", 2)
}

func TestQuotaGate_Status(t *testing.T) {
	p := newPrincipal(t, "u1")
	backend := new(SpyBackend)
	backend.On("Count", mock.Anything, "u1/").Return(40, nil)

	status, err := potatosync.QuotaGate{Limit: 45}.Status(context.Background(), p, backend)
	require.NoError(t, err)
	assert.Equal(t, potatosync.QuotaStatus{Used: 40, Limit: 45}, status)
}

func TestQuotaGate_CountError(t *testing.T) {
	p := newPrincipal(t, "u1")
	boom := errors.New("disk gone")
	backend := new(SpyBackend)
	backend.On("Count", mock.Anything, "u1/").Return(0, boom)

	_, err := potatosync.QuotaGate{Limit: 3}.Check(context.Background(), p, backend)
	assert.ErrorIs(t, err, boom)

	_, err = potatosync.QuotaGate{Limit: 3}.Status(context.Background(), p, backend)
	assert.ErrorIs(t, err, boom)
}
