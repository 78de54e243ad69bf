package approval

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func approvers(ids ...string) []Approver {
	out := make([]Approver, len(ids))
	for i, id := range ids {
		out[i] = Approver{UserID: id, Name: "User " + id, Kind: KindApprove}
	}
	return out
}

func TestNewChain(t *testing.T) {
	tests := []struct {
		name      string
		approvers []Approver
		wantErr   bool
	}{
		{"single approver", approvers("a"), false},
		{"three approvers", approvers("a", "b", "c"), false},
		{"empty list", nil, true},
		{"duplicate user", approvers("a", "b", "a"), true},
		{"missing kind", []Approver{{UserID: "a"}}, true},
		{"unknown kind", []Approver{{UserID: "a", Kind: Kind("Menolak")}}, true},
		{"blank user", []Approver{{UserID: " ", Kind: KindApprove}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain, err := NewChain(tt.approvers)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
				assert.Nil(t, chain)
				return
			}

			require.NoError(t, err)
			require.Len(t, chain, len(tt.approvers))
			for _, e := range chain {
				assert.Equal(t, StatusPending, e.Status)
				assert.Nil(t, e.ProcessedAt)
			}
		})
	}
}

func TestChain_Validate(t *testing.T) {
	chain, err := NewChain(approvers("a", "b"))
	require.NoError(t, err)
	assert.NoError(t, chain.Validate())

	assert.ErrorIs(t, Chain{}.Validate(), ErrValidation)

	dup := append(chain.Clone(), chain[0])
	assert.ErrorIs(t, dup.Validate(), ErrValidation)
}

func TestChain_Add(t *testing.T) {
	chain, err := NewChain(approvers("a"))
	require.NoError(t, err)

	out, err := chain.Add(Approver{UserID: "b", Kind: KindAcknowledge})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, out.UserIDs())
	assert.Len(t, chain, 1, "input chain must not change")

	_, err = out.Add(Approver{UserID: "a", Kind: KindApprove})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestChain_Move(t *testing.T) {
	chain, err := NewChain(approvers("a", "b", "c"))
	require.NoError(t, err)

	up, err := chain.MoveUp(2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b"}, up.UserIDs())

	down, err := chain.MoveDown(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, down.UserIDs())

	assert.Equal(t, []string{"a", "b", "c"}, chain.UserIDs(), "input chain must not change")

	_, err = chain.MoveUp(0)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = chain.MoveDown(2)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = chain.MoveUp(5)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = chain.MoveDown(-1)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestChain_Remove(t *testing.T) {
	chain, err := NewChain(approvers("a", "b", "c"))
	require.NoError(t, err)

	out, err := chain.Remove("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, out.UserIDs())

	_, err = chain.Remove("zz")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestChain_CloneIsDeep(t *testing.T) {
	chain, err := NewChain(approvers("a", "b"))
	require.NoError(t, err)

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	chain[0].Status = StatusApproved
	chain[0].ProcessedAt = &now

	clone := chain.Clone()
	clone[0].Name = "changed"
	*clone[0].ProcessedAt = now.Add(time.Hour)
	clone[1].Status = StatusRejected

	assert.Equal(t, "User a", chain[0].Name)
	assert.Equal(t, now, *chain[0].ProcessedAt)
	assert.Equal(t, StatusPending, chain[1].Status)
}

func TestChain_Fresh(t *testing.T) {
	chain, err := NewChain(approvers("a"))
	require.NoError(t, err)

	now := time.Now()
	chain[0].Status = StatusApproved
	chain[0].ProcessedAt = &now

	fresh := chain.Fresh()
	assert.Equal(t, StatusPending, fresh[0].Status)
	assert.Nil(t, fresh[0].ProcessedAt)
	assert.Equal(t, StatusApproved, chain[0].Status)
}
