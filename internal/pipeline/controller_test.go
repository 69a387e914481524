package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
	"github.com/dvloznov/ledger-reconciler/internal/reasoning"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func controllerRequest(f *fixture, snap *Snapshot) Request {
	return Request{
		DocumentID: "doc-1",
		UserID:     f.user.ID,
		Items: []LineItem{{
			Amount: dec("12.50"), Merchant: "Joe's Coffee",
			TransactionDate: day("2024-03-01"), Type: domain.TransactionTypeExpense,
		}},
		Snapshot: snap,
	}
}

func TestController_DecidesOnFirstTurn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	snap, err := NewContextBuilder(f.db, 0, 0, 0, 0).Build(ctx, f.user.ID, nil)
	require.NoError(t, err)

	client := &scriptedClient{turns: []string{fmt.Sprintf(
		`{"action":"DECIDE","decisions":[{"change_type":"CREATE_NEW","account_id":%q,"type":"EXPENSE","amount":12.5,"merchant":"Joe's Coffee"}]}`,
		f.checking.ID)}}

	outcome, err := NewController(client, f.db, 5, 20).Run(ctx, controllerRequest(f, snap))
	require.NoError(t, err)
	assert.Equal(t, StrategyAgentic, outcome.Strategy)
	assert.Equal(t, 0, outcome.Turns)
	require.Len(t, outcome.Decisions, 1)
	assert.Equal(t, f.checking.ID, outcome.Decisions[0].AccountID)
}

func TestController_QueryResultsBecomeTargets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// Older than the snapshot window of one recent transaction.
	old := f.addTransaction(t, "Joe's Coffee", "12.50", day("2023-01-01"))
	f.addTransaction(t, "Bakery", "3", day("2024-03-05"))

	snap, err := NewContextBuilder(f.db, 1, 0, 0, 0).Build(ctx, f.user.ID, nil)
	require.NoError(t, err)
	require.NotContains(t, snap.TransactionIDs(), old.ID)

	client := &scriptedClient{turns: []string{
		`{"action":"QUERY","query":{"merchant":"joe's","date_from":"2022-12-31","date_to":"2023-01-01"}}`,
		fmt.Sprintf(`{"action":"DECIDE","decisions":[{"change_type":"UPDATE_EXISTING","target_transaction_id":%q,"type":"EXPENSE","amount":12.5}]}`, old.ID),
	}}

	outcome, err := NewController(client, f.db, 5, 20).Run(ctx, controllerRequest(f, snap))
	require.NoError(t, err)
	assert.Equal(t, StrategyAgentic, outcome.Strategy)
	assert.Equal(t, 1, outcome.Turns)
	assert.Equal(t, old.ID, outcome.Decisions[0].TargetTransactionID)
	require.Len(t, client.prompts, 2)
	assert.Contains(t, client.prompts[1], old.ID)
}

func TestController_TurnBudgetFallsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	snap, err := NewContextBuilder(f.db, 0, 0, 0, 0).Build(ctx, f.user.ID, nil)
	require.NoError(t, err)

	client := &scriptedClient{turns: []string{
		`{"action":"DECIDE","decisions":[{"change_type":"CREATE_NEW","account_id":"invented","type":"EXPENSE","amount":12.5}]}`,
	}}

	outcome, err := NewController(client, f.db, 5, 20).Run(ctx, controllerRequest(f, snap))
	require.NoError(t, err)
	assert.Equal(t, StrategyFallback, outcome.Strategy)
	assert.Equal(t, 5, outcome.Turns)
	assert.Equal(t, 5, client.turnCalls)
	assert.Contains(t, client.prompts[4], "you must DECIDE now")
	assert.Contains(t, client.prompts[1], `account_id "invented" is not one of the known accounts`)
	require.Len(t, outcome.Decisions, 1)
	assert.Equal(t, domain.ChangeTypeCreateNew, outcome.Decisions[0].ChangeType)
}

func TestController_MalformedFallsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	snap, err := NewContextBuilder(f.db, 0, 0, 0, 0).Build(ctx, f.user.ID, nil)
	require.NoError(t, err)

	for name, client := range map[string]*scriptedClient{
		"malformed": {turns: []string{"I think it is a coffee."}},
		"empty":     {},
	} {
		t.Run(name, func(t *testing.T) {
			outcome, err := NewController(client, f.db, 5, 20).Run(ctx, controllerRequest(f, snap))
			require.NoError(t, err)
			assert.Equal(t, StrategyFallback, outcome.Strategy)
			assert.Equal(t, 0, outcome.Turns)
			assert.NotEmpty(t, outcome.FallbackReason)
			assert.Equal(t, 1, client.turnCalls)
		})
	}
}

func TestController_UpstreamErrorIsReturned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	snap, err := NewContextBuilder(f.db, 0, 0, 0, 0).Build(ctx, f.user.ID, nil)
	require.NoError(t, err)

	boom := errors.New("503 from upstream")
	client := reasoning.ClientFunc(func(context.Context, string, []reasoning.Attachment) (string, error) {
		return "", boom
	})

	_, err = NewController(client, f.db, 5, 20).Run(ctx, controllerRequest(f, snap))
	assert.ErrorIs(t, err, boom)
}
