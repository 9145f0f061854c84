package railplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketPrices(t *testing.T) {
	store := newNetworkStore(t)

	options, err := TicketPrices(store, "BTN", "PRP")
	require.NoError(t, err)
	require.NotEmpty(t, options)

	summary := SummarizeTickets(options, TicketForAdult)
	require.NotNil(t, summary.Single)
	require.NotNil(t, summary.Return)
	assert.Equal(t, 310, summary.Single.Fare)
	assert.Equal(t, 620, summary.Return.Fare)
	assert.LessOrEqual(t, summary.Single.Fare, summary.Return.Fare)
}

func TestTicketPricesChild(t *testing.T) {
	store := newNetworkStore(t)

	options, err := TicketPrices(store, "BTN", "PRP")
	require.NoError(t, err)

	summary := SummarizeTickets(options, TicketForChild)
	require.NotNil(t, summary.Single)
	assert.Equal(t, 155, summary.Single.Fare)
	assert.Nil(t, summary.Return)
}

// With no direct flow from Preston Park to Brighton, the
// reversed-direction cluster flow still prices the trip.
func TestTicketPricesReversedFallback(t *testing.T) {
	store := newNetworkStore(t)

	options, err := TicketPrices(store, "PRP", "BTN")
	require.NoError(t, err)
	require.NotEmpty(t, options)

	fares := []int{}
	for _, option := range options {
		fares = append(fares, option.Fare)
	}
	assert.Contains(t, fares, 290)
}

func TestTicketPricesUnknownStation(t *testing.T) {
	store := newNetworkStore(t)

	options, err := TicketPrices(store, "ZZZ", "BTN")
	require.NoError(t, err)
	assert.Empty(t, options)
}

func TestFormatPrice(t *testing.T) {
	store := newNetworkStore(t)

	options, err := TicketPrices(store, "BTN", "PRP")
	require.NoError(t, err)

	summary := SummarizeTickets(options, TicketForAdult)
	assert.Equal(t, "£03.10", FormatPrice(summary.Single))
	assert.Equal(t, "£06.20", FormatPrice(summary.Return))
	assert.Equal(t, "None", FormatPrice(nil))
}
