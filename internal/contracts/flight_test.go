package contracts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/equivalence/internal/core/equivalence"
	"github.com/agenthands/equivalence/internal/oracle"
)

func newEngine(mocks ...*oracle.MockOracle) *equivalence.Engine {
	return equivalence.NewEngine(oracle.Validators(mocks...), equivalence.NewComparator(0.6, nil))
}

func newFlight(engine Engine) (*FlightInsurance, Invocation) {
	manager := NewInvocation("0xmanager")
	return NewFlightInsurance(manager, engine, FlightParams{
		FlightNumber:            "TAP457",
		FlightDate:              "20240818",
		FlightTime:              "0510Z",
		From:                    "LFPO",
		To:                      "LPPR",
		NumPassengersPaid:       35,
		LossPaymentPerPassenger: 30,
	}), manager
}

func TestFlightInsurance_Delayed(t *testing.T) {
	a := &oracle.MockOracle{
		Pages:    []string{"TAP457 history\nArrival: delayed by 45 minutes"},
		Response: `{"arrivalstatus": True}`,
	}
	b := &oracle.MockOracle{
		Pages:    []string{"Buy now!   TAP457 history   Arrival:  delayed by 45 minutes"},
		Response: "```json\n{\"arrivalstatus\": true}\n```",
	}
	f, manager := newFlight(newEngine(a, b))
	assert.Equal(t, "https://flightaware.com/live/flight/TAP457/history/20240818/0510Z/LFPO/LPPR", f.ResolutionURL())

	require.NoError(t, f.AskForFlightStatus(context.Background(), NewInvocation("0xanyone")))
	assert.True(t, f.FlightArrivalDelayed())
	assert.Equal(t, []string{f.ResolutionURL()}, a.URLs)
	require.Len(t, b.Prompts, 1)
	assert.Contains(t, b.Prompts[0], "Buy now!")

	require.NoError(t, f.AddPassenger(manager, "0xpassenger"))
	require.NoError(t, f.InsuranceClaim(NewInvocation("0xpassenger"), "0xpassenger"))
	assert.Equal(t, 30, f.Balance("0xpassenger"))
	assert.Equal(t, 35*30-30, f.ManagerBalance())

	assert.ErrorIs(t, f.InsuranceClaim(NewInvocation("0xpassenger"), "0xpassenger"), ErrAlreadyPaid)
	assert.ErrorIs(t, f.InsuranceClaim(NewInvocation("0xstranger"), "0xstranger"), ErrNotInsured)
}

func TestFlightInsurance_Disagreement(t *testing.T) {
	e := newEngine(
		&oracle.MockOracle{Pages: []string{"Arrival: delayed"}, Response: `{"arrivalstatus": true}`},
		&oracle.MockOracle{Pages: []string{"Arrival: on time"}, Response: `{"arrivalstatus": false}`},
	)
	f, manager := newFlight(e)

	err := f.AskForFlightStatus(context.Background(), NewInvocation("0xanyone"))
	require.Error(t, err)
	assert.Equal(t, equivalence.KindConsensusDivergence, equivalence.KindOf(err))
	assert.False(t, f.FlightArrivalDelayed())

	require.NoError(t, f.AddPassenger(manager, "0xpassenger"))
	assert.ErrorIs(t, f.InsuranceClaim(NewInvocation("0xpassenger"), "0xpassenger"), ErrFlightNotDelayed)
	assert.Equal(t, 0, f.Balance("0xpassenger"))
}

func TestFlightInsurance_OnTime(t *testing.T) {
	e := newEngine(
		&oracle.MockOracle{Pages: []string{"Arrival: on time"}, Response: `{"arrivalstatus": False}`},
		&oracle.MockOracle{Pages: []string{"Arrival: on time"}, Response: `{"arrivalstatus": false}`},
	)
	f, _ := newFlight(e)

	require.NoError(t, f.AskForFlightStatus(context.Background(), NewInvocation("0xanyone")))
	assert.False(t, f.FlightArrivalDelayed())
}

func TestFlightInsurance_MalformedAnswer(t *testing.T) {
	e := newEngine(
		&oracle.MockOracle{Pages: []string{"Arrival: delayed"}, Response: "The flight was delayed."},
		&oracle.MockOracle{Pages: []string{"Arrival: delayed"}, Response: `{"arrivalstatus": true}`},
	)
	f, _ := newFlight(e)

	err := f.AskForFlightStatus(context.Background(), NewInvocation("0xanyone"))
	assert.Equal(t, equivalence.KindMalformedOutput, equivalence.KindOf(err))
	assert.False(t, f.FlightArrivalDelayed())
}

func TestFlightInsurance_OracleDown(t *testing.T) {
	e := newEngine(
		&oracle.MockOracle{Pages: []string{"Arrival: delayed"}, Response: `{"arrivalstatus": true}`},
		&oracle.MockOracle{},
	)
	f, _ := newFlight(e)

	err := f.AskForFlightStatus(context.Background(), NewInvocation("0xanyone"))
	assert.Equal(t, equivalence.KindOracleUnavailable, equivalence.KindOf(err))
	assert.False(t, f.FlightArrivalDelayed())
}

func TestFlightInsurance_AddPassengerOwnerOnly(t *testing.T) {
	f, _ := newFlight(newEngine(&oracle.MockOracle{}))
	assert.ErrorIs(t, f.AddPassenger(NewInvocation("0xother"), "0xpassenger"), ErrNotOwner)
}
