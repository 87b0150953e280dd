package contracts

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/agenthands/equivalence/internal/core/equivalence"
)

const flightStatusPrinciple = "The arrivalstatus should be the similar"

const flightStatusPrompt = `
In the following web page, find if the flight arrival was late or not:
Web page content:
%s
End of web page data.
Respond using ONLY the following format:
{
"arrivalstatus": bool // True if the flight arrival was delayed or False if it was on time
}
` + jsonOnly

var (
	ErrFlightNotDelayed = errors.New("flight arrival was not delayed")
	ErrNotInsured       = errors.New("passenger is not insured")
	ErrAlreadyPaid      = errors.New("passenger was already paid")
)

type FlightParams struct {
	FlightNumber            string
	FlightDate              string // YYYYMMDD
	FlightTime              string // e.g. 0510Z
	From                    string
	To                      string
	NumPassengersPaid       int
	LossPaymentPerPassenger int
}

type flightStatus struct {
	ArrivalStatus bool `json:"arrivalstatus"`
}

// FlightInsurance pays insured passengers when the flight arrives late, as
// reported by an independent flight tracking page.
type FlightInsurance struct {
	engine Engine

	mu       sync.RWMutex
	params   FlightParams
	url      string
	manager  string
	delayed  bool
	balances map[string]int
}

func NewFlightInsurance(inv Invocation, engine Engine, p FlightParams) *FlightInsurance {
	return &FlightInsurance{
		engine:  engine,
		params:  p,
		manager: inv.Caller,
		url: fmt.Sprintf("https://flightaware.com/live/flight/%s/history/%s/%s/%s/%s",
			p.FlightNumber, p.FlightDate, p.FlightTime, p.From, p.To),
		balances: map[string]int{inv.Caller: p.NumPassengersPaid * p.LossPaymentPerPassenger},
	}
}

// AskForFlightStatus has every validator read the tracking page and ask the
// model whether the arrival was delayed.
func (f *FlightInsurance) AskForFlightStatus(ctx context.Context, inv Invocation) error {
	out, err := f.engine.Run(ctx, flightStatusPrinciple, true, func(ctx context.Context, eq *equivalence.Session) error {
		page, err := eq.GetWebpage(ctx, f.url)
		if err != nil {
			return err
		}
		resp, err := eq.CallLLM(ctx, fmt.Sprintf(flightStatusPrompt, page))
		if err != nil {
			return err
		}
		status, err := equivalence.Decode[flightStatus](resp, "arrivalstatus")
		if err != nil {
			return err
		}
		return eq.Set(status)
	})
	if err != nil {
		return fmt.Errorf("flight status %s: %w", inv.ID, err)
	}

	status, err := equivalence.Decode[flightStatus](out, "arrivalstatus")
	if err != nil {
		return err
	}
	if status.ArrivalStatus {
		f.mu.Lock()
		f.delayed = true
		f.mu.Unlock()
	}
	return nil
}

func (f *FlightInsurance) AddPassenger(inv Invocation, passenger string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if inv.Caller != f.manager {
		return ErrNotOwner
	}
	if _, ok := f.balances[passenger]; !ok {
		f.balances[passenger] = 0
	}
	return nil
}

// InsuranceClaim moves one loss payment from the manager to passenger.
func (f *FlightInsurance) InsuranceClaim(inv Invocation, passenger string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.delayed {
		return ErrFlightNotDelayed
	}
	bal, ok := f.balances[passenger]
	if !ok || passenger == f.manager {
		return ErrNotInsured
	}
	if bal != 0 {
		return ErrAlreadyPaid
	}
	f.balances[passenger] = f.params.LossPaymentPerPassenger
	f.balances[f.manager] -= f.params.LossPaymentPerPassenger
	return nil
}

func (f *FlightInsurance) FlightArrivalDelayed() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.delayed
}

func (f *FlightInsurance) Balance(address string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.balances[address]
}

func (f *FlightInsurance) ManagerBalance() int { return f.Balance(f.manager) }

func (f *FlightInsurance) Manager() string { return f.manager }

func (f *FlightInsurance) ResolutionURL() string { return f.url }

func (f *FlightInsurance) Params() FlightParams { return f.params }
