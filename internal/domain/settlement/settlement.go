package settlement

import (
	"context"
	"strings"

	"staysync/internal/domain/property"
	"staysync/internal/domain/shared/money"
)

// Channel is the origin of a booking when no explicit agent is involved.
type Channel string

const (
	ChannelDirect     Channel = "direct"
	ChannelBookingCom Channel = "booking.com"
	ChannelExpedia    Channel = "expedia"
	ChannelAirbnb     Channel = "airbnb"
)

// ChannelRates maps a channel to its commission percentage. The exact values
// are business configuration, not algorithm.
type ChannelRates map[Channel]float64

func DefaultChannelRates() ChannelRates {
	return ChannelRates{
		ChannelBookingCom: 15,
		ChannelExpedia:    12,
		ChannelAirbnb:     8,
		ChannelDirect:     0,
	}
}

// Settlement is the commission split emitted to the invoicing collaborator.
// Commission + Net equals Total exactly; rounding is half-up to the minor unit.
type Settlement struct {
	Total             money.Money
	CommissionPercent float64
	Commission        money.Money
	Net               money.Money
	Reference         string
}

// Calculator resolves the applicable commission percentage and splits the
// total. An agent reference, when present, overrides the channel table.
type Calculator struct {
	Agents   property.AgentRepository
	Channels ChannelRates
}

func (c *Calculator) Settle(ctx context.Context, total money.Money, agentName string, channel Channel) (Settlement, error) {
	percent, err := c.percentFor(ctx, agentName, channel)
	if err != nil {
		return Settlement{}, err
	}
	commission, net, err := total.SplitPercent(percent)
	if err != nil {
		return Settlement{}, err
	}
	return Settlement{
		Total:             total,
		CommissionPercent: percent,
		Commission:        commission,
		Net:               net,
	}, nil
}

func (c *Calculator) percentFor(ctx context.Context, agentName string, channel Channel) (float64, error) {
	if agentName != "" {
		agent, err := c.Agents.ByName(ctx, agentName)
		if err != nil {
			return 0, err
		}
		return agent.CommissionPercent, nil
	}
	rates := c.Channels
	if rates == nil {
		rates = DefaultChannelRates()
	}
	key := Channel(strings.ToLower(strings.TrimSpace(string(channel))))
	if percent, ok := rates[key]; ok {
		return percent, nil
	}
	// Unknown channels settle like direct bookings.
	return rates[ChannelDirect], nil
}
