package dto

import (
	"time"

	domainbooking "staysync/internal/domain/booking"
	domainpricing "staysync/internal/domain/pricing"
	domainsettlement "staysync/internal/domain/settlement"
	"staysync/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type NightLineDTO struct {
	Date  string   `json:"date"`
	Price MoneyDTO `json:"price"`
}

type QuoteDTO struct {
	PropertyID  string         `json:"property_id"`
	CheckIn     time.Time      `json:"check_in"`
	CheckOut    time.Time      `json:"check_out"`
	Nights      []NightLineDTO `json:"per_night"`
	SeasonLabel string         `json:"season_label"`
	SeasonFee   MoneyDTO       `json:"seasonal_surcharge"`
	Total       MoneyDTO       `json:"total"`
	Currency    string         `json:"currency"`
}

type SettlementDTO struct {
	Total             MoneyDTO `json:"total"`
	CommissionPercent float64  `json:"commission_percentage"`
	Commission        MoneyDTO `json:"commission_amount"`
	Net               MoneyDTO `json:"net_amount"`
	Reference         string   `json:"reference"`
}

type BookingDTO struct {
	ID              string        `json:"id"`
	ReservationCode string        `json:"reservation_code"`
	PropertyID      string        `json:"property_id"`
	RequesterID     string        `json:"requester_id"`
	CheckIn         time.Time     `json:"check_in"`
	CheckOut        time.Time     `json:"check_out"`
	Status          string        `json:"status"`
	Channel         string        `json:"channel,omitempty"`
	AgentName       string        `json:"agent_name,omitempty"`
	Total           MoneyDTO      `json:"total"`
	Settlement      SettlementDTO `json:"settlement"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

const dateLayout = "2006-01-02"

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{Amount: value.Amount, Currency: value.Currency}
}

func MapQuote(q domainpricing.Quote) QuoteDTO {
	out := QuoteDTO{
		PropertyID:  string(q.PropertyID),
		CheckIn:     q.Range.CheckIn,
		CheckOut:    q.Range.CheckOut,
		Nights:      make([]NightLineDTO, 0, len(q.Nights)),
		SeasonLabel: q.SeasonLabel,
		SeasonFee:   MapMoney(q.SeasonFee),
		Total:       MapMoney(q.Total),
		Currency:    q.Currency,
	}
	for _, line := range q.Nights {
		out.Nights = append(out.Nights, NightLineDTO{
			Date:  line.Date.Format(dateLayout),
			Price: MapMoney(line.Price),
		})
	}
	return out
}

func MapSettlement(s domainsettlement.Settlement) SettlementDTO {
	return SettlementDTO{
		Total:             MapMoney(s.Total),
		CommissionPercent: s.CommissionPercent,
		Commission:        MapMoney(s.Commission),
		Net:               MapMoney(s.Net),
		Reference:         s.Reference,
	}
}

func MapBooking(b *domainbooking.Booking) BookingDTO {
	return BookingDTO{
		ID:              string(b.ID),
		ReservationCode: b.Code,
		PropertyID:      string(b.PropertyID),
		RequesterID:     b.RequesterID,
		CheckIn:         b.Range.CheckIn,
		CheckOut:        b.Range.CheckOut,
		Status:          string(b.Status),
		Channel:         string(b.Channel),
		AgentName:       b.AgentName,
		Total:           MapMoney(b.Price.Total),
		Settlement:      MapSettlement(b.Settlement),
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}
