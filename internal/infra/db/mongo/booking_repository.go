package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "staysync/internal/domain/booking"
	domainpricing "staysync/internal/domain/pricing"
	domainproperty "staysync/internal/domain/property"
	domainsettlement "staysync/internal/domain/settlement"
	domainrange "staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/money"
)

const nightKeyLayout = "2006-01-02"

// BookingRepository persists bookings in two collections: the aggregate
// documents and one lock document per occupied night. The night documents use
// "propertyID:date" as _id, so two reservations competing for the same night
// collide on the unique index and exactly one insert wins.
type BookingRepository struct {
	col    *mongo.Collection
	nights *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{
		col:    db.Collection("agg_booking"),
		nights: db.Collection("booking_nights"),
	}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) Reserve(ctx context.Context, b *domainbooking.Booking) error {
	now := time.Now().UTC()
	nightDocs := make([]interface{}, 0, b.Range.Nights())
	for _, date := range b.Range.Dates() {
		nightDocs = append(nightDocs, bson.M{
			"_id":         nightKey(b.PropertyID, date),
			"booking_id":  string(b.ID),
			"property_id": string(b.PropertyID),
			"created_at":  now,
		})
	}
	if _, err := r.nights.InsertMany(ctx, nightDocs); err != nil {
		cleanup := r.releaseNights(ctx, b.ID)
		if mongo.IsDuplicateKeyError(err) {
			// Join keeps ErrDateConflict matchable while still surfacing a
			// failed cleanup, which would strand lock documents.
			return errors.Join(domainbooking.ErrDateConflict, cleanup)
		}
		return errors.Join(err, cleanup)
	}

	b.Version = 1
	if _, err := r.col.InsertOne(ctx, newBookingDocument(b)); err != nil {
		return errors.Join(err, r.releaseNights(ctx, b.ID))
	}
	return nil
}

func (r *BookingRepository) releaseNights(ctx context.Context, id domainbooking.BookingID) error {
	if _, err := r.nights.DeleteMany(ctx, bson.M{"booking_id": string(id)}); err != nil {
		return fmt.Errorf("release nights for %s: %w", id, err)
	}
	return nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if exists, eErr := r.exists(ctx, b.ID); eErr == nil && !exists {
			return domainbooking.ErrBookingNotFound
		}
		return domainbooking.ErrVersionConflict
	}
	b.Version = doc.Version
	if b.Status == domainbooking.StatusCancelled {
		// Cancellation releases the nights so the range can be rebooked. The
		// status change is already durable at this point; a failed release
		// must not stay silent or the range stays blocked forever.
		return r.releaseNights(ctx, b.ID)
	}
	return nil
}

func (r *BookingRepository) ActiveByProperty(ctx context.Context, id domainproperty.PropertyID) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"property_id": string(id),
		"status":      bson.M{"$ne": string(domainbooking.StatusCancelled)},
	}
	opts := options.Find().SetSort(bson.D{{Key: "range.check_in", Value: 1}})
	return r.find(ctx, filter, opts)
}

func (r *BookingRepository) ListByRequester(ctx context.Context, requesterID string) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, bson.M{"requester_id": requesterID}, opts)
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domainbooking.Booking, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]*domainbooking.Booking, 0)
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

func (r *BookingRepository) exists(ctx context.Context, id domainbooking.BookingID) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": string(id)})
	return n > 0, err
}

func nightKey(id domainproperty.PropertyID, date time.Time) string {
	return string(id) + ":" + date.UTC().Format(nightKeyLayout)
}

type moneyDocument struct {
	Amount   int64  `bson:"amount"`
	Currency string `bson:"currency"`
}

func newMoneyDocument(m money.Money) moneyDocument {
	return moneyDocument{Amount: m.Amount, Currency: m.Currency}
}

func (d moneyDocument) toMoney() money.Money {
	return money.Money{Amount: d.Amount, Currency: d.Currency}
}

type nightLineDocument struct {
	Date  int64         `bson:"date"`
	Price moneyDocument `bson:"price"`
}

type quoteDocument struct {
	Nights      []nightLineDocument `bson:"nights"`
	SeasonLabel string              `bson:"season_label"`
	SeasonFee   moneyDocument       `bson:"season_fee"`
	Total       moneyDocument       `bson:"total"`
	Currency    string              `bson:"currency"`
}

type settlementDocument struct {
	Total             moneyDocument `bson:"total"`
	CommissionPercent float64       `bson:"commission_percent"`
	Commission        moneyDocument `bson:"commission"`
	Net               moneyDocument `bson:"net"`
	Reference         string        `bson:"reference"`
}

type rangeDocument struct {
	CheckIn  int64 `bson:"check_in"`
	CheckOut int64 `bson:"check_out"`
}

type bookingDocument struct {
	ID          string             `bson:"_id"`
	Code        string             `bson:"code"`
	PropertyID  string             `bson:"property_id"`
	OwnerID     string             `bson:"owner_id"`
	RequesterID string             `bson:"requester_id"`
	Range       rangeDocument      `bson:"range"`
	Price       quoteDocument      `bson:"price"`
	Channel     string             `bson:"channel"`
	AgentName   string             `bson:"agent_name"`
	Settlement  settlementDocument `bson:"settlement"`
	Status      string             `bson:"status"`
	CreatedAt   int64              `bson:"created_at"`
	UpdatedAt   int64              `bson:"updated_at"`
	Version     int64              `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	nights := make([]nightLineDocument, 0, len(b.Price.Nights))
	for _, n := range b.Price.Nights {
		nights = append(nights, nightLineDocument{Date: n.Date.UnixMilli(), Price: newMoneyDocument(n.Price)})
	}
	return bookingDocument{
		ID:          string(b.ID),
		Code:        b.Code,
		PropertyID:  string(b.PropertyID),
		OwnerID:     b.OwnerID,
		RequesterID: b.RequesterID,
		Range:       rangeDocument{CheckIn: b.Range.CheckIn.UnixMilli(), CheckOut: b.Range.CheckOut.UnixMilli()},
		Price: quoteDocument{
			Nights:      nights,
			SeasonLabel: b.Price.SeasonLabel,
			SeasonFee:   newMoneyDocument(b.Price.SeasonFee),
			Total:       newMoneyDocument(b.Price.Total),
			Currency:    b.Price.Currency,
		},
		Channel:   string(b.Channel),
		AgentName: b.AgentName,
		Settlement: settlementDocument{
			Total:             newMoneyDocument(b.Settlement.Total),
			CommissionPercent: b.Settlement.CommissionPercent,
			Commission:        newMoneyDocument(b.Settlement.Commission),
			Net:               newMoneyDocument(b.Settlement.Net),
			Reference:         b.Settlement.Reference,
		},
		Status:    string(b.Status),
		CreatedAt: b.CreatedAt.UnixMilli(),
		UpdatedAt: b.UpdatedAt.UnixMilli(),
		Version:   b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	dr := domainrange.DateRange{CheckIn: timestampToTime(d.Range.CheckIn), CheckOut: timestampToTime(d.Range.CheckOut)}
	nights := make([]domainpricing.NightLine, 0, len(d.Price.Nights))
	for _, n := range d.Price.Nights {
		nights = append(nights, domainpricing.NightLine{Date: timestampToTime(n.Date), Price: n.Price.toMoney()})
	}
	return &domainbooking.Booking{
		ID:          domainbooking.BookingID(d.ID),
		Code:        d.Code,
		PropertyID:  domainproperty.PropertyID(d.PropertyID),
		OwnerID:     d.OwnerID,
		RequesterID: d.RequesterID,
		Range:       dr,
		Price: domainpricing.Quote{
			PropertyID:  domainproperty.PropertyID(d.PropertyID),
			Range:       dr,
			Nights:      nights,
			SeasonLabel: d.Price.SeasonLabel,
			SeasonFee:   d.Price.SeasonFee.toMoney(),
			Total:       d.Price.Total.toMoney(),
			Currency:    d.Price.Currency,
		},
		Channel:   domainsettlement.Channel(d.Channel),
		AgentName: d.AgentName,
		Settlement: domainsettlement.Settlement{
			Total:             d.Settlement.Total.toMoney(),
			CommissionPercent: d.Settlement.CommissionPercent,
			Commission:        d.Settlement.Commission.toMoney(),
			Net:               d.Settlement.Net.toMoney(),
			Reference:         d.Settlement.Reference,
		},
		Status:    domainbooking.Status(d.Status),
		CreatedAt: timestampToTime(d.CreatedAt),
		UpdatedAt: timestampToTime(d.UpdatedAt),
		Version:   d.Version,
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
