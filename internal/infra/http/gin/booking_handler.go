package ginserver

import (
	"errors"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"staysync/internal/app/commands"
	"staysync/internal/app/dto"
	availabilityapp "staysync/internal/app/handlers/availability"
	bookingapp "staysync/internal/app/handlers/booking"
	"staysync/internal/app/queries"
	domainbooking "staysync/internal/domain/booking"
	domainpricing "staysync/internal/domain/pricing"
	domainproperty "staysync/internal/domain/property"
	"staysync/internal/domain/shared/daterange"
	"staysync/internal/domain/shared/money"
)

const dateLayout = "2006-01-02"

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type reserveStayRequest struct {
	PropertyID string `json:"property_id"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Channel    string `json:"channel"`
	AgentName  string `json:"agent_name"`
}

func (h BookingHandler) Reserve(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req reserveStayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	checkIn, checkOut, err := parseStayDates(req.CheckIn, req.CheckOut)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := bookingapp.ReserveStayCommand{
		CommandID:       generateCommandID(),
		PropertyID:      req.PropertyID,
		RequesterID:     p.ID,
		Role:            p.Role,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Channel:         req.Channel,
		AgentName:       req.AgentName,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[bookingapp.ReserveStayCommand, *bookingapp.ReserveStayResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

type changeStatusRequest struct {
	Status string `json:"status"`
}

func (h BookingHandler) ChangeStatus(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := bookingapp.ChangeStatusCommand{
		BookingID:       c.Param("id"),
		RequestedStatus: req.Status,
		RequesterID:     p.ID,
		Role:            p.Role,
	}
	result, err := commands.Dispatch[bookingapp.ChangeStatusCommand, *dto.BookingDTO](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Quote(c *gin.Context) {
	checkIn, checkOut, err := parseStayDates(c.Query("check_in"), c.Query("check_out"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q := bookingapp.QuoteStayQuery{
		PropertyID: c.Param("id"),
		CheckIn:    checkIn,
		CheckOut:   checkOut,
	}
	result, err := queries.Ask[bookingapp.QuoteStayQuery, *dto.QuoteDTO](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Settlement(c *gin.Context) {
	if _, ok := requirePrincipal(c); !ok {
		return
	}
	q := bookingapp.GetSettlementQuery{BookingID: c.Param("id")}
	result, err := queries.Ask[bookingapp.GetSettlementQuery, *dto.SettlementDTO](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) ListMine(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	q := bookingapp.ListBookingsQuery{RequesterID: p.ID}
	result, err := queries.Ask[bookingapp.ListBookingsQuery, *bookingapp.BookingCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type AvailabilityHandler struct {
	Queries queries.Bus
}

func (h AvailabilityHandler) Check(c *gin.Context) {
	checkIn, checkOut, err := parseStayDates(c.Query("check_in"), c.Query("check_out"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q := availabilityapp.CheckQuery{
		PropertyID: c.Param("id"),
		CheckIn:    checkIn,
		CheckOut:   checkOut,
	}
	result, err := queries.Ask[availabilityapp.CheckQuery, *availabilityapp.CheckResult](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func parseStayDates(rawIn, rawOut string) (time.Time, time.Time, error) {
	checkIn, err := time.Parse(dateLayout, rawIn)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("check_in must be formatted as " + dateLayout)
	}
	checkOut, err := time.Parse(dateLayout, rawOut)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("check_out must be formatted as " + dateLayout)
	}
	return checkIn, checkOut, nil
}

// respondError maps domain failures onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, domainbooking.ErrDateConflict),
		errors.Is(err, domainbooking.ErrVersionConflict):
		status = http.StatusConflict
	case errors.Is(err, domainbooking.ErrForbiddenTransition):
		status = http.StatusForbidden
	case errors.Is(err, domainproperty.ErrPropertyNotFound),
		errors.Is(err, domainbooking.ErrBookingNotFound):
		status = http.StatusNotFound
	case errors.Is(err, daterange.ErrInvalidRange),
		errors.Is(err, domainbooking.ErrUnknownStatus),
		errors.Is(err, domainbooking.ErrInvalidTransition),
		errors.Is(err, domainpricing.ErrEmptyStay),
		errors.Is(err, domainproperty.ErrAgentNotFound),
		errors.Is(err, money.ErrCurrencyMismatch):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func generateCommandID() string {
	return uuid.NewString()
}
