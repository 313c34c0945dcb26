package reconcile

import (
	"time"

	e "nuclight.org/offers-archiver/pkg/entities"
)

const (
	UnknownUser      = "Unknown User"
	UnknownSeller    = "Unknown Seller"
	NoMessages       = "No messages yet"
	NoTitle          = "No Title"
	NoPrice          = "Price not set"
	NoLocation       = "Location not specified"
	NoDescription    = "No description provided."
	clockLayout      = "3:04 PM"
	weekdayLayout    = "Mon"
	monthDayLayout   = "1/2"
	dayHeadingLayout = "Monday, 2 January 2006"
)

// ChatEntry is one line of the chat list.
type ChatEntry struct {
	OfferID     int64
	Username    string
	AvatarURL   string
	LastMessage string
	Timestamp   string
}

// ItemDetails describes the listing an offer is about.
type ItemDetails struct {
	ImageURL        string
	Title           string
	Price           string
	SellerName      string
	SellerAvatarURL string
	Location        string
	Description     string
}

// MessageView is a well-formed message ready for display.
type MessageView struct {
	Sender      e.UserID
	Direction   e.Direction
	Text        string
	Attachments []string
	Time        time.Time
	Clock       string
}

// DayGroup holds consecutive messages written on the same local date.
type DayGroup struct {
	Date     time.Time
	Heading  string
	Messages []MessageView
}

// Chat is everything shown for one selected offer.
type Chat struct {
	OfferID int64
	Details ItemDetails
	Days    []DayGroup

	// HasMessages is false when the thread is missing or empty, even
	// before malformed messages are dropped
	HasMessages bool

	// Malformed counts the messages left out of Days
	Malformed int
}

// ChatList returns one entry per offer in document order. now anchors the
// relative timestamps.
func (idx *Index) ChatList(now time.Time) []ChatEntry {
	entries := make([]ChatEntry, 0, len(idx.offers))

	for _, offer := range idx.offers {
		entry := ChatEntry{
			OfferID:     offer.ID,
			Username:    orDefault(offer.User.Username.String(), UnknownUser),
			AvatarURL:   offer.User.ProfileImageURL(),
			LastMessage: orDefault(offer.LatestPriceMessage.String(), NoMessages),
		}

		if ts, ok := parseTimestamp(offer.LatestPriceCreated.String()); ok {
			entry.Timestamp = FormatTimestamp(ts.In(idx.loc), now.In(idx.loc))
		}

		entries = append(entries, entry)
	}

	return entries
}

// Chat assembles the view of one offer.
func (idx *Index) Chat(offerID int64) (Chat, bool) {
	offer, ok := idx.Offer(offerID)
	if !ok {
		return Chat{}, false
	}

	messages := idx.messages[offerID]
	days, malformed := idx.groupByDay(messages)

	return Chat{
		OfferID:     offerID,
		Details:     Details(offer),
		Days:        days,
		HasMessages: len(messages) > 0,
		Malformed:   malformed,
	}, true
}

// Details applies the display fallbacks to an offer's listing fields.
func Details(offer e.Offer) ItemDetails {
	product := offer.Product
	title := product.Title.String()

	return ItemDetails{
		ImageURL:        product.PrimaryPhotoURL.String(),
		Title:           orDefault(title, NoTitle),
		Price:           price(offer),
		SellerName:      orDefault(offer.User.Username.String(), UnknownSeller),
		SellerAvatarURL: offer.User.ProfileImageURL(),
		Location:        orDefault(product.City(), NoLocation),
		Description:     orDefault(product.Description.String(), orDefault(title, NoDescription)),
	}
}

// price prefers the listing price, then the latest offered price.
func price(offer e.Offer) string {
	product := offer.Product

	if p := product.PriceFormatted.String(); p != "" {
		currency := orDefault(product.CurrencySymbol.String(), offer.CurrencySymbol.String())
		return currency + p
	}

	if p := offer.LatestPriceFormatted.String(); p != "" {
		return offer.CurrencySymbol.String() + p
	}

	return NoPrice
}

// groupByDay keeps stored order and starts a new group whenever the local
// date differs from the previous kept message.
func (idx *Index) groupByDay(messages []e.Message) ([]DayGroup, int) {
	var (
		days      []DayGroup
		malformed int
	)

	for _, msg := range messages {
		if !msg.WellFormed() {
			malformed++
			continue
		}

		ts := msg.CreatedAt.Time(idx.loc)
		date := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, idx.loc)

		if len(days) == 0 || !days[len(days)-1].Date.Equal(date) {
			days = append(days, DayGroup{
				Date:    date,
				Heading: date.Format(dayHeadingLayout),
			})
		}

		sender := msg.SenderID()
		last := &days[len(days)-1]
		last.Messages = append(last.Messages, MessageView{
			Sender:      sender,
			Direction:   idx.DirectionOf(sender),
			Text:        msg.Text.String(),
			Attachments: attachments(msg),
			Time:        ts,
			Clock:       ts.Format(clockLayout),
		})
	}

	return days, malformed
}

func attachments(msg e.Message) []string {
	var urls []string

	if msg.Type.String() == e.MessageTypeFile && msg.File != nil {
		if u := msg.File.URL.String(); u != "" {
			urls = append(urls, u)
		}
	}

	for _, f := range msg.Files {
		if u := f.URL.String(); u != "" {
			urls = append(urls, u)
		}
	}

	return urls
}

// FormatTimestamp renders a chat list timestamp: the time of day for today,
// the weekday within the last week, the month and day otherwise.
func FormatTimestamp(ts, now time.Time) string {
	y1, m1, d1 := ts.Date()
	y2, m2, d2 := now.Date()
	if y1 == y2 && m1 == m2 && d1 == d2 {
		return ts.Format(clockLayout)
	}

	if age := now.Sub(ts); age > 0 && age < 7*24*time.Hour {
		return ts.Format(weekdayLayout)
	}

	return ts.Format(monthDayLayout)
}

func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}

	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}

	return ts, true
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
