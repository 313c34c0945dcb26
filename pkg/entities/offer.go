package entities

import (
	"bytes"
	"encoding/json"
)

// Offer is a negotiation over one listing as returned by the offers API. Only
// the fields the archiver reads are decoded, the original document is kept
// and written back verbatim.
type Offer struct {
	ID                   int64        `json:"id"`
	User                 OfferUser    `json:"user"`
	Product              Product      `json:"product"`
	ChannelURL           Text         `json:"channel_url"`
	LatestPriceMessage   Text         `json:"latest_price_message"`
	LatestPriceCreated   Text         `json:"latest_price_created"`
	LatestPriceFormatted Text         `json:"latest_price_formatted"`
	CurrencySymbol       Text         `json:"currency_symbol"`
	raw                  json.RawMessage
}

type OfferUser struct {
	ID       Text         `json:"id"`
	Username Text         `json:"username"`
	Profile  *UserProfile `json:"profile,omitempty"`
}

type UserProfile struct {
	ImageURL Text `json:"image_url"`
}

type Product struct {
	Title           Text             `json:"title"`
	PrimaryPhotoURL Text             `json:"primary_photo_url"`
	PriceFormatted  Text             `json:"price_formatted"`
	CurrencySymbol  Text             `json:"currency_symbol"`
	Description     Text             `json:"description"`
	SmartAttributes *SmartAttributes `json:"smart_attributes,omitempty"`
}

type SmartAttributes struct {
	City Text `json:"city"`
}

// ProfileImageURL returns the seller avatar URL, empty when absent.
func (u OfferUser) ProfileImageURL() string {
	if u.Profile == nil {
		return ""
	}
	return u.Profile.ImageURL.String()
}

// City returns the listing city, empty when absent.
func (p Product) City() string {
	if p.SmartAttributes == nil {
		return ""
	}
	return p.SmartAttributes.City.String()
}

// UnmarshalJSON never fails: each field is decoded on its own, one of
// unexpected shape stays zero without affecting the others.
func (o *Offer) UnmarshalJSON(data []byte) error {
	*o = Offer{}
	decodeFields(data, map[string]any{
		"id":                     &o.ID,
		"user":                   &o.User,
		"product":                &o.Product,
		"channel_url":            &o.ChannelURL,
		"latest_price_message":   &o.LatestPriceMessage,
		"latest_price_created":   &o.LatestPriceCreated,
		"latest_price_formatted": &o.LatestPriceFormatted,
		"currency_symbol":        &o.CurrencySymbol,
	})
	o.raw = append(json.RawMessage(nil), bytes.TrimSpace(data)...)

	return nil
}

func (o Offer) MarshalJSON() ([]byte, error) {
	if len(o.raw) > 0 {
		return o.raw, nil
	}

	type wire Offer
	return json.Marshal(wire(o))
}
