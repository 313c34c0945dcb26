package entities

import "encoding/json"

// decodeFields fills every target from the matching key of a JSON object.
// Keys are decoded one by one, so a value of unexpected shape leaves only
// its own target at zero. Input that is not an object leaves all of them
// at zero.
func decodeFields(data []byte, fields map[string]any) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return
	}

	for key, target := range fields {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		_ = json.Unmarshal(raw, target)
	}
}

func (u *OfferUser) UnmarshalJSON(data []byte) error {
	*u = OfferUser{}
	decodeFields(data, map[string]any{
		"id":       &u.ID,
		"username": &u.Username,
		"profile":  &u.Profile,
	})
	return nil
}

func (p *UserProfile) UnmarshalJSON(data []byte) error {
	*p = UserProfile{}
	decodeFields(data, map[string]any{
		"image_url": &p.ImageURL,
	})
	return nil
}

func (p *Product) UnmarshalJSON(data []byte) error {
	*p = Product{}
	decodeFields(data, map[string]any{
		"title":             &p.Title,
		"primary_photo_url": &p.PrimaryPhotoURL,
		"price_formatted":   &p.PriceFormatted,
		"currency_symbol":   &p.CurrencySymbol,
		"description":       &p.Description,
		"smart_attributes":  &p.SmartAttributes,
	})
	return nil
}

func (s *SmartAttributes) UnmarshalJSON(data []byte) error {
	*s = SmartAttributes{}
	decodeFields(data, map[string]any{
		"city": &s.City,
	})
	return nil
}

func (u *MessageUser) UnmarshalJSON(data []byte) error {
	*u = MessageUser{}
	decodeFields(data, map[string]any{
		"user_id":     &u.UserID,
		"nickname":    &u.Nickname,
		"profile_url": &u.ProfileURL,
	})
	return nil
}

func (f *File) UnmarshalJSON(data []byte) error {
	*f = File{}
	decodeFields(data, map[string]any{
		"url":  &f.URL,
		"name": &f.Name,
		"type": &f.Type,
	})
	return nil
}

// UnmarshalJSON keeps messages null when the key is missing or null, which
// marks the thread invalid.
func (t *Thread) UnmarshalJSON(data []byte) error {
	*t = Thread{}
	decodeFields(data, map[string]any{
		"offer_id": &t.OfferID,
		"messages": &t.Messages,
		"has_next": &t.HasNext,
	})
	return nil
}
