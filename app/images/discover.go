package images

import (
	"strings"

	e "nuclight.org/offers-archiver/pkg/entities"
)

// defaultAvatar marks the messaging backend's placeholder avatar.
const defaultAvatar = "default.png"

// OfferURLs returns the seller avatar and product photo of an offer, empty
// ones left out.
func OfferURLs(offer e.Offer) []string {
	return nonEmpty(
		offer.User.ProfileImageURL(),
		offer.Product.PrimaryPhotoURL.String(),
	)
}

// MessageURLs returns the sender avatar, unless it is the backend default,
// the single attachment of FILE messages and every entry of files.
func MessageURLs(msg e.Message) []string {
	var urls []string

	if msg.User != nil {
		if avatar := msg.User.ProfileURL.String(); !strings.Contains(avatar, defaultAvatar) {
			urls = append(urls, avatar)
		}
	}

	if msg.Type.String() == e.MessageTypeFile && msg.File != nil {
		urls = append(urls, msg.File.URL.String())
	}

	for _, f := range msg.Files {
		urls = append(urls, f.URL.String())
	}

	return nonEmpty(urls...)
}

func nonEmpty(urls ...string) []string {
	out := urls[:0]
	for _, u := range urls {
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}
