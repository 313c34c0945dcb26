package viewer

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"github.com/labstack/echo/v4"
	"nuclight.org/offers-archiver/app/reconcile"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

func staticFiles() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("embedded static files: %v", err))
	}
	return sub
}

type renderer struct {
	templates *template.Template
}

func newRenderer() (*renderer, error) {
	t, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &renderer{templates: t}, nil
}

func (r *renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

type page struct {
	Chats    []chatLink
	Selected *chatView
	Error    string
}

type chatLink struct {
	reconcile.ChatEntry
	Avatar image
	Active bool
}

type chatView struct {
	reconcile.Chat
	ItemImage    image
	SellerAvatar image
	Days         []dayView
}

type dayView struct {
	Heading  string
	Messages []messageView
}

type messageView struct {
	reconcile.MessageView
	Images []image
}

func (s *Server) chatLinks(active int64) []chatLink {
	entries := s.index.ChatList(s.now())
	links := make([]chatLink, 0, len(entries))

	for _, entry := range entries {
		links = append(links, chatLink{
			ChatEntry: entry,
			Avatar:    s.assets.image(entry.AvatarURL, entry.Username, "avatar"),
			Active:    entry.OfferID == active,
		})
	}

	return links
}

func (s *Server) chatView(chat reconcile.Chat) *chatView {
	view := &chatView{
		Chat:         chat,
		ItemImage:    s.assets.image(chat.Details.ImageURL, chat.Details.Title, "item-image"),
		SellerAvatar: s.assets.image(chat.Details.SellerAvatarURL, chat.Details.SellerName, "small-avatar"),
		Days:         make([]dayView, 0, len(chat.Days)),
	}

	for _, day := range chat.Days {
		dv := dayView{Heading: day.Heading}
		for _, msg := range day.Messages {
			mv := messageView{MessageView: msg}
			for _, u := range msg.Attachments {
				mv.Images = append(mv.Images, s.assets.image(u, "attachment", "attachment"))
			}
			dv.Messages = append(dv.Messages, mv)
		}
		view.Days = append(view.Days, dv)
	}

	return view
}
