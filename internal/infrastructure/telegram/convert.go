package telegram

import (
	"sort"
	"strings"
	"time"

	"github.com/gotd/td/tg"

	"github.com/Conte777/NewsFlow/services/connector-service/internal/domain/message/entities"
)

var channelLinkPrefixes = []string{"https://t.me/", "http://t.me/", "t.me/"}

// NormalizeChannel turns "@Name", "t.me/Name" or "Name" into "name"
func NormalizeChannel(name string) string {
	s := strings.TrimSpace(name)
	for _, prefix := range channelLinkPrefixes {
		s = strings.TrimPrefix(s, prefix)
	}
	s = strings.TrimPrefix(s, "@")
	if i := strings.IndexAny(s, "/?"); i >= 0 {
		s = s[:i]
	}
	return strings.ToLower(s)
}

func convertMessage(channel string, msg *tg.Message, users map[int64]*tg.User) entities.Message {
	m := entities.Message{
		Channel: channel,
		ID:      msg.ID,
		Text:    msg.Message,
		Date:    time.Unix(int64(msg.Date), 0).UTC(),
		Media:   mediaRef(msg.Media),
		Sender:  senderOf(channel, msg, users),
	}
	if groupedID, ok := msg.GetGroupedID(); ok {
		m.GroupedID = groupedID
	}
	return m
}

func mediaRef(media tg.MessageMediaClass) *entities.MediaRef {
	switch v := media.(type) {
	case nil:
		return nil
	case *tg.MessageMediaPhoto:
		ref := &entities.MediaRef{Type: "photo"}
		if photo, ok := v.Photo.(*tg.Photo); ok {
			ref.ID = photo.ID
		}
		return ref
	case *tg.MessageMediaDocument:
		ref := &entities.MediaRef{Type: "document"}
		if doc, ok := v.Document.(*tg.Document); ok {
			ref.ID = doc.ID
			ref.MimeType = doc.MimeType
			if strings.HasPrefix(doc.MimeType, "video/") {
				ref.Type = "video"
			}
		}
		return ref
	case *tg.MessageMediaWebPage:
		// link previews are part of the text
		return nil
	default:
		return &entities.MediaRef{Type: media.TypeName()}
	}
}

func senderOf(channel string, msg *tg.Message, users map[int64]*tg.User) string {
	if author, ok := msg.GetPostAuthor(); ok && author != "" {
		return author
	}
	if from, ok := msg.GetFromID(); ok {
		if peer, ok := from.(*tg.PeerUser); ok {
			if user := users[peer.UserID]; user != nil {
				if username, ok := user.GetUsername(); ok && username != "" {
					return "@" + username
				}
				return strings.TrimSpace(user.FirstName + " " + user.LastName)
			}
		}
	}
	return "@" + channel
}

// groupAlbums collapses messages sharing a GroupedID into one message,
// keeping the position of the first part seen
func groupAlbums(items []entities.Message) []entities.Message {
	groups := make(map[int64][]entities.Message)
	var order []int64
	out := make([]entities.Message, 0, len(items))
	slots := make(map[int64]int)

	for _, item := range items {
		if item.GroupedID == 0 {
			out = append(out, item)
			continue
		}
		if _, seen := groups[item.GroupedID]; !seen {
			order = append(order, item.GroupedID)
			slots[item.GroupedID] = len(out)
			out = append(out, entities.Message{})
		}
		groups[item.GroupedID] = append(groups[item.GroupedID], item)
	}

	for _, id := range order {
		out[slots[id]] = combineAlbum(groups[id])
	}
	return out
}

// combineAlbum merges album parts into the part with the lowest id
func combineAlbum(items []entities.Message) entities.Message {
	parts := make([]entities.Message, len(items))
	copy(parts, items)
	sort.Slice(parts, func(i, j int) bool { return parts[i].ID < parts[j].ID })

	combined := parts[0]
	combined.Album = nil
	for _, part := range parts {
		if part.Media != nil {
			combined.Album = append(combined.Album, *part.Media)
		}
		if combined.Text == "" && part.Text != "" {
			combined.Text = part.Text
		}
	}
	if len(combined.Album) > 0 {
		first := combined.Album[0]
		combined.Media = &first
	}
	return combined
}
