package botapi

import "github.com/goccy/go-json"

type envelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

type update struct {
	UpdateID          int64    `json:"update_id"`
	ChannelPost       *message `json:"channel_post"`
	EditedChannelPost *message `json:"edited_channel_post"`
}

type chat struct {
	ID       int64      `json:"id"`
	Username string     `json:"username"`
	Photo    *chatPhoto `json:"photo"`
}

type chatPhoto struct {
	BigFileID string `json:"big_file_id"`
}

type photoSize struct {
	FileID string `json:"file_id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type video struct {
	FileID    string     `json:"file_id"`
	Thumbnail *photoSize `json:"thumbnail"`
}

type entity struct {
	Type     string `json:"type"`
	Offset   int    `json:"offset"`
	Length   int    `json:"length"`
	URL      string `json:"url"`
	Language string `json:"language"`
	User     *struct {
		ID int64 `json:"id"`
	} `json:"user"`
}

type message struct {
	MessageID       int64       `json:"message_id"`
	Date            int64       `json:"date"`
	Chat            chat        `json:"chat"`
	Text            string      `json:"text"`
	Entities        []entity    `json:"entities"`
	Caption         string      `json:"caption"`
	CaptionEntities []entity    `json:"caption_entities"`
	MediaGroupID    string      `json:"media_group_id"`
	Photo           []photoSize `json:"photo"`
	Video           *video      `json:"video"`
	Animation       *video      `json:"animation"`

	Document  json.RawMessage `json:"document"`
	Audio     json.RawMessage `json:"audio"`
	Voice     json.RawMessage `json:"voice"`
	VideoNote json.RawMessage `json:"video_note"`
	Sticker   json.RawMessage `json:"sticker"`
	Poll      json.RawMessage `json:"poll"`
	Location  json.RawMessage `json:"location"`
	Contact   json.RawMessage `json:"contact"`

	ForwardOrigin   json.RawMessage `json:"forward_origin"`
	ForwardFromChat json.RawMessage `json:"forward_from_chat"`
	ForwardDate     int64           `json:"forward_date"`

	NewChatTitle          string          `json:"new_chat_title"`
	NewChatPhoto          json.RawMessage `json:"new_chat_photo"`
	DeleteChatPhoto       bool            `json:"delete_chat_photo"`
	ChannelChatCreated    bool            `json:"channel_chat_created"`
	PinnedMessage         json.RawMessage `json:"pinned_message"`
	VideoChatStarted      json.RawMessage `json:"video_chat_started"`
	VideoChatEnded        json.RawMessage `json:"video_chat_ended"`
	VideoChatScheduled    json.RawMessage `json:"video_chat_scheduled"`
	MessageAutoDeleteSync json.RawMessage `json:"message_auto_delete_timer_changed"`
}

type file struct {
	FileID   string `json:"file_id"`
	FilePath string `json:"file_path"`
}

// mediaFiles remembers the downloadable files of a delivered message.
type mediaFiles struct {
	photos    []string
	file      string
	thumbnail string
}

func (m message) service() bool {
	return m.NewChatTitle != "" ||
		len(m.NewChatPhoto) > 0 ||
		m.DeleteChatPhoto ||
		m.ChannelChatCreated ||
		len(m.PinnedMessage) > 0 ||
		len(m.VideoChatStarted) > 0 ||
		len(m.VideoChatEnded) > 0 ||
		len(m.VideoChatScheduled) > 0 ||
		len(m.MessageAutoDeleteSync) > 0
}

func (m message) forwarded() bool {
	return len(m.ForwardOrigin) > 0 || len(m.ForwardFromChat) > 0 || m.ForwardDate != 0
}

func (m message) other() bool {
	for _, raw := range []json.RawMessage{m.Document, m.Audio, m.Voice, m.VideoNote, m.Sticker, m.Poll, m.Location, m.Contact} {
		if len(raw) > 0 {
			return true
		}
	}
	return false
}
