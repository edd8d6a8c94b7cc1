package whatsapp

import (
	"context"
	"errors"
	"fmt"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"google.golang.org/protobuf/proto"

	"github.com/ryanreadbooks/primon/channel"
	"github.com/ryanreadbooks/primon/channel/model"
	"github.com/ryanreadbooks/primon/event"
)

func (s *Session) Send(ctx context.Context, chatID string, msg *model.OutgoingMessage) (string, error) {
	to, err := types.ParseJID(chatID)
	if err != nil {
		return "", fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}

	var wa *waE2E.Message
	switch msg.Kind {
	case model.KindText:
		wa = textMessage(msg, s.OwnIdentity())
	case model.KindImage, model.KindVideo:
		wa, err = s.mediaMessage(ctx, msg)
	case model.KindDelete:
		wa, err = s.revokeMessage(msg.Target)
	default:
		err = fmt.Errorf("unsupported outgoing message kind: %s", msg.Kind)
	}
	if err != nil {
		return "", err
	}

	resp, err := s.client.SendMessage(ctx, to, wa)
	if err != nil {
		return "", fmt.Errorf("failed to send %s message: %w", msg.Kind, err)
	}
	return resp.ID, nil
}

func textMessage(msg *model.OutgoingMessage, own string) *waE2E.Message {
	ci := contextInfo(msg, own)
	if ci == nil {
		return &waE2E.Message{Conversation: proto.String(msg.Text)}
	}
	return &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text:        proto.String(msg.Text),
			ContextInfo: ci,
		},
	}
}

// contextInfo carries mentions and the quoted message, nil when msg has
// neither.
func contextInfo(msg *model.OutgoingMessage, own string) *waE2E.ContextInfo {
	if len(msg.Mentions) == 0 && msg.Quote == nil {
		return nil
	}

	ci := &waE2E.ContextInfo{}
	if len(msg.Mentions) > 0 {
		ci.MentionedJID = append([]string(nil), msg.Mentions...)
	}
	if q := msg.Quote; q != nil {
		ci.StanzaID = proto.String(q.Key.ID)
		ci.Participant = proto.String(quotedAuthor(q.Key, own))
		ci.QuotedMessage = &waE2E.Message{Conversation: proto.String(q.Text)}
	}
	return ci
}

func quotedAuthor(key event.Key, own string) string {
	switch {
	case key.Participant != "":
		return key.Participant
	case key.FromMe:
		return own
	default:
		return key.ChatID
	}
}

func (s *Session) mediaMessage(ctx context.Context, msg *model.OutgoingMessage) (*waE2E.Message, error) {
	if len(msg.Media) == 0 {
		return nil, fmt.Errorf("%s message without media", msg.Kind)
	}

	mediaType := whatsmeow.MediaImage
	if msg.Kind == model.KindVideo {
		mediaType = whatsmeow.MediaVideo
	}

	up, err := s.client.Upload(ctx, msg.Media, mediaType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", msg.Kind, err)
	}

	var caption *string
	if msg.Text != "" {
		caption = proto.String(msg.Text)
	}
	ci := contextInfo(msg, s.OwnIdentity())

	if msg.Kind == model.KindImage {
		return &waE2E.Message{
			ImageMessage: &waE2E.ImageMessage{
				Caption:       caption,
				Mimetype:      proto.String(mimetypeOr(msg.Mimetype, "image/jpeg")),
				URL:           proto.String(up.URL),
				DirectPath:    proto.String(up.DirectPath),
				MediaKey:      up.MediaKey,
				FileEncSHA256: up.FileEncSHA256,
				FileSHA256:    up.FileSHA256,
				FileLength:    proto.Uint64(up.FileLength),
				ContextInfo:   ci,
			},
		}, nil
	}

	video := &waE2E.VideoMessage{
		Caption:       caption,
		Mimetype:      proto.String(mimetypeOr(msg.Mimetype, "video/mp4")),
		URL:           proto.String(up.URL),
		DirectPath:    proto.String(up.DirectPath),
		MediaKey:      up.MediaKey,
		FileEncSHA256: up.FileEncSHA256,
		FileSHA256:    up.FileSHA256,
		FileLength:    proto.Uint64(up.FileLength),
		ContextInfo:   ci,
	}
	if msg.Seconds > 0 {
		video.Seconds = proto.Uint32(msg.Seconds)
	}
	return &waE2E.Message{VideoMessage: video}, nil
}

func mimetypeOr(mimetype, fallback string) string {
	if mimetype == "" {
		return fallback
	}
	return mimetype
}

func (s *Session) revokeMessage(target event.Key) (*waE2E.Message, error) {
	chat, err := types.ParseJID(target.ChatID)
	if err != nil {
		return nil, fmt.Errorf("invalid chat id %q: %w", target.ChatID, err)
	}

	// own messages are revoked without a sender
	sender := types.EmptyJID
	if !target.FromMe && target.Participant != "" {
		sender, err = types.ParseJID(target.Participant)
		if err != nil {
			return nil, fmt.Errorf("invalid participant %q: %w", target.Participant, err)
		}
	}
	return s.client.BuildRevoke(chat, sender, target.ID), nil
}

func (s *Session) GroupInfo(ctx context.Context, chatID string) (*channel.GroupInfo, error) {
	jid, err := types.ParseJID(chatID)
	if err != nil || jid.Server != types.GroupServer {
		return nil, fmt.Errorf("%w: %s", channel.ErrNotGroup, chatID)
	}

	info, err := s.client.GetGroupInfo(ctx, jid)
	if err != nil {
		return nil, fmt.Errorf("failed to get group info: %w", err)
	}

	participants := make([]string, 0, len(info.Participants))
	for _, p := range info.Participants {
		id := p.JID
		if id.Server == types.HiddenUserServer && !p.PhoneNumber.IsEmpty() {
			id = p.PhoneNumber
		}
		participants = append(participants, jidString(id))
	}

	return &channel.GroupInfo{
		ChatID:       chatID,
		Subject:      info.Name,
		Participants: participants,
	}, nil
}

func (s *Session) DownloadMedia(ctx context.Context, media *event.Media) ([]byte, error) {
	if media == nil {
		return nil, errors.New("no media to download")
	}

	var msg whatsmeow.DownloadableMessage
	switch ref := media.Ref.(type) {
	case *waE2E.ImageMessage:
		msg = ref
	case *waE2E.VideoMessage:
		msg = ref
	default:
		return nil, fmt.Errorf("media %s is not downloadable", media.Kind)
	}

	data, err := s.client.Download(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", media.Kind, err)
	}
	return data, nil
}

func (s *Session) ProfilePictureURL(ctx context.Context, chatID string) (string, error) {
	jid, err := types.ParseJID(chatID)
	if err != nil {
		return "", fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}

	info, err := s.client.GetProfilePictureInfo(ctx, jid, &whatsmeow.GetProfilePictureParams{})
	switch {
	case errors.Is(err, whatsmeow.ErrProfilePictureNotSet),
		errors.Is(err, whatsmeow.ErrProfilePictureUnauthorized):
		return "", channel.ErrNoProfilePicture
	case err != nil:
		return "", fmt.Errorf("failed to get profile picture: %w", err)
	case info == nil || info.URL == "":
		return "", channel.ErrNoProfilePicture
	}
	return info.URL, nil
}
