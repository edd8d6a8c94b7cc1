package model

import "github.com/ryanreadbooks/primon/event"

// Quote makes an outgoing message a reply to an earlier message.
type Quote struct {
	Key  event.Key
	Text string
}

type OutgoingMessage struct {
	Kind Kind
	// Text is the body of a text message and the caption of media.
	Text     string
	Media    []byte
	Mimetype string
	// Seconds is the duration of a video, 0 when unknown.
	Seconds  uint32
	Mentions []string
	Quote    *Quote
	// Target is the message removed by a delete.
	Target event.Key
}

func Text(text string) *OutgoingMessage {
	return &OutgoingMessage{Kind: KindText, Text: text}
}

func Image(data []byte, mimetype, caption string) *OutgoingMessage {
	return &OutgoingMessage{Kind: KindImage, Media: data, Mimetype: mimetype, Text: caption}
}

func Video(data []byte, mimetype, caption string, seconds uint32) *OutgoingMessage {
	return &OutgoingMessage{Kind: KindVideo, Media: data, Mimetype: mimetype, Text: caption, Seconds: seconds}
}

func Delete(target event.Key) *OutgoingMessage {
	return &OutgoingMessage{Kind: KindDelete, Target: target}
}

func (m *OutgoingMessage) WithMentions(ids []string) *OutgoingMessage {
	m.Mentions = ids
	return m
}

func (m *OutgoingMessage) Quoting(key event.Key, text string) *OutgoingMessage {
	m.Quote = &Quote{Key: key, Text: text}
	return m
}

func (m *OutgoingMessage) IsMedia() bool {
	return m.Kind == KindImage || m.Kind == KindVideo
}
