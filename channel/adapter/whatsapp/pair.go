package whatsapp

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"

	"github.com/ryanreadbooks/primon/channel"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#25D366")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#128C7E")).
			Padding(0, 1)
	hintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
)

// pair renders pairing codes until the device is linked or pairing fails.
func (s *Session) pair(qr <-chan whatsmeow.QRChannelItem) {
	w := s.opts.QRWriter
	if w == nil {
		w = os.Stdout
	}

	for item := range qr {
		switch item.Event {
		case whatsmeow.QRChannelEventCode:
			renderCode(w, item.Code)

		case whatsmeow.QRChannelSuccess.Event:
			s.logger.Info("pairing succeeded")
			return

		case whatsmeow.QRChannelTimeout.Event:
			s.fail(channel.DisconnectReason{Kind: channel.ReasonTimedOut, Message: "pairing timed out"})
			return

		case whatsmeow.QRChannelEventError:
			s.fail(channel.DisconnectReason{Kind: channel.ReasonRestartRequired, Message: fmt.Sprintf("pairing failed: %v", item.Error)})
			return

		default:
			s.fail(channel.OtherReason(0, "pairing failed: "+item.Event))
			return
		}
	}
}

func renderCode(w io.Writer, code string) {
	fmt.Fprintln(w, bannerStyle.Render("Link primon to your phone"))
	fmt.Fprintln(w, hintStyle.Render("WhatsApp > Linked devices > Link a device"))
	qrterminal.GenerateHalfBlock(code, qrterminal.L, w)
}
